package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMemoryStore_Burst(t *testing.T) {
	store := NewMemoryStore(MemoryStoreConfig{RequestsPerSecond: 1, Burst: 2})
	defer store.Shutdown()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := store.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := store.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Keys are independent
	ok, _ = store.Allow(ctx, "10.0.0.2")
	assert.True(t, ok)
}

func TestMemoryStore_BoundedSize(t *testing.T) {
	store := NewMemoryStore(MemoryStoreConfig{RequestsPerSecond: 10, Burst: 10, MaxSize: 3})
	defer store.Shutdown()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := store.Allow(ctx, fmt.Sprintf("client-%d", i))
		require.NoError(t, err)
	}

	assert.Equal(t, 3, store.Len())
	store.mu.Lock()
	_, newest := store.limiters["client-9"]
	_, oldest := store.limiters["client-0"]
	store.mu.Unlock()
	assert.True(t, newest)
	assert.False(t, oldest)
}

func TestMemoryStore_CleanupEvictsIdleKeys(t *testing.T) {
	store := NewMemoryStore(MemoryStoreConfig{RequestsPerSecond: 10, Burst: 10, CleanupInterval: time.Minute})
	defer store.Shutdown()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	_, _ = store.Allow(ctx, "idle")
	now = now.Add(2 * time.Minute)
	_, _ = store.Allow(ctx, "active")

	removed := store.cleanup()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
}

func TestRedisStore_Window(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close() //nolint:errcheck

	store := NewRedisStore(client, "test", 2, time.Hour)
	store.now = func() time.Time { return time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	ok, err := store.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = store.Allow(ctx, "10.0.0.1")
	assert.True(t, ok)
	ok, _ = store.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, mr.TTL(keys[0]) > 0, "window key must expire")

	mr.FastForward(2 * time.Hour)
	assert.Empty(t, mr.Keys())
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimiter_Middleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("rejects over limit", func(t *testing.T) {
		store := NewMemoryStore(MemoryStoreConfig{RequestsPerSecond: 0.001, Burst: 1})
		defer store.Shutdown()
		handler := NewRateLimiter(store, nil, zaptest.NewLogger(t)).Middleware(next)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "192.0.2.1:5555"

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("fails open", func(t *testing.T) {
		handler := NewRateLimiter(failingStore{}, nil, zaptest.NewLogger(t)).Middleware(next)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	assert.Equal(t, "192.0.2.1", ClientIP(req, false))
	assert.Equal(t, "203.0.113.9", ClientIP(req, true))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "203.0.113.10")
	assert.Equal(t, "203.0.113.10", ClientIP(req, true))
}
