package shutdown

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestManager_ShutdownReverseOrder(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t), time.Second)

	var order []string
	m.RegisterNoErr("database", func() { order = append(order, "database") })
	m.Register("http", func(ctx context.Context) error {
		order = append(order, "http")
		return nil
	})

	require.NoError(t, m.Shutdown())
	assert.Equal(t, []string{"http", "database"}, order)
}

func TestManager_ShutdownJoinsErrors(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t), time.Second)
	boom := errors.New("boom")

	ran := false
	m.RegisterNoErr("last", func() { ran = true })
	m.Register("failing", func(ctx context.Context) error { return boom })

	err := m.Shutdown()
	assert.ErrorIs(t, err, boom)
	assert.True(t, ran, "a failing component does not stop the others")
}

func TestManager_WaitForShutdownOnContext(t *testing.T) {
	m := NewManager(zaptest.NewLogger(t), time.Second)
	called := false
	m.RegisterNoErr("c", func() { called = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, m.WaitForShutdown(ctx))
	assert.True(t, called)
}

func TestInFlightTracker_Middleware(t *testing.T) {
	tracker := NewInFlightTracker("http", zaptest.NewLogger(t))

	release := make(chan struct{})
	started := make(chan struct{})
	h := tracker.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusAccepted)
	}))

	firstDone := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		firstDone <- rec.Code
	}()
	<-started

	shutdownErr := make(chan error)
	go func() { shutdownErr <- tracker.Shutdown(context.Background()) }()

	require.Eventually(t, tracker.IsShuttingDown, time.Second, time.Millisecond)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	close(release)
	assert.Equal(t, http.StatusAccepted, <-firstDone)
	assert.NoError(t, <-shutdownErr)
}

func TestInFlightTracker_ShutdownTimeout(t *testing.T) {
	tracker := NewInFlightTracker("http", zaptest.NewLogger(t))
	require.True(t, tracker.Add())
	defer tracker.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tracker.Shutdown(ctx), context.DeadlineExceeded)
}

func TestPeriodicWorker(t *testing.T) {
	w := NewPeriodicWorker("tick", 5*time.Millisecond, zaptest.NewLogger(t))

	var runs atomic.Int32
	w.Start(context.Background(), func(ctx context.Context) { runs.Add(1) })

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, time.Millisecond)
	require.NoError(t, w.Shutdown(context.Background()))

	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestPeriodicWorker_ShutdownWithoutStart(t *testing.T) {
	w := NewPeriodicWorker("idle", time.Second, zaptest.NewLogger(t))
	assert.NoError(t, w.Shutdown(context.Background()))
}
