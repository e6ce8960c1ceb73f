package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Store decides whether one more request for key is allowed
type Store interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// ipLimiter tracks a rate limiter and its last access time
type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MemoryStore keeps one token bucket per key. The map is bounded by
// maxSize (least recently used key evicted first) and swept of idle keys
// every cleanupInterval.
type MemoryStore struct {
	limiters        map[string]*ipLimiter
	mu              sync.Mutex
	rate            rate.Limit
	burst           int
	maxSize         int
	cleanupInterval time.Duration
	now             func() time.Time
	stopCh          chan struct{}
	stopOnce        sync.Once
}

// MemoryStoreConfig configures a MemoryStore
type MemoryStoreConfig struct {
	RequestsPerSecond float64
	Burst             int
	MaxSize           int           // Maximum number of keys to cache
	CleanupInterval   time.Duration // How often to sweep idle keys
}

// NewMemoryStore creates a new in-memory store and starts its sweeper.
// Call Shutdown to stop it.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10000
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	s := &MemoryStore{
		limiters:        make(map[string]*ipLimiter),
		rate:            rate.Limit(cfg.RequestsPerSecond),
		burst:           cfg.Burst,
		maxSize:         cfg.MaxSize,
		cleanupInterval: cfg.CleanupInterval,
		now:             time.Now,
		stopCh:          make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// cleanupLoop periodically removes stale entries
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes entries that haven't been accessed in the last cleanup
// interval and returns how many were removed
func (s *MemoryStore) cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.cleanupInterval)
	removed := 0

	for key, limiter := range s.limiters {
		if limiter.lastAccess.Before(cutoff) {
			delete(s.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// Shutdown stops the cleanup goroutine
func (s *MemoryStore) Shutdown() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Allow implements Store
func (s *MemoryStore) Allow(_ context.Context, key string) (bool, error) {
	now := s.now()
	return s.getLimiter(key, now).AllowN(now, 1), nil
}

// getLimiter returns the rate limiter for the given key
func (s *MemoryStore) getLimiter(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, exists := s.limiters[key]
	if exists {
		limiter.lastAccess = now
		return limiter.limiter
	}

	if len(s.limiters) >= s.maxSize {
		// Evict oldest entry (LRU)
		var oldestKey string
		var oldestTime time.Time
		first := true

		for k, lim := range s.limiters {
			if first || lim.lastAccess.Before(oldestTime) {
				oldestKey = k
				oldestTime = lim.lastAccess
				first = false
			}
		}

		if oldestKey != "" {
			delete(s.limiters, oldestKey)
		}
	}

	newLimiter := &ipLimiter{
		limiter:    rate.NewLimiter(s.rate, s.burst),
		lastAccess: now,
	}
	s.limiters[key] = newLimiter

	return newLimiter.limiter
}

// fixedWindowScript counts hits in a window; the key expires with the window
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// RedisStore is a fixed-window counter shared by every instance
type RedisStore struct {
	client redis.Scripter
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisStore creates a store allowing limit requests per window per key
func NewRedisStore(client redis.Scripter, prefix string, limit int, window time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

// Allow implements Store
func (s *RedisStore) Allow(ctx context.Context, key string) (bool, error) {
	windowMs := s.window.Milliseconds()
	if windowMs <= 0 {
		windowMs = 1000
	}
	bucket := s.now().UnixMilli() / windowMs
	redisKey := s.prefix + ":" + key + ":" + strconv.FormatInt(bucket, 10)

	count, err := fixedWindowScript.Run(ctx, s.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false, err
	}
	return count <= s.limit, nil
}

// KeyFunc derives the limiter key of a request
type KeyFunc func(r *http.Request) string

// RateLimiter provides rate limiting over a Store. Store failures let the
// request through.
type RateLimiter struct {
	store   Store
	keyFunc KeyFunc
	logger  *zap.Logger
}

// NewRateLimiter creates a new rate limiter. A nil keyFunc keys by client IP.
func NewRateLimiter(store Store, keyFunc KeyFunc, logger *zap.Logger) *RateLimiter {
	if keyFunc == nil {
		keyFunc = func(r *http.Request) string { return ClientIP(r, false) }
	}
	return &RateLimiter{
		store:   store,
		keyFunc: keyFunc,
		logger:  logger,
	}
}

// Middleware returns HTTP middleware that applies rate limiting
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFunc(r)

		allowed, err := rl.store.Allow(r.Context(), key)
		if err != nil {
			rl.logger.Warn("Rate limit store unavailable, allowing request",
				zap.String("key", key),
				zap.Error(err))
			allowed = true
		}
		if !allowed {
			rl.logger.Debug("Rate limit exceeded", zap.String("key", key))
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
