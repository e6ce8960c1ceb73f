package shutdown

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// InFlightTracker tracks in-flight requests so shutdown can wait for them
type InFlightTracker struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	draining bool
	logger   *zap.Logger
	name     string
}

// NewInFlightTracker creates a new in-flight work tracker
func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	return &InFlightTracker{
		logger: logger,
		name:   name,
	}
}

// Add increments the in-flight work counter.
// Returns false once shutdown has started.
func (ift *InFlightTracker) Add() bool {
	ift.mu.Lock()
	defer ift.mu.Unlock()
	if ift.draining {
		return false
	}
	ift.wg.Add(1)
	return true
}

// Done decrements the in-flight work counter
func (ift *InFlightTracker) Done() {
	ift.wg.Done()
}

// IsShuttingDown returns true if shutdown has been initiated
func (ift *InFlightTracker) IsShuttingDown() bool {
	ift.mu.Lock()
	defer ift.mu.Unlock()
	return ift.draining
}

// Middleware tracks each request; once draining, new requests get 503
func (ift *InFlightTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ift.Add() {
			w.Header().Set("Connection", "close")
			http.Error(w, "Service is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer ift.Done()
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops accepting work and waits for in-flight work to complete
func (ift *InFlightTracker) Shutdown(ctx context.Context) error {
	ift.mu.Lock()
	ift.draining = true
	ift.mu.Unlock()

	ift.logger.Info("Waiting for in-flight work to complete",
		zap.String("tracker", ift.name),
	)

	done := make(chan struct{})
	go func() {
		ift.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		ift.logger.Info("All in-flight work completed", zap.String("tracker", ift.name))
		return nil
	case <-ctx.Done():
		ift.logger.Warn("Shutdown timeout - some work may be incomplete",
			zap.String("tracker", ift.name),
		)
		return ctx.Err()
	}
}

// PeriodicWorker runs a function every interval until stopped
type PeriodicWorker struct {
	name     string
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

// NewPeriodicWorker creates a new periodic worker
func NewPeriodicWorker(name string, interval time.Duration, logger *zap.Logger) *PeriodicWorker {
	return &PeriodicWorker{
		name:     name,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs work on every tick. work should return promptly once ctx ends.
func (pw *PeriodicWorker) Start(ctx context.Context, work func(ctx context.Context)) {
	ctx, pw.cancel = context.WithCancel(ctx)

	go func() {
		defer close(pw.done)
		ticker := time.NewTicker(pw.interval)
		defer ticker.Stop()

		pw.logger.Info("Periodic worker started",
			zap.String("worker", pw.name),
			zap.Duration("interval", pw.interval),
		)
		for {
			select {
			case <-ctx.Done():
				pw.logger.Info("Periodic worker stopped", zap.String("worker", pw.name))
				return
			case <-ticker.C:
				work(ctx)
			}
		}
	}()
}

// Shutdown stops the worker and waits for the current run to finish
func (pw *PeriodicWorker) Shutdown(ctx context.Context) error {
	pw.once.Do(func() {
		if pw.cancel != nil {
			pw.cancel()
		} else {
			close(pw.done)
		}
	})

	select {
	case <-pw.done:
		return nil
	case <-ctx.Done():
		pw.logger.Warn("Periodic worker shutdown timeout", zap.String("worker", pw.name))
		return ctx.Err()
	}
}
