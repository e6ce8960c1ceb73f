package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the request timeout hierarchy, outermost first:
//
//	HTTP handler (30s)
//	  Webhook processing (15s)
//	    Database query (2s simple / 5s complex, set on the postgres adapter)
//
// Each layer completes before its parent times out.
type TimeoutConfig struct {
	HTTPHandler time.Duration // Overall request timeout
	Webhook     time.Duration // Provider webhook processing
	Shutdown    time.Duration // Graceful shutdown drain
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 30 * time.Second,
		Webhook:     15 * time.Second,
		Shutdown:    30 * time.Second,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(parent, tc.HTTPHandler)
}

// WebhookContext creates a context for processing one provider webhook
func (tc *TimeoutConfig) WebhookContext(parent context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(parent, tc.Webhook)
}

// ShutdownContext creates the context bounding graceful shutdown
func (tc *TimeoutConfig) ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(parent, tc.Shutdown)
}

// withTimeout respects an earlier parent deadline and treats a zero
// timeout as none
func withTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if deadline, ok := parent.Deadline(); ok && time.Until(deadline) < d {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
