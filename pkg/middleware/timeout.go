package middleware

import (
	"context"
	"net/http"

	"github.com/kevin07696/lawdesk/pkg/resilience"
)

// Timeout bounds every request context with the handler timeout unless the
// parent already carries an earlier deadline
func Timeout(config *resilience.TimeoutConfig, contextFor func(*resilience.TimeoutConfig, context.Context) (context.Context, context.CancelFunc)) func(http.Handler) http.Handler {
	if contextFor == nil {
		contextFor = (*resilience.TimeoutConfig).HandlerContext
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := contextFor(config, r.Context())
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
