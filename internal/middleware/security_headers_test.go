package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	t.Run("production", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewSecurityHeaders(false).Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=31536000")
		assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'none'")
	})

	t.Run("development", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewSecurityHeaders(true).Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
		assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
	})
}
