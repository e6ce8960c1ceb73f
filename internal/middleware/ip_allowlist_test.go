package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestIPAllowlist_EmptyAllowsAll(t *testing.T) {
	a := NewIPAllowlist("", false, zaptest.NewLogger(t))

	assert.False(t, a.Enabled())
	assert.True(t, a.Allowed("203.0.113.7"))
	assert.True(t, a.Allowed("not-an-ip"))
}

func TestIPAllowlist_Allowed(t *testing.T) {
	a := NewIPAllowlist(" 52.67.12.206 , 18.230.8.0/24, garbage, 2001:db8::/32", false, zaptest.NewLogger(t))

	tests := []struct {
		ip      string
		allowed bool
	}{
		{"52.67.12.206", true},
		{"52.67.12.207", false},
		{"18.230.8.159", true},
		{"18.230.9.1", false},
		{"::ffff:52.67.12.206", true},
		{"2001:db8::1", true},
		{"garbage", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.allowed, a.Allowed(tt.ip))
		})
	}
}

func TestIPAllowlist_Middleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	tests := []struct {
		name       string
		trustProxy bool
		remoteAddr string
		forwarded  string
		wantStatus int
	}{
		{name: "allowed remote", remoteAddr: "52.67.12.206:443", wantStatus: http.StatusAccepted},
		{name: "blocked remote", remoteAddr: "198.51.100.1:443", wantStatus: http.StatusForbidden},
		{name: "forwarded ignored without trust", remoteAddr: "198.51.100.1:443", forwarded: "52.67.12.206", wantStatus: http.StatusForbidden},
		{name: "forwarded trusted", trustProxy: true, remoteAddr: "10.0.0.1:443", forwarded: "52.67.12.206, 10.0.0.1", wantStatus: http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewIPAllowlist("52.67.12.206", tt.trustProxy, zaptest.NewLogger(t))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/asaas", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			rec := httptest.NewRecorder()
			a.Middleware(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
