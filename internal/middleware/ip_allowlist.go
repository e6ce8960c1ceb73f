package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"go.uber.org/zap"

	pkgmiddleware "github.com/kevin07696/lawdesk/pkg/middleware"
)

// IPAllowlist restricts a route to known source addresses. An empty list
// allows everyone.
type IPAllowlist struct {
	prefixes   []netip.Prefix
	trustProxy bool
	logger     *zap.Logger
}

// NewIPAllowlist parses a comma-separated list of IPs and CIDR ranges.
// Unparseable entries are logged and skipped.
func NewIPAllowlist(raw string, trustProxy bool, logger *zap.Logger) *IPAllowlist {
	a := &IPAllowlist{trustProxy: trustProxy, logger: logger}

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				logger.Warn("Ignoring invalid allowlist range", zap.String("entry", entry), zap.Error(err))
				continue
			}
			a.prefixes = append(a.prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			logger.Warn("Ignoring invalid allowlist address", zap.String("entry", entry), zap.Error(err))
			continue
		}
		addr = addr.Unmap()
		a.prefixes = append(a.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	if len(a.prefixes) > 0 {
		logger.Info("Loaded webhook IP allowlist", zap.Int("count", len(a.prefixes)))
	}
	return a
}

// Enabled reports whether any entry is configured
func (a *IPAllowlist) Enabled() bool {
	return len(a.prefixes) > 0
}

// Allowed reports whether ip may call the route
func (a *IPAllowlist) Allowed(ip string) bool {
	if !a.Enabled() {
		return true
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		// IPv6 zones and bracketed forms
		host, _, splitErr := net.SplitHostPort(ip)
		if splitErr != nil {
			return false
		}
		if addr, err = netip.ParseAddr(host); err != nil {
			return false
		}
	}
	addr = addr.Unmap()

	for _, prefix := range a.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// Middleware wraps an HTTP handler with the allowlist check
func (a *IPAllowlist) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := pkgmiddleware.ClientIP(r, a.trustProxy)
		if !a.Allowed(clientIP) {
			a.logger.Warn("Request from unauthorized IP",
				zap.String("ip", clientIP),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
