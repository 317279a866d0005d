package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "audit context value " + k.name
}

var clientIPKey = &contextKey{"ClientIP"}

// ClientIPFromContext returns the request origin captured by
// CaptureRequestInfo, or "" when none was captured.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// WithClientIP attaches a client IP to the context. Exposed for tests.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// CaptureRequestInfo records the client IP of each request into the
// context so Record can stamp entries with it. Must run after any proxy
// middleware that rewrites RemoteAddr.
func CaptureRequestInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
