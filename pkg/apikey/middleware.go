package apikey

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "apikey context value " + k.name
}

var identityKey = &contextKey{"Identity"}

// IdentityFromContext returns the identity attached by the middleware, or
// nil if the request was not authenticated with an API key.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey).(*Identity)
	return identity
}

// WithIdentity attaches an identity to the context. Exposed for tests and
// for other authentication mechanisms that produce the same claims shape.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Middleware authenticates inbound requests carrying an API key.
type Middleware struct {
	service *Service
}

// NewMiddleware creates the authentication gate over the given service.
func NewMiddleware(service *Service) *Middleware {
	return &Middleware{
		service: service,
	}
}

// Authenticate inspects the bearer credential. A request without one, or
// with a bearer token that does not carry the key marker, passes through
// untouched so other authentication schemes get a chance. A marked token
// that fails verification is rejected with a generic 401; the specific
// reason is only visible in the audit trail. On success the identity is
// attached to the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" || !strings.HasPrefix(token, SecretMarker) {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.service.Verify(r.Context(), token)
		if err != nil {
			slog.Debug("API key authentication failed", "path", r.URL.Path)
			w.Header().Set("WWW-Authenticate", `Bearer realm="idm-admin"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireAuth requires that an API key identity is present. Must be used
// after Authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="idm-admin"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireScope returns a middleware that checks whether the authenticated
// identity carries any of the given scopes. Returns 401 if not
// authenticated, 403 if authenticated but missing every scope.
func RequireScope(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="idm-admin"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			for _, scope := range scopes {
				if identity.HasScope(scope) {
					next.ServeHTTP(w, r)
					return
				}
			}
			slog.Warn("Identity lacks required scope",
				"subject", identity.SubjectID,
				"requiredScopes", scopes)
			http.Error(w, "Forbidden: insufficient scope", http.StatusForbidden)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
