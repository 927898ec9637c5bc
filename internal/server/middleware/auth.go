package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/st0x/st0x-api/internal/metrics"
	"github.com/st0x/st0x-api/internal/model"
	"github.com/st0x/st0x-api/internal/service"
)

type contextKeyAuth string

// AuthIdentityKey is the context key for the authenticated identity.
const AuthIdentityKey contextKeyAuth = "auth_identity"

// Authenticate returns an HTTP middleware that validates the request's
// Basic auth credentials (username = key ID, password = key secret) against
// the gate. On success the identity is attached to the request context.
//
// Every rejection — missing header, malformed header, unknown key, revoked
// key, wrong secret — produces the same 401 status and body, so responses
// carry no signal about which check failed.
func Authenticate(gate *service.AuthService, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keyID, secret, ok := r.BasicAuth()
			if !ok || keyID == "" {
				m.ObserveAuth(metrics.OutcomeMalformed)
				writeUnauthorized(w)
				return
			}

			identity, err := gate.Authenticate(r.Context(), keyID, secret)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrInvalidCredentials):
					m.ObserveAuth(metrics.OutcomeInvalid)
				case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
					m.ObserveAuth(metrics.OutcomeError)
				default:
					m.ObserveAuth(metrics.OutcomeError)
				}
				writeUnauthorized(w)
				return
			}

			m.ObserveAuth(metrics.OutcomeOK)
			ctx := context.WithValue(r.Context(), AuthIdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns an HTTP middleware that enforces admin-key access.
// It must be used after Authenticate in the middleware chain.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if identity == nil || !identity.IsAdmin {
				writeJSONError(w, http.StatusForbidden, model.CodeForbidden, "admin key required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetIdentity extracts the authenticated identity from the context. Returns
// nil for an unauthenticated request.
func GetIdentity(ctx context.Context) *model.Identity {
	if id, ok := ctx.Value(AuthIdentityKey).(*model.Identity); ok {
		return id
	}
	return nil
}

// writeUnauthorized emits the single undifferentiated 401 response used for
// every authentication failure.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="st0x"`)
	writeJSONError(w, http.StatusUnauthorized, model.CodeUnauthorized, "invalid credentials")
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Constructed by hand to avoid an import cycle with the handler package.
	w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}
