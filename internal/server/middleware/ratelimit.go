package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// GlobalRateLimit returns an HTTP middleware that limits requests per IP
// address to the specified number per minute, using a sliding window.
func GlobalRateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}

// KeyRateLimit returns an HTTP middleware that limits requests per API key
// to the specified number per minute. The key ID is the Basic auth
// username; requests without one fall back to the client IP so
// unauthenticated bursts are still bounded.
func KeyRateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if keyID, _, ok := r.BasicAuth(); ok && keyID != "" {
				return keyID, nil
			}
			return httprate.KeyByIP(r)
		}),
	)
}
