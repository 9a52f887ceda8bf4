package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/emberleaf/backoffice/internal/ratelimit"
)

// RateLimit applies cfg to every request, keyed by keyFn (a hashed client
// IP in practice). Over-budget requests get a 429 with a retry hint; an
// unconfigured limiter passes everything through.
func RateLimit(limiter *ratelimit.Limiter, cfg ratelimit.Config, keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Check(keyFn(r), cfg)
			if !res.Success {
				wait := ratelimit.RetryAfterMessage(time.Until(res.Reset))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"error":   fmt.Sprintf("Too many requests. Please try again in %s.", wait),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
