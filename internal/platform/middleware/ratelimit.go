package middleware

import (
	"net/http"

	"saccoflow/internal/platform/redis"
	"saccoflow/pkg/platform/httputil"
)

// RateLimit throttles requests per client IP. A nil limiter disables it.
func RateLimit(limiter *redis.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), clientIP(r)) {
				httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
					"error":             "rate_limited",
					"error_description": "too many requests, slow down",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
