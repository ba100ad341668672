package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"saccoflow/pkg/requestcontext"
)

// ClientMetadata extracts the client IP, raw User-Agent, and a parsed device
// description from the request and stores them in the context. Audit events
// carry these fields for traceability.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), ua)
		ctx = requestcontext.WithDevice(ctx, describeDevice(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// describeDevice condenses a User-Agent string into "browser/version (os)".
func describeDevice(ua string) string {
	if ua == "" {
		return "unknown"
	}
	parsed := useragent.New(ua)
	name, version := parsed.Browser()
	os := parsed.OS()
	switch {
	case name == "" && os == "":
		return "unknown"
	case name == "":
		return os
	case os == "":
		return fmt.Sprintf("%s/%s", name, version)
	default:
		return fmt.Sprintf("%s/%s (%s)", name, version, os)
	}
}

// clientIP extracts the original client address, handling proxies and load
// balancers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return "unknown"
}
