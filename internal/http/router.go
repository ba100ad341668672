// Package httpapi assembles the top-level router. The thin HTTP layer
// delegates to feature services so transport concerns remain isolated.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"saccoflow/pkg/platform/httputil"
)

// Registrar is implemented by every feature handler that mounts its own
// sub-router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of one backing dependency.
type HealthChecker func(ctx context.Context) error

// NewRouter wires the feature handlers plus the operational endpoints.
// Global middlewares apply to every feature route but not to /healthz or
// /metrics, which probes and scrapers hit on their own schedule.
func NewRouter(checks map[string]HealthChecker, global []func(http.Handler) http.Handler, registrars ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealth(checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(global...)
		for _, registrar := range registrars {
			registrar.Register(r)
		}
	})
	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
