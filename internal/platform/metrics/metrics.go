// Package metrics registers the Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RecordsCreated      *prometheus.CounterVec
	ReviewsTotal        *prometheus.CounterVec
	TerminalActions     *prometheus.CounterVec
	ReviewDuration      *prometheus.HistogramVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics on the given registry. Tests pass a
// fresh registry so constructing the set twice never collides.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saccoflow_records_created_total",
			Help: "Total records created, by record kind.",
		}, []string{"kind"}),
		ReviewsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saccoflow_reviews_total",
			Help: "Total review decisions processed, by kind, action, and outcome.",
		}, []string{"kind", "action", "outcome"}),
		TerminalActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saccoflow_terminal_actions_total",
			Help: "Total terminal actions dispatched on final approval, by kind.",
		}, []string{"kind"}),
		ReviewDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "saccoflow_review_duration_seconds",
			Help:    "Time spent processing a review decision, including the terminal action.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "saccoflow_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// ObserveReview records one review decision.
func (m *Metrics) ObserveReview(kind, action, outcome string, elapsed time.Duration) {
	m.ReviewsTotal.WithLabelValues(kind, action, outcome).Inc()
	m.ReviewDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// IncrementRecordsCreated records one created record.
func (m *Metrics) IncrementRecordsCreated(kind string) {
	m.RecordsCreated.WithLabelValues(kind).Inc()
}

// IncrementTerminalActions records one dispatched terminal action.
func (m *Metrics) IncrementTerminalActions(kind string) {
	m.TerminalActions.WithLabelValues(kind).Inc()
}
