// Package metrics exposes Prometheus instrumentation for HTTP and store
// operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every exported collector.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	IngestOutcomesTotal *prometheus.CounterVec
	StoreErrorsTotal    *prometheus.CounterVec
}

// New registers and returns the metric collectors against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "envsensor_gateway_http_requests_total",
			Help: "Total HTTP requests processed, by route, method, and status.",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "envsensor_gateway_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds, by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		IngestOutcomesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "envsensor_gateway_ingest_outcomes_total",
			Help: "Ingest attempts by outcome (new, duplicate, error).",
		}, []string{"outcome"}),
		StoreErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "envsensor_gateway_store_errors_total",
			Help: "Store operation failures by operation and error kind.",
		}, []string{"operation", "kind"}),
	}
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, duration time.Duration) {
	statusStr := http.StatusText(status)
	if statusStr == "" {
		statusStr = "unknown"
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
