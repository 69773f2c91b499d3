package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	LookupsTotal    *prometheus.CounterVec
	UpstreamErrors  *prometheus.CounterVec
}

// NewMetrics creates metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_tracking_requests_total",
				Help: "Total number of requests by endpoint and HTTP status",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "order_tracking_request_duration_seconds",
				Help:    "Request duration in seconds by endpoint",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_tracking_lookups_total",
				Help: "Order lookup attempts by strategy and outcome (hit, miss, error)",
			},
			[]string{"strategy", "outcome"},
		),
		UpstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_tracking_upstream_errors_total",
				Help: "Upstream order store failures by operation and HTTP status",
			},
			[]string{"operation", "status"},
		),
	}
}

// RecordRequest records a request metric.
func (m *Metrics) RecordRequest(endpoint string, status int, duration float64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordLookup records the outcome of one lookup strategy.
func (m *Metrics) RecordLookup(strategy, outcome string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(strategy, outcome).Inc()
}

// RecordUpstreamError records an upstream failure.
func (m *Metrics) RecordUpstreamError(operation string, status int) {
	if m == nil {
		return
	}
	m.UpstreamErrors.WithLabelValues(operation, strconv.Itoa(status)).Inc()
}
