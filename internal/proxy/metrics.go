package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// proxyMetrics contains Prometheus metrics for upstream forwarding.
type proxyMetrics struct {
	upstreamRequests *prometheus.CounterVec
	upstreamErrors   *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec
}

// newProxyMetrics registers the proxy metrics with registerer. A nil
// registerer uses a private registry that is never exported.
func newProxyMetrics(registerer prometheus.Registerer) *proxyMetrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)

	return &proxyMetrics{
		upstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "proxy",
				Name:      "upstream_requests_total",
				Help:      "Total number of upstream responses by status code",
			},
			[]string{"service", "status"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "proxy",
				Name:      "upstream_errors_total",
				Help:      "Total number of failed upstream requests by reason",
			},
			[]string{"service", "reason"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gateway",
				Subsystem: "proxy",
				Name:      "upstream_duration_seconds",
				Help:      "Time until upstream response headers were received",
				Buckets: []float64{
					.001, .005, .01, .025,
					.05, .1, .25, .5,
					1, 2.5, 5, 10,
				},
			},
			[]string{"service"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "gateway",
				Subsystem: "proxy",
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state per service (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
	}
}

// initServiceLabels pre-populates the error series of a service so they
// appear in /metrics before the first failure.
func (m *proxyMetrics) initServiceLabels(service string) {
	for _, reason := range []string{
		ReasonTimeout,
		ReasonConnectionRefused,
		ReasonDNS,
		ReasonCircuitOpen,
		ReasonCanceled,
		ReasonOther,
	} {
		m.upstreamErrors.WithLabelValues(service, reason)
	}
	m.upstreamDuration.WithLabelValues(service)
}
