package health

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HealthMetrics holds Prometheus metrics for health checks.
type HealthMetrics struct {
	checksTotal   *prometheus.CounterVec
	checkStatus   *prometheus.GaugeVec
	checkDuration *prometheus.HistogramVec
}

var (
	healthMetricsInstance *HealthMetrics
	healthMetricsOnce     sync.Once
)

// GetHealthMetrics returns the singleton health metrics instance.
func GetHealthMetrics() *HealthMetrics {
	healthMetricsOnce.Do(func() {
		healthMetricsInstance = &HealthMetrics{
			checksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "gateway",
					Subsystem: "health",
					Name:      "checks_total",
					Help:      "Total number of readiness checks performed",
				},
				[]string{"check", "status"},
			),
			checkStatus: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "gateway",
					Subsystem: "health",
					Name:      "check_status",
					Help:      "Last readiness check result (1=healthy, 0=unhealthy)",
				},
				[]string{"check"},
			),
			checkDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "gateway",
					Subsystem: "health",
					Name:      "check_duration_seconds",
					Help:      "Duration of readiness checks",
					Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 2},
				},
				[]string{"check"},
			),
		}
	})
	return healthMetricsInstance
}

// RecordHealthCheck records the outcome of a single check.
func RecordHealthCheck(name string, healthy bool, durationSeconds float64) {
	m := GetHealthMetrics()
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.checkStatus.WithLabelValues(name).Set(value)
	m.checkDuration.WithLabelValues(name).Observe(durationSeconds)
}
