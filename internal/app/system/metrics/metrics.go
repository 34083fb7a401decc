// Package metrics exposes Prometheus counters for coordinator operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OperationsTotal counts coordinator operations by name and outcome
	// ("ok" or an error kind).
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackhub_operations_total",
			Help: "Total number of coordinator operations",
		},
		[]string{"operation", "outcome"},
	)
	// OperationDuration is the latency of coordinator operations.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackhub_operation_duration_seconds",
			Help:    "Coordinator operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	// CascadeStepsTotal counts executed cascade steps by plan, step and result.
	CascadeStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackhub_cascade_steps_total",
			Help: "Cascade steps executed, by plan, step and result",
		},
		[]string{"plan", "step", "result"},
	)
)

// Observe records one finished operation.
func Observe(operation, outcome string, started time.Time) {
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
