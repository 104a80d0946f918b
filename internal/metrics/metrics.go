package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	syncAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stridesync",
			Name:      "sync_attempts_total",
			Help:      "Sync operations by operation and result.",
		},
		[]string{"operation", "result"},
	)

	retryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stridesync",
			Name:      "retry_attempts_total",
			Help:      "Background replay attempts by operation.",
		},
		[]string{"operation"},
	)

	pendingOps = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stridesync",
			Name:      "pending_operations",
			Help:      "Current depth of the pending-operation queue.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(syncAttempts, retryAttempts, pendingOps)
	})
}

// IncSyncAttempt counts a completed sync operation by outcome.
func IncSyncAttempt(operation, result string) {
	syncAttempts.WithLabelValues(operation, result).Inc()
}

// IncRetry counts a background replay attempt.
func IncRetry(operation string) {
	retryAttempts.WithLabelValues(operation).Inc()
}

// SetPendingOperations records the queue depth for UI/alerting.
func SetPendingOperations(n int) {
	pendingOps.Set(float64(n))
}
