package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ Transaction = (*transactionMetrics)(nil)

type transactionMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

func newTransactionMetrics(auto promauto.Factory) *transactionMetrics {
	return &transactionMetrics{
		duration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: _namespace,
			Subsystem: "db",
			Name:      "transaction_duration_seconds",
			Help:      "Order store transaction duration in seconds, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"operation"}),
		outcomes: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "db",
			Name:      "transaction_events_total",
			Help:      "Transaction retries and final failures by operation.",
		}, []string{"operation", "event"}),
	}
}

func (m *transactionMetrics) ObserveDuration(operation string, duration time.Duration) {
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *transactionMetrics) IncrementRetries(operation string) {
	m.outcomes.WithLabelValues(operation, "retry").Inc()
}

func (m *transactionMetrics) IncrementFailures(operation string) {
	m.outcomes.WithLabelValues(operation, "failure").Inc()
}
