package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ DLQ = (*dlqMetrics)(nil)

type dlqMetrics struct {
	sent     *prometheus.CounterVec
	attempts *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

func newDLQMetrics(auto promauto.Factory) *dlqMetrics {
	return &dlqMetrics{
		sent: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "dead_letter",
			Name:      "messages_total",
			Help:      "Order messages parked on the dead letter topic.",
		}, []string{"dlq_topic", "original_topic"}),
		attempts: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: _namespace,
			Subsystem: "dead_letter",
			Name:      "attempts",
			Help:      "Processing attempts a message had used when it was parked.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}, []string{"original_topic"}),
		failures: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "dead_letter",
			Name:      "failures_total",
			Help:      "Messages that could not be parked, by reason.",
		}, []string{"dlq_topic", "reason"}),
	}
}

func (m *dlqMetrics) DLSent(dlqTopic, originalTopic string, retryCount int) {
	m.sent.WithLabelValues(dlqTopic, originalTopic).Inc()
	m.attempts.WithLabelValues(originalTopic).Observe(float64(retryCount))
}

func (m *dlqMetrics) DLError(dlqTopic, reason string) {
	m.failures.WithLabelValues(dlqTopic, reason).Inc()
}
