package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ Kafka = (*kafkaMetrics)(nil)

type kafkaMetrics struct {
	processed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	lag       *prometheus.GaugeVec
}

func newKafkaMetrics(auto promauto.Factory) *kafkaMetrics {
	return &kafkaMetrics{
		processed: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "intake",
			Name:      "orders_stored_total",
			Help:      "Order messages turned into stored orders.",
		}, []string{"topic", "partition"}),
		failed: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "intake",
			Name:      "orders_failed_total",
			Help:      "Order messages that could not be stored, by reason.",
		}, []string{"topic", "partition", "reason"}),
		lag: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: _namespace,
			Subsystem: "intake",
			Name:      "consumer_lag",
			Help:      "Messages between the last fetched offset and the high water mark.",
		}, []string{"topic", "partition"}),
	}
}

func (m *kafkaMetrics) MessageProcessed(topic string, partition int) {
	m.processed.WithLabelValues(topic, strconv.Itoa(partition)).Inc()
}

func (m *kafkaMetrics) MessageFailed(topic string, partition int, reason string) {
	m.failed.WithLabelValues(topic, strconv.Itoa(partition), reason).Inc()
}

func (m *kafkaMetrics) ConsumerGroupLag(topic string, partition int, lag int64) {
	m.lag.WithLabelValues(topic, strconv.Itoa(partition)).Set(float64(max(lag, 0)))
}
