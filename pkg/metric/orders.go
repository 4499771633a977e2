package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ Orders = (*orderMetrics)(nil)

type orderMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	overrides  prometheus.Counter
	exported   prometheus.Counter
}

func newOrderMetrics(auto promauto.Factory) *orderMetrics {
	return &orderMetrics{
		operations: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "orders",
			Name:      "operations_total",
			Help:      "Order engine operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		duration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: _namespace,
			Subsystem: "orders",
			Name:      "operation_duration_seconds",
			Help:      "Order engine operation duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1, 2.5},
		}, []string{"operation"}),
		overrides: auto.NewCounter(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "orders",
			Name:      "payment_overrides_total",
			Help:      "Orders stored with an operator-entered payment amount.",
		}),
		exported: auto.NewCounter(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "orders",
			Name:      "export_rows_total",
			Help:      "Order rows written to spreadsheet exports.",
		}),
	}
}

func (m *orderMetrics) Operation(operation, outcome string, duration time.Duration) {
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *orderMetrics) PaymentOverridden() {
	m.overrides.Inc()
}

func (m *orderMetrics) RowsExported(n int) {
	m.exported.Add(float64(n))
}
