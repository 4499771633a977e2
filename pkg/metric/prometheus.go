package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const _namespace = "orderdesk"

var _ Factory = (*prometheusFactory)(nil)

// prometheusFactory owns a private registry so tests and tools can build
// as many factories as they like without duplicate registration panics.
type prometheusFactory struct {
	registry *prometheus.Registry

	http        *httpMetrics
	transaction *transactionMetrics
	cache       *cacheMetrics
	kafka       *kafkaMetrics
	dlq         *dlqMetrics
	orders      *orderMetrics
}

func NewFactory() Factory {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)

	auto := promauto.With(registry)

	return &prometheusFactory{
		registry:    registry,
		http:        newHTTPMetrics(auto),
		transaction: newTransactionMetrics(auto),
		cache:       newCacheMetrics(auto),
		kafka:       newKafkaMetrics(auto),
		dlq:         newDLQMetrics(auto),
		orders:      newOrderMetrics(auto),
	}
}

func (f *prometheusFactory) HTTP() HTTP               { return f.http }
func (f *prometheusFactory) Transaction() Transaction { return f.transaction }
func (f *prometheusFactory) Cache() Cache             { return f.cache }
func (f *prometheusFactory) Kafka() Kafka             { return f.kafka }
func (f *prometheusFactory) DLQ() DLQ                 { return f.dlq }
func (f *prometheusFactory) Orders() Orders           { return f.orders }

func (f *prometheusFactory) Handler() http.Handler {
	return promhttp.HandlerFor(f.registry, promhttp.HandlerOpts{
		Registry:          f.registry,
		EnableOpenMetrics: true,
	})
}
