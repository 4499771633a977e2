package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ Cache = (*cacheMetrics)(nil)

type cacheMetrics struct {
	lookups   *prometheus.CounterVec
	evictions *prometheus.CounterVec
	entries   *prometheus.GaugeVec
}

func newCacheMetrics(auto promauto.Factory) *cacheMetrics {
	return &cacheMetrics{
		lookups: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by cache name and result (hit or miss).",
		}, []string{"cache", "result"}),
		evictions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Entries dropped from the cache by reason.",
		}, []string{"cache", "reason"}),
		entries: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: _namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Entries currently held.",
		}, []string{"cache"}),
	}
}

func (m *cacheMetrics) Hit(name string) {
	m.lookups.WithLabelValues(name, "hit").Inc()
}

func (m *cacheMetrics) Miss(name string) {
	m.lookups.WithLabelValues(name, "miss").Inc()
}

func (m *cacheMetrics) Eviction(name, reason string) {
	m.evictions.WithLabelValues(name, reason).Inc()
}

func (m *cacheMetrics) Size(name string, size int) {
	m.entries.WithLabelValues(name).Set(float64(size))
}
