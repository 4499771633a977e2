package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ HTTP = (*httpMetrics)(nil)

type httpMetrics struct {
	requests *prometheus.CounterVec
	slow     *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newHTTPMetrics(auto promauto.Factory) *httpMetrics {
	labels := []string{"method", "route", "class"}

	return &httpMetrics{
		requests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Dashboard API requests by method, route and status class.",
		}, labels),
		slow: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: _namespace,
			Subsystem: "http",
			Name:      "slow_requests_total",
			Help:      "Dashboard API requests that crossed the slow threshold.",
		}, labels),
		latency: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: _namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Dashboard API latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, labels),
	}
}

// statusClass buckets a status code as "2xx", "4xx" and so on.
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}
	return strconv.Itoa(status/100) + "xx"
}

func (m *httpMetrics) Request(method, route string, status int, duration time.Duration) {
	class := statusClass(status)
	m.requests.WithLabelValues(method, route, class).Inc()
	m.latency.WithLabelValues(method, route, class).Observe(duration.Seconds())
}

// SlowRequest only counts; Request has already observed the latency.
func (m *httpMetrics) SlowRequest(method, route string, status int, _ time.Duration) {
	m.slow.WithLabelValues(method, route, statusClass(status)).Inc()
}
