package metric_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orderdesk/pkg/metric"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, f metric.Factory) string {
	t.Helper()

	rec := httptest.NewRecorder()
	f.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestFactory_Exposition(t *testing.T) {
	f := metric.NewFactory()

	f.HTTP().Request(http.MethodGet, "/api/v1/orders", http.StatusOK, 20*time.Millisecond)
	f.HTTP().SlowRequest(http.MethodPost, "/api/v1/orders", 503, time.Second)
	f.Cache().Hit("orders")
	f.Cache().Miss("orders")
	f.Cache().Eviction("orders", "expired")
	f.Cache().Size("orders", 3)
	f.Kafka().MessageProcessed("orders", 0)
	f.Kafka().MessageFailed("orders", 0, "rejected")
	f.Kafka().ConsumerGroupLag("orders", 0, -1)
	f.DLQ().DLSent("orders-dlq", "orders", 3)
	f.DLQ().DLError("orders-dlq", "write_failed")
	f.Transaction().ObserveDuration("CreateOrder", 5*time.Millisecond)
	f.Transaction().IncrementRetries("CreateOrder")
	f.Orders().Operation("create", "ok", time.Millisecond)
	f.Orders().PaymentOverridden()
	f.Orders().RowsExported(4)

	body := scrape(t, f)

	for _, want := range []string{
		`orderdesk_http_requests_total{class="2xx",method="GET",route="/api/v1/orders"} 1`,
		`orderdesk_http_slow_requests_total{class="5xx",method="POST",route="/api/v1/orders"} 1`,
		`orderdesk_cache_lookups_total{cache="orders",result="hit"} 1`,
		`orderdesk_cache_entries{cache="orders"} 3`,
		`orderdesk_intake_consumer_lag{partition="0",topic="orders"} 0`,
		`orderdesk_dead_letter_failures_total{dlq_topic="orders-dlq",reason="write_failed"} 1`,
		`orderdesk_db_transaction_events_total{event="retry",operation="CreateOrder"} 1`,
		`orderdesk_orders_export_rows_total 4`,
	} {
		assert.Contains(t, body, want)
	}
	assert.NotContains(t, body, `orderdesk_http_request_duration_seconds_count{class="5xx"`)
}

func TestFactory_Independent(t *testing.T) {
	a := metric.NewFactory()
	b := metric.NewFactory()

	a.Orders().PaymentOverridden()

	assert.Contains(t, scrape(t, a), "orderdesk_orders_payment_overrides_total 1")
	assert.Contains(t, scrape(t, b), "orderdesk_orders_payment_overrides_total 0")
}
