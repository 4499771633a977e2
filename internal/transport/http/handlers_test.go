package httpt_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"orderdesk/internal/auth"
	"orderdesk/internal/entity"
	"orderdesk/internal/export"
	httpt "orderdesk/internal/transport/http"
	mock_httpt "orderdesk/internal/transport/http/mock"
	"orderdesk/internal/validation"
	mock_logger "orderdesk/pkg/logger/mock"
	mock_metric "orderdesk/pkg/metric/mock"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const _accessKey = "isopods-all-the-way"

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router  *gin.Engine
	svc     *mock_httpt.MockOrderService
	metrics *mock_metric.MockOrders
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	log := mock_logger.NewMockLogger(ctrl)
	log.EXPECT().Ctx(gomock.Any()).Return(log).AnyTimes()
	log.EXPECT().GenerateRequestID().Return("req-1").AnyTimes()
	log.EXPECT().WithRequestID(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string) context.Context { return ctx }).AnyTimes()
	log.EXPECT().LogAttrs(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	httpMetrics := mock_metric.NewMockHTTP(ctrl)
	httpMetrics.EXPECT().Request(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	httpMetrics.EXPECT().SlowRequest(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	orderMetrics := mock_metric.NewMockOrders(ctrl)

	guard, err := auth.NewGuard(_accessKey, time.Hour)
	require.NoError(t, err)

	v, err := validation.New()
	require.NoError(t, err)

	exporter, err := export.New("Asia/Kolkata", orderMetrics)
	require.NoError(t, err)

	svc := mock_httpt.NewMockOrderService(ctrl)
	h := httpt.NewOrderHandler(svc, guard, v, exporter, log, httpMetrics)

	return &fixture{router: h.Engine(), svc: svc, metrics: orderMetrics}
}

func (f *fixture) do(t *testing.T, method, path string, body any, key string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func validInput() entity.OrderInput {
	return entity.OrderInput{
		CustomerDetails: entity.CustomerDetails{
			CustomerName: "Asha Rao",
			Phone:        "987-654-3210",
			Address:      "12 Lake Road, Pune",
		},
		Items: []entity.OrderItem{{Name: "Isopod Culture", Quantity: 3, Price: 250}},
		ShippingDetails: entity.ShippingDetails{
			ShippingCharges: 50,
		},
	}
}

func storedOrder(t *testing.T) *entity.Order {
	t.Helper()

	order, err := entity.NewOrder(validInput())
	require.NoError(t, err)
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt

	return order
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}

func TestAuthMiddleware(t *testing.T) {
	testCases := []struct {
		desc string
		key  string
	}{
		{desc: "MissingKey", key: ""},
		{desc: "WrongKey", key: "not-the-key"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			f := newFixture(t)

			rec := f.do(t, http.MethodGet, "/api/orders", nil, tc.key)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			body := decode[httpt.ErrorResponse](t, rec)
			assert.Equal(t, "Unauthorized", body.Error)
			assert.Equal(t, "Invalid or missing access key. Please authenticate first.", body.Message)
		})
	}
}

func TestVerifyAuth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/verify", httpt.AuthRequest{Key: _accessKey}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	ok := decode[httpt.AuthResponse](t, rec)
	assert.True(t, ok.Success)
	assert.Equal(t, "Authentication successful", ok.Message)
	assert.NotNil(t, ok.ExpiresAt)

	rec = f.do(t, http.MethodPost, "/api/auth/verify", httpt.AuthRequest{Key: "nope"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	bad := decode[httpt.AuthResponse](t, rec)
	assert.False(t, bad.Success)
	assert.Equal(t, "Invalid access key", bad.Message)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	order := storedOrder(t)

	f.svc.EXPECT().ListOrders(gomock.Any(), entity.OrderFilter{Query: "isopod"}).
		DoAndReturn(func(ctx context.Context, _ entity.OrderFilter) ([]entity.Order, error) {
			session, err := auth.Require(ctx)
			require.NoError(t, err)
			assert.Equal(t, "operator", session.Subject)
			return []entity.Order{*order}, nil
		})

	rec := f.do(t, http.MethodGet, "/api/orders?status=all&q=isopod", nil, _accessKey)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[httpt.OrdersResponse](t, rec)
	require.Len(t, body.Orders, 1)
	assert.Equal(t, order.ID, body.Orders[0].ID)
	assert.Equal(t, 800.0, body.Orders[0].PaymentAmount.Value())
}

func TestListOrders_EmptyIsArray(t *testing.T) {
	f := newFixture(t)
	f.svc.EXPECT().ListOrders(gomock.Any(), entity.OrderFilter{Status: entity.StatusShipped}).Return(nil, nil)

	rec := f.do(t, http.MethodGet, "/api/orders?status=Shipped", nil, _accessKey)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"orders":[]}`, rec.Body.String())
}

func TestCreateOrder(t *testing.T) {
	testCases := []struct {
		desc       string
		mock       func(f *fixture, order *entity.Order)
		wantStatus int
		wantError  string
	}{
		{
			desc: "Created",
			mock: func(f *fixture, order *entity.Order) {
				f.svc.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(order, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			desc: "MissingRequiredFields",
			mock: func(f *fixture, _ *entity.Order) {
				f.svc.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, &entity.ValidationError{
					Reason: entity.ErrMissingRequiredFields,
					Fields: entity.FieldErrors{"phone": "missing"},
				})
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing required fields: customer_name, phone, address",
		},
		{
			desc: "NoItems",
			mock: func(f *fixture, _ *entity.Order) {
				f.svc.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, &entity.ValidationError{
					Reason: entity.ErrNoItems,
					Fields: entity.FieldErrors{"items": "At least one item is required"},
				})
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "At least one item is required",
		},
		{
			desc: "PersistenceFailure",
			mock: func(f *fixture, _ *entity.Order) {
				f.svc.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, &entity.PersistenceError{
					Op:      "repository.Create",
					Code:    "23514",
					Message: "new row violates check constraint",
					Hint:    "check shipping_charges",
				})
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to create order",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			f := newFixture(t)
			order := storedOrder(t)
			tc.mock(f, order)

			rec := f.do(t, http.MethodPost, "/api/orders", validInput(), _accessKey)

			require.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantError == "" {
				body := decode[httpt.OrderResponse](t, rec)
				assert.Equal(t, "Order created successfully", body.Message)
				assert.Equal(t, order.ID, body.Order.ID)
				return
			}

			body := decode[httpt.ErrorResponse](t, rec)
			assert.Equal(t, tc.wantError, body.Error)
		})
	}
}

func TestCreateOrder_PersistenceDetails(t *testing.T) {
	f := newFixture(t)
	f.svc.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, &entity.PersistenceError{
		Code:    "23514",
		Message: "new row violates check constraint",
		Hint:    "check shipping_charges",
	})

	rec := f.do(t, http.MethodPost, "/api/orders", validInput(), _accessKey)

	body := decode[httpt.ErrorResponse](t, rec)
	assert.Equal(t, "23514", body.Code)
	assert.Equal(t, "new row violates check constraint", body.Details)
	assert.Equal(t, "check shipping_charges", body.Hint)
}

func TestReplaceOrder_ConstraintViolationKeepsDiagnostics(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	f.svc.EXPECT().ReplaceOrder(gomock.Any(), id, gomock.Any()).Return(nil, fmt.Errorf(
		"service.ReplaceOrder: %w",
		&entity.PersistenceError{
			Op:      "repository.order.Replace",
			Code:    "23514",
			Message: `new row for relation "orders" violates check constraint "orders_status_check"`,
			Hint:    "status must be one of pending, shipped, delivered, cancelled",
			Kind:    entity.ErrInvalidData,
		},
	))

	rec := f.do(t, http.MethodPut, "/api/orders/"+id.String(), validInput(), _accessKey)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[httpt.ErrorResponse](t, rec)
	assert.Equal(t, "23514", body.Code)
	assert.Contains(t, body.Details, "orders_status_check")
	assert.Equal(t, "status must be one of pending, shipped, delivered, cancelled", body.Hint)
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+_accessKey)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)
	order := storedOrder(t)
	missing := uuid.New()

	f.svc.EXPECT().GetOrder(gomock.Any(), order.ID).Return(order, nil)
	f.svc.EXPECT().GetOrder(gomock.Any(), missing).Return(nil, entity.ErrDataNotFound)

	rec := f.do(t, http.MethodGet, "/api/orders/"+order.ID.String(), nil, _accessKey)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/orders/"+missing.String(), nil, _accessKey)
	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[httpt.ErrorResponse](t, rec)
	assert.Equal(t, "Order not found", body.Error)
	assert.Equal(t, "Order with ID "+missing.String()+" does not exist", body.Message)

	rec = f.do(t, http.MethodGet, "/api/orders/not-a-uuid", nil, _accessKey)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReplaceOrder(t *testing.T) {
	f := newFixture(t)
	order := storedOrder(t)

	f.svc.EXPECT().ReplaceOrder(gomock.Any(), order.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, in entity.OrderInput) (*entity.Order, error) {
			assert.Equal(t, "Asha Rao", in.CustomerName)
			return order, nil
		})

	rec := f.do(t, http.MethodPut, "/api/orders/"+order.ID.String(), validInput(), _accessKey)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[httpt.OrderResponse](t, rec)
	assert.Equal(t, "Order updated successfully", body.Message)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	order := storedOrder(t)

	f.svc.EXPECT().UpdateStatus(gomock.Any(), order.ID, "shipped").Return(order, nil)
	f.svc.EXPECT().UpdateStatus(gomock.Any(), order.ID, "lost").Return(nil, &entity.ValidationError{
		Reason: entity.ErrInvalidStatus,
		Fields: entity.FieldErrors{"status": "unknown"},
	})

	rec := f.do(t, http.MethodPatch, "/api/orders/"+order.ID.String(), httpt.StatusRequest{Status: "shipped"}, _accessKey)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order status updated successfully", decode[httpt.OrderResponse](t, rec).Message)

	rec = f.do(t, http.MethodPatch, "/api/orders/"+order.ID.String(), httpt.StatusRequest{Status: "lost"}, _accessKey)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[httpt.ErrorResponse](t, rec)
	assert.Equal(t, "Invalid status", body.Error)
	assert.Equal(t, "Status must be one of: pending, shipped, delivered, cancelled", body.Message)
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()

	f.svc.EXPECT().DeleteOrder(gomock.Any(), id).
		Return(entity.DeletedOrder{ID: id, CustomerName: "Asha Rao"}, nil)

	rec := f.do(t, http.MethodDelete, "/api/orders/"+id.String(), nil, _accessKey)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "Order deleted successfully", body["message"])
	assert.Equal(t, id.String(), body["deletedOrderId"])
	assert.Equal(t, "Asha Rao", body["deletedCustomer"])
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.svc.EXPECT().Stats(gomock.Any()).Return(entity.Stats{Total: 3, Pending: 2, Shipped: 1, Revenue: 1250}, nil)

	rec := f.do(t, http.MethodGet, "/api/orders/stats", nil, _accessKey)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[entity.Stats](t, rec)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 1250.0, body.Revenue)
}

func TestValidateDraft(t *testing.T) {
	testCases := []struct {
		desc      string
		step      string
		mutate    func(in *entity.OrderInput)
		wantValid bool
		wantNext  string
		wantField string
	}{
		{desc: "CustomerPasses", step: "customer", wantValid: true, wantNext: "Items"},
		{
			desc:      "CustomerBadPhone",
			step:      "1",
			mutate:    func(in *entity.OrderInput) { in.Phone = "123" },
			wantNext:  "Customer",
			wantField: "phone",
		},
		{
			desc:      "ItemsBadQuantity",
			step:      "items",
			mutate:    func(in *entity.OrderInput) { in.Items[0].Quantity = 0 },
			wantNext:  "Items",
			wantField: "items[0].quantity",
		},
		{desc: "ShippingIsFinal", step: "shipping", wantValid: true, wantNext: "Shipping"},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			f := newFixture(t)
			in := validInput()
			if tc.mutate != nil {
				tc.mutate(&in)
			}

			rec := f.do(t, http.MethodPost, "/api/orders/draft/validate",
				httpt.DraftRequest{Step: tc.step, Order: in}, _accessKey)

			require.Equal(t, http.StatusOK, rec.Code)
			body := decode[httpt.DraftResponse](t, rec)
			assert.Equal(t, tc.wantValid, body.Valid)
			assert.Equal(t, tc.wantNext, body.Next)
			if tc.wantField != "" {
				assert.Contains(t, body.Errors, tc.wantField)
			}
		})
	}
}

func TestValidateDraft_UnknownStep(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/orders/draft/validate",
		httpt.DraftRequest{Step: "payment", Order: validInput()}, _accessKey)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportOrders(t *testing.T) {
	f := newFixture(t)
	order := storedOrder(t)

	f.svc.EXPECT().ListOrders(gomock.Any(), entity.OrderFilter{}).Return([]entity.Order{*order}, nil)
	f.metrics.EXPECT().RowsExported(1)

	rec := f.do(t, http.MethodGet, "/api/orders/export?status=pending", nil, _accessKey)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "isopod_orders_")
	assert.NotZero(t, rec.Body.Len())
}

func TestExportOrders_FilteredEmpty(t *testing.T) {
	f := newFixture(t)

	f.svc.EXPECT().ListOrders(gomock.Any(), entity.OrderFilter{Status: entity.StatusDelivered}).Return(nil, nil)

	rec := f.do(t, http.MethodGet, "/api/orders/export?scope=filtered&status=delivered", nil, _accessKey)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No orders to export with current filters", decode[httpt.ErrorResponse](t, rec).Error)
}
