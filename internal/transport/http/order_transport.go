package httpt

import (
	"context"
	"time"

	"orderdesk/internal/auth"
	"orderdesk/internal/config"
	"orderdesk/internal/entity"
	"orderdesk/internal/export"
	"orderdesk/internal/validation"
	"orderdesk/pkg/logger"
	"orderdesk/pkg/metric"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//go:generate mockgen -source=order_transport.go -destination=mock/order_transport.go -package=mock_httpt

const (
	_defaultRequestTimeout = 3 * time.Second
	_slowRequestThreshold  = 200 * time.Millisecond
)

type (
	OrderService interface {
		ListOrders(ctx context.Context, filter entity.OrderFilter) ([]entity.Order, error)
		GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error)
		CreateOrder(ctx context.Context, in entity.OrderInput) (*entity.Order, error)
		ReplaceOrder(ctx context.Context, id uuid.UUID, in entity.OrderInput) (*entity.Order, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*entity.Order, error)
		DeleteOrder(ctx context.Context, id uuid.UUID) (entity.DeletedOrder, error)
		Stats(ctx context.Context) (entity.Stats, error)
	}

	Authenticator interface {
		Login(key string) (auth.Session, error)
	}
)

type (
	OrderHandler struct {
		svc       OrderService
		guard     Authenticator
		validator *validation.Validator
		exporter  *export.Exporter
		log       logger.Logger
		metrics   metric.HTTP
		router    *gin.Engine

		cors           config.CORS
		requestTimeout time.Duration
	}

	Option func(*OrderHandler)
)

func WithCORS(cfg config.CORS) Option {
	return func(h *OrderHandler) {
		h.cors = cfg
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(h *OrderHandler) {
		h.requestTimeout = timeout
	}
}

func NewOrderHandler(
	svc OrderService,
	guard Authenticator,
	validator *validation.Validator,
	exporter *export.Exporter,
	log logger.Logger,
	metrics metric.HTTP,
	opts ...Option,
) *OrderHandler {
	h := &OrderHandler{
		svc:       svc,
		guard:     guard,
		validator: validator,
		exporter:  exporter,
		log:       log,
		metrics:   metrics,

		requestTimeout: _defaultRequestTimeout,
	}

	for _, opt := range opts {
		opt(h)
	}

	router := gin.New()

	router.Use(h.requestIDMiddleware())
	router.Use(h.loggingMiddleware())
	router.Use(gin.Recovery())
	if len(h.cors.AllowOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     h.cors.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           h.cors.MaxAge,
		}))
	}

	h.router = router

	h.setupRoutes()

	return h
}

func (h *OrderHandler) Engine() *gin.Engine {
	return h.router
}
