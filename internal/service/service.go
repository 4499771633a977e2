package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderdesk/internal/auth"
	"orderdesk/internal/entity"
	"orderdesk/internal/validation"
	"orderdesk/pkg/cache"
	"orderdesk/pkg/logger"
	"orderdesk/pkg/metric"
	"orderdesk/pkg/storage/postgres"
	"orderdesk/pkg/storage/postgres/transaction"

	"github.com/google/uuid"
)

const (
	_defaultContextTimeout = 2 * time.Second
	_defaultSlowThreshold  = 200 * time.Millisecond
)

type (
	OrderRepository interface {
		Create(ctx context.Context, order *entity.Order) (*entity.Order, error)
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
		List(ctx context.Context, filter entity.OrderFilter) ([]entity.Order, error)
		Replace(ctx context.Context, id uuid.UUID, order *entity.Order) (*entity.Order, error)
		GetForUpdate(
			ctx context.Context,
			queryExecuter postgres.QueryExecuter,
			id uuid.UUID,
		) (*entity.Order, error)
		UpdateStatus(
			ctx context.Context,
			queryExecuter postgres.QueryExecuter,
			order *entity.Order,
		) (*entity.Order, error)
		Delete(
			ctx context.Context,
			queryExecuter postgres.QueryExecuter,
			id uuid.UUID,
		) (entity.DeletedOrder, error)
	}

	OrderService struct {
		orderRepo OrderRepository
		txManager transaction.Manager
		logger    logger.Logger
		cache     cache.Cache[uuid.UUID, *entity.Order]
		cacheTTL  time.Duration
		metrics   metric.Orders
		validator *validation.Validator

		now           func() time.Time
		timeout       time.Duration
		slowThreshold time.Duration
	}

	Option func(*OrderService)
)

func WithClock(now func() time.Time) Option {
	return func(s *OrderService) {
		s.now = now
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(s *OrderService) {
		s.timeout = timeout
	}
}

func WithSlowThreshold(threshold time.Duration) Option {
	return func(s *OrderService) {
		s.slowThreshold = threshold
	}
}

func NewOrderService(
	orderRepo OrderRepository,
	txManager transaction.Manager,
	log logger.Logger,
	orderCache cache.Cache[uuid.UUID, *entity.Order],
	cacheTTL time.Duration,
	metrics metric.Orders,
	validator *validation.Validator,
	opts ...Option,
) *OrderService {
	orderCache.SetOnEvicted(func(key uuid.UUID, _ *entity.Order) {
		log.Debugw("cache eviction", "order_id", key.String())
	})

	s := &OrderService{
		orderRepo: orderRepo,
		txManager: txManager,
		logger:    log,
		cache:     orderCache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		validator: validator,

		now:           time.Now,
		timeout:       _defaultContextTimeout,
		slowThreshold: _defaultSlowThreshold,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RestoreCache warms the order cache with the newest orders.
func (s *OrderService) RestoreCache(ctx context.Context) error {
	const op = "service.RestoreCache"
	log := s.logger.Ctx(ctx)

	log.LogAttrs(ctx, logger.InfoLevel, "starting cache restoration from database")

	orders, err := s.orderRepo.List(ctx, entity.OrderFilter{})
	if err != nil {
		return fmt.Errorf("%s: list orders: %w", op, err)
	}

	n := min(len(orders), s.cache.Capacity())
	for i := n - 1; i >= 0; i-- {
		order := orders[i]
		s.cache.Put(order.ID, &order, s.cacheTTL)
	}

	log.LogAttrs(ctx, logger.InfoLevel, "cache restoration finished",
		logger.String("op", op),
		logger.Int("total_orders_in_db", len(orders)),
		logger.Int("restored_to_cache", n),
	)

	return nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter entity.OrderFilter) (orders []entity.Order, err error) {
	const op = "service.ListOrders"
	log := s.logger.Ctx(ctx)

	defer s.track(ctx, log, op, time.Now(), &err)

	if err = s.authorize(ctx, op); err != nil {
		return nil, err
	}

	if filter.Status != "" && !filter.Status.Valid() {
		err = invalidStatus(string(filter.Status))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	orders, err = s.orderRepo.List(ctx, filter)
	if err != nil {
		log.LogAttrs(ctx, logger.ErrorLevel, "list orders failed",
			logger.String("op", op),
			logger.Any("error", err),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.LogAttrs(ctx, logger.DebugLevel, "orders listed",
		logger.String("op", op),
		logger.String("status", string(filter.Status)),
		logger.Int("count", len(orders)),
	)

	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (order *entity.Order, err error) {
	const op = "service.GetOrder"
	log := s.logger.Ctx(ctx)

	defer s.track(ctx, log, op, time.Now(), &err)

	if err = s.authorize(ctx, op); err != nil {
		return nil, err
	}

	if cached, found := s.cache.Get(id); found {
		log.LogAttrs(ctx, logger.DebugLevel, "order served from cache",
			logger.String("op", op),
			logger.String("order_id", id.String()),
		)
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, err = s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, entity.ErrDataNotFound) {
			log.LogAttrs(ctx, logger.ErrorLevel, "failed to get order from database",
				logger.String("op", op),
				logger.String("order_id", id.String()),
				logger.Any("error", err),
			)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.cache.Put(order.ID, order, s.cacheTTL)

	return order, nil
}

// CreateOrder validates in at the create boundary and stores a new order.
func (s *OrderService) CreateOrder(ctx context.Context, in entity.OrderInput) (order *entity.Order, err error) {
	const op = "service.CreateOrder"
	log := s.logger.Ctx(ctx)

	defer s.track(ctx, log, op, time.Now(), &err)

	if err = s.authorize(ctx, op); err != nil {
		return nil, err
	}

	log.LogAttrs(ctx, logger.InfoLevel, "create order started",
		logger.String("op", op),
		logger.Int("items_count", len(in.Items)),
	)

	in = entity.Normalize(in)
	if err = s.validator.ValidateForCreate(in); err != nil {
		s.logRejected(ctx, log, op, err)
		return nil, fmt.Errorf("%s: validate: %w", op, err)
	}

	order, err = s.build(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	created, err := s.orderRepo.Create(ctx, order)
	if err != nil {
		log.LogAttrs(ctx, logger.ErrorLevel, "order creation failed",
			logger.String("op", op),
			logger.Any("error", err),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.stored(created)

	log.LogAttrs(ctx, logger.InfoLevel, "order created successfully",
		logger.String("op", op),
		logger.String("order_id", created.ID.String()),
		logger.Int("quantity_total", created.QuantityTotal),
	)

	return created, nil
}

// ReplaceOrder overwrites order id with in. An empty status keeps the
// stored one.
func (s *OrderService) ReplaceOrder(
	ctx context.Context,
	id uuid.UUID,
	in entity.OrderInput,
) (order *entity.Order, err error) {
	const op = "service.ReplaceOrder"
	log := s.logger.Ctx(ctx)

	defer s.track(ctx, log, op, time.Now(), &err)

	if err = s.authorize(ctx, op); err != nil {
		return nil, err
	}

	in = entity.Normalize(in)
	if err = s.validator.ValidateOrder(in); err != nil {
		s.logRejected(ctx, log, op, err)
		return nil, fmt.Errorf("%s: validate: %w", op, err)
	}

	order, err = s.build(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if in.Status == "" {
		order.Status = ""
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	replaced, err := s.orderRepo.Replace(ctx, id, order)
	if err != nil {
		if errors.Is(err, entity.ErrDataNotFound) {
			s.cache.Delete(id)
		} else {
			log.LogAttrs(ctx, logger.ErrorLevel, "order replace failed",
				logger.String("op", op),
				logger.String("order_id", id.String()),
				logger.Any("error", err),
			)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.stored(replaced)

	log.LogAttrs(ctx, logger.InfoLevel, "order replaced",
		logger.String("op", op),
		logger.String("order_id", replaced.ID.String()),
	)

	return replaced, nil
}

// UpdateStatus moves order id to status. An unknown status is rejected
// before the store is touched.
func (s *OrderService) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status string,
) (order *entity.Order, err error) {
	const op = "service.UpdateStatus"
	log := s.logger.Ctx(ctx)

	defer s.track(ctx, log, op, time.Now(), &err)

	if err = s.authorize(ctx, op); err != nil {
		return nil, err
	}

	next, err := entity.ParseStatus(status)
	if err != nil {
		err = invalidStatus(status)
		s.logRejected(ctx, log, op, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.txManager.ExecuteInTransaction(ctx, "UpdateStatus", func(tx postgres.QueryExecuter) error {
		current, err := s.orderRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return transaction.HandleError("UpdateStatus", "lock order", err)
		}

		current.ApplyStatus(next, s.now())

		order, err = s.orderRepo.UpdateStatus(ctx, tx, current)
		if err != nil {
			return transaction.HandleError("UpdateStatus", "write status", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, entity.ErrDataNotFound) {
			s.cache.Delete(id)
		} else {
			log.LogAttrs(ctx, logger.ErrorLevel, "status update failed",
				logger.String("op", op),
				logger.String("order_id", id.String()),
				logger.Any("error", err),
			)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.cache.Put(order.ID, order, s.cacheTTL)

	log.LogAttrs(ctx, logger.InfoLevel, "order status updated",
		logger.String("op", op),
		logger.String("order_id", order.ID.String()),
		logger.String("status", string(order.Status)),
	)

	return order, nil
}

// DeleteOrder removes order id permanently.
func (s *OrderService) DeleteOrder(ctx context.Context, id uuid.UUID) (deleted entity.DeletedOrder, err error) {
	const op = "service.DeleteOrder"
	log := s.logger.Ctx(ctx)

	defer s.track(ctx, log, op, time.Now(), &err)

	if err = s.authorize(ctx, op); err != nil {
		return entity.DeletedOrder{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.txManager.ExecuteInTransaction(ctx, "DeleteOrder", func(tx postgres.QueryExecuter) error {
		var err error
		deleted, err = s.orderRepo.Delete(ctx, tx, id)
		if err != nil {
			return transaction.HandleError("DeleteOrder", "delete order", err)
		}
		return nil
	})

	s.cache.Delete(id)

	if err != nil {
		if !errors.Is(err, entity.ErrDataNotFound) {
			log.LogAttrs(ctx, logger.ErrorLevel, "order delete failed",
				logger.String("op", op),
				logger.String("order_id", id.String()),
				logger.Any("error", err),
			)
		}
		return entity.DeletedOrder{}, fmt.Errorf("%s: %w", op, err)
	}

	log.LogAttrs(ctx, logger.InfoLevel, "order deleted",
		logger.String("op", op),
		logger.String("order_id", deleted.ID.String()),
		logger.String("customer_name", deleted.CustomerName),
	)

	return deleted, nil
}

// Stats summarizes every stored order.
func (s *OrderService) Stats(ctx context.Context) (stats entity.Stats, err error) {
	const op = "service.Stats"
	log := s.logger.Ctx(ctx)

	defer s.track(ctx, log, op, time.Now(), &err)

	if err = s.authorize(ctx, op); err != nil {
		return entity.Stats{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	orders, err := s.orderRepo.List(ctx, entity.OrderFilter{})
	if err != nil {
		return entity.Stats{}, fmt.Errorf("%s: %w", op, err)
	}

	return entity.ComputeStats(orders), nil
}

// build turns a validated input into an order. Creating or replacing an
// order as shipped stamps the sent date like a status change does.
func (s *OrderService) build(in entity.OrderInput) (*entity.Order, error) {
	order, err := entity.NewOrder(in)
	if err != nil {
		return nil, &entity.ValidationError{
			Reason: entity.ErrInvalidData,
			Fields: entity.FieldErrors{"sent_date": err.Error()},
		}
	}

	if order.Status == entity.StatusShipped {
		order.ApplyStatus(entity.StatusShipped, s.now())
	}

	return order, nil
}

func (s *OrderService) stored(order *entity.Order) {
	if order.PaymentAmount.IsOverridden() {
		s.metrics.PaymentOverridden()
	}
	s.cache.Put(order.ID, order, s.cacheTTL)
}

func (s *OrderService) authorize(ctx context.Context, op string) error {
	if _, err := auth.Require(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// logRejected records a caller-correctable failure below error level.
func (s *OrderService) logRejected(ctx context.Context, log logger.Logger, op string, err error) {
	attrs := []logger.Attr{
		logger.String("op", op),
		logger.String("reason", err.Error()),
	}

	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		attrs = append(attrs, logger.Any("fields", verr.Fields.Keys()))
	}

	log.LogAttrs(ctx, logger.InfoLevel, "order validation failed", attrs...)
}

func (s *OrderService) track(ctx context.Context, log logger.Logger, op string, start time.Time, errp *error) {
	duration := time.Since(start)
	s.metrics.Operation(op, outcome(*errp), duration)

	if duration > s.slowThreshold {
		log.LogAttrs(ctx, logger.WarnLevel, "slow service operation",
			logger.String("op", op),
			logger.String("duration", duration.String()),
		)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, entity.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, entity.ErrDataNotFound):
		return "not_found"
	case errors.Is(err, entity.ErrInvalidData):
		return "invalid"
	default:
		return "error"
	}
}

func invalidStatus(status string) error {
	return &entity.ValidationError{
		Reason: entity.ErrInvalidStatus,
		Fields: entity.FieldErrors{
			"status": fmt.Sprintf("unknown status %q: must be one of pending, shipped, delivered, cancelled", status),
		},
	}
}
