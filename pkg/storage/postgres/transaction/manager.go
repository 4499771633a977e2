package transaction

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"orderdesk/pkg/logger"
	"orderdesk/pkg/metric"
	"orderdesk/pkg/storage/postgres"

	"github.com/jackc/pgx/v5"
)

//go:generate mockgen -source=manager.go -destination=mock/manager.go -package=mock_transaction

const (
	_defaultMaxAttempts    = 1
	_defaultBaseRetryDelay = 10 * time.Millisecond
	_defaultMaxRetryDelay  = 100 * time.Millisecond

	_backoffMultiplier = 2
)

type Manager interface {
	ExecuteInTransaction(
		ctx context.Context,
		operation string,
		fn func(tx postgres.QueryExecuter) error,
	) error
}

type manager struct {
	pool    *postgres.Postgres
	log     logger.Logger
	metrics metric.Transaction

	isoLevel       pgx.TxIsoLevel
	maxAttempts    int
	baseRetryDelay time.Duration
	maxRetryDelay  time.Duration
}

// NewManager builds a read committed transaction runner. With the default
// single attempt nothing is retried; MaxAttempts enables retries of
// serialization and connection failures only.
func NewManager(
	pool *postgres.Postgres,
	log logger.Logger,
	metrics metric.Transaction,
	opts ...Option,
) (Manager, error) {
	tm := &manager{
		pool:    pool,
		log:     log,
		metrics: metrics,

		isoLevel:       pgx.ReadCommitted,
		maxAttempts:    _defaultMaxAttempts,
		baseRetryDelay: _defaultBaseRetryDelay,
		maxRetryDelay:  _defaultMaxRetryDelay,
	}

	for _, opt := range opts {
		opt(tm)
	}
	if err := tm.validate(); err != nil {
		return nil, fmt.Errorf("storage.postgres.transaction.NewManager: %w", err)
	}

	return tm, nil
}

func (tm *manager) ExecuteInTransaction(
	ctx context.Context,
	operation string,
	fn func(tx postgres.QueryExecuter) error,
) error {
	const op = "storage.postgres.transaction.ExecuteInTransaction"

	start := time.Now()
	defer func() {
		tm.metrics.ObserveDuration(operation, time.Since(start))
	}()

	err := tm.withRetry(ctx, operation, func() error {
		tx, err := tm.pool.Pool.BeginTx(ctx, pgx.TxOptions{
			IsoLevel:   tm.isoLevel,
			AccessMode: pgx.ReadWrite,
		})
		if err != nil {
			return HandleError(operation, "begin", err)
		}
		defer tm.safelyRollback(ctx, tx, operation)

		if err = fn(&postgres.TxQueryExecuter{Tx: tx}); err != nil {
			return HandleError(operation, "execute", err)
		}

		if err = tx.Commit(ctx); err != nil {
			return HandleError(operation, "commit", err)
		}

		return nil
	})
	if err != nil {
		tm.metrics.IncrementFailures(operation)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (tm *manager) safelyRollback(ctx context.Context, tx pgx.Tx, operation string) {
	const op = "storage.postgres.transaction.safelyRollback"

	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		tm.log.LogAttrs(ctx, logger.ErrorLevel, "rollback failed",
			logger.String("operation", op),
			logger.String("transaction", operation),
			logger.Any("error", err),
		)
	}
}

func (tm *manager) withRetry(ctx context.Context, operation string, fn func() error) error {
	const op = "storage.postgres.transaction.withRetry"

	var lastErr error
	backoff := tm.baseRetryDelay

	for attempt := 1; attempt <= tm.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := min(time.Duration(rand.Int64N(int64(backoff*_backoffMultiplier))), tm.maxRetryDelay)

			tm.log.LogAttrs(ctx, logger.WarnLevel, "retrying transaction",
				logger.String("operation", op),
				logger.String("transaction", operation),
				logger.Int("attempt", attempt),
				logger.Int("max_attempts", tm.maxAttempts),
				logger.String("retry_after", delay.String()),
				logger.Any("error", lastErr),
			)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: context canceled: %w", op, ctx.Err())
			}

			backoff = min(backoff*_backoffMultiplier, tm.maxRetryDelay)
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}

		tm.metrics.IncrementRetries(operation)
		lastErr = err
	}

	if tm.maxAttempts == 1 {
		return lastErr
	}

	return fmt.Errorf("%s: max attempts (%d) exceeded for %s: %w", op, tm.maxAttempts, operation, lastErr)
}
