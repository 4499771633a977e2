package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"orderdesk/internal/auth"
	"orderdesk/internal/config"
	"orderdesk/internal/entity"
	"orderdesk/internal/export"
	"orderdesk/internal/repository"
	"orderdesk/internal/service"
	httpt "orderdesk/internal/transport/http"
	kafkat "orderdesk/internal/transport/kafka"
	"orderdesk/internal/validation"
	"orderdesk/migrations"
	"orderdesk/pkg/cache"
	"orderdesk/pkg/kafka"
	"orderdesk/pkg/kafka/dlq"
	"orderdesk/pkg/logger"
	"orderdesk/pkg/metric"
	"orderdesk/pkg/storage/postgres"
	"orderdesk/pkg/storage/postgres/transaction"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const _ordersCacheName = "orders"

func Run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	eg, ctx := errgroup.WithContext(ctx)

	metrics := initMetrics(ctx, eg, &cfg.Metrics, log)

	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(&cfg.Postgres, migrations.FS, ".", postgres.Up,
			log.With("component", "migrate")); err != nil {
			return fmt.Errorf("app.Run: %w", err)
		}
	}

	db, dbErr := initDatabase(&cfg.Postgres, log)
	if dbErr != nil {
		return dbErr
	}
	defer closeDB(db)

	txManager, txErr := initTransactionManager(&cfg.Postgres.Tx, db, log, metrics)
	if txErr != nil {
		return txErr
	}

	orderCache, cacheErr := initCache(&cfg.Cache, log, metrics)
	if cacheErr != nil {
		return cacheErr
	}
	defer stopCache(orderCache)

	guard, err := auth.NewGuard(cfg.Auth.AccessKey, cfg.Auth.SessionTTL)
	if err != nil {
		return fmt.Errorf("app.Run: %w", err)
	}

	validator, err := validation.New()
	if err != nil {
		return fmt.Errorf("app.Run: %w", err)
	}

	exporter, err := export.New(cfg.Export.Timezone, metrics.Orders())
	if err != nil {
		return fmt.Errorf("app.Run: %w", err)
	}

	orderService := service.NewOrderService(
		repository.NewOrderRepository(db),
		txManager,
		log.With("component", "order service"),
		orderCache,
		cfg.Cache.TTL,
		metrics.Orders(),
		validator,
	)

	if err = orderService.RestoreCache(ctx); err != nil {
		log.Errorw("failed to restore cache from database", "error", err)
	}

	initHTTPServer(ctx, eg, cfg, orderService, guard, validator, exporter, log, metrics)

	if cfg.Kafka.Enabled {
		if kafkaErr := initKafkaComponents(ctx, eg, cfg, orderService, guard, log, metrics); kafkaErr != nil {
			return kafkaErr
		}
	} else {
		log.Infow("kafka intake disabled")
	}

	return waitForShutdown(eg)
}

func initMetrics(
	ctx context.Context,
	eg *errgroup.Group,
	cfg *config.Metrics,
	log logger.Logger,
) metric.Factory {
	metrics := metric.NewFactory()

	metricsServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           metrics.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	eg.Go(func() error {
		log.Infow("starting metrics server", "port", cfg.Port)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app.initMetrics: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.WriteTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app.initMetrics: shutdown: %w", err)
		}
		return nil
	})

	return metrics
}

func initDatabase(cfg *config.Postgres, log logger.Logger) (*postgres.Postgres, error) {
	db, err := postgres.NewPostgres(cfg, log.With("component", "database"), postgres.FromConfig(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("app.initDatabase: %w", err)
	}
	return db, nil
}

func closeDB(db *postgres.Postgres) {
	if db != nil {
		db.Close()
	}
}

func initTransactionManager(
	cfg *config.Tx,
	db *postgres.Postgres,
	log logger.Logger,
	metrics metric.Factory,
) (transaction.Manager, error) {
	opts, err := transaction.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("app.initTransactionManager: %w", err)
	}

	txManager, err := transaction.NewManager(
		db,
		log.With("component", "transaction manager"),
		metrics.Transaction(),
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("app.initTransactionManager: %w", err)
	}
	return txManager, nil
}

func initCache(
	cfg *config.Cache,
	log logger.Logger,
	metrics metric.Factory,
) (cache.Cache[uuid.UUID, *entity.Order], error) {
	orderCache, err := cache.NewLRUCache[uuid.UUID, *entity.Order](
		cfg.Capacity,
		log.With("component", "cache"),
		metrics.Cache(),
		cache.WithName(_ordersCacheName),
	)
	if err != nil {
		return nil, fmt.Errorf("app.initCache: %w", err)
	}
	orderCache.StartCleanup(cfg.CleanupInterval)
	return orderCache, nil
}

func stopCache(orderCache cache.Cache[uuid.UUID, *entity.Order]) {
	if orderCache != nil {
		orderCache.StopCleanup()
	}
}

func initHTTPServer(
	ctx context.Context,
	eg *errgroup.Group,
	cfg *config.Config,
	orderService *service.OrderService,
	guard *auth.Guard,
	validator *validation.Validator,
	exporter *export.Exporter,
	log logger.Logger,
	metrics metric.Factory,
) {
	handler := httpt.NewOrderHandler(
		orderService,
		guard,
		validator,
		exporter,
		log.With("component", "http handler"),
		metrics.HTTP(),
		httpt.WithCORS(cfg.CORS),
		httpt.WithRequestTimeout(cfg.HTTP.RequestTimeout),
	)

	httpServer := httpt.NewHTTPServer(handler.Engine(), &cfg.HTTP, log.With("component", "http server"))

	eg.Go(func() error {
		return httpServer.Start(ctx)
	})
}

func initKafkaComponents(
	ctx context.Context,
	eg *errgroup.Group,
	cfg *config.Config,
	orderService *service.OrderService,
	guard *auth.Guard,
	log logger.Logger,
	metrics metric.Factory,
) error {
	const op = "app.initKafkaComponents"

	orderReader, err := kafka.NewKafkaReader(
		cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID,
		log.With("component", "kafka reader"),
	)
	if err != nil {
		return fmt.Errorf("%s: order reader creation: %w", op, err)
	}

	dlqReader, err := kafka.NewKafkaReader(
		cfg.DLQ.Brokers, cfg.DLQ.Topic, cfg.DLQ.GroupID,
		log.With("component", "dlq reader"),
	)
	if err != nil {
		return errors.Join(
			fmt.Errorf("%s: dlq reader creation: %w", op, err),
			orderReader.Close(),
		)
	}

	deadLetterQueue, err := dlq.NewDLQ(
		cfg.DLQ,
		log.With("component", "dlq"),
		metrics.DLQ(),
		dlq.WithBackoff(dlq.Backoff{
			MaxAttempts: cfg.DLQ.MaxRetryCount,
			Base:        cfg.DLQ.RetryDelay,
			Max:         cfg.DLQ.MaxRetryDelay,
		}),
	)
	if err != nil {
		return errors.Join(
			fmt.Errorf("%s: dead letter queue creation: %w", op, err),
			orderReader.Close(),
			dlqReader.Close(),
		)
	}

	intake := kafkat.NewIntake(orderService, guard, log.With("component", "kafka intake"))

	orderConsumer := kafkat.NewOrderConsumer(
		orderReader,
		deadLetterQueue,
		intake,
		metrics.Kafka(),
		log.With("component", "order consumer"),
	)
	eg.Go(func() error {
		return orderConsumer.Start(ctx)
	})

	dlqProcessor := kafkat.NewDLQProcessor(
		dlqReader,
		deadLetterQueue,
		intake,
		metrics.Kafka(),
		cfg.DLQ.MaxRetryCount,
		cfg.DLQ.PollInterval,
		log.With("component", "dlq processor"),
		kafkat.WithBatchSize(cfg.DLQ.BatchSize),
	)
	eg.Go(func() error {
		defer func() {
			if err := deadLetterQueue.Close(); err != nil {
				log.Warnw("failed to close dlq writer", "error", err)
			}
		}()
		return dlqProcessor.Start(ctx)
	})

	return nil
}

func waitForShutdown(eg *errgroup.Group) error {
	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("app.waitForShutdown: application failed: %w", err)
	}
	return nil
}
