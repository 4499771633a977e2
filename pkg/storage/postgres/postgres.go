package postgres

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"net/url"
	"time"

	"orderdesk/internal/config"
	"orderdesk/pkg/logger"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	_defaultMaxPoolSize    = 20
	_defaultConnAttempts   = 10
	_defaultBaseRetryDelay = 100 * time.Millisecond
	_defaultMaxRetryDelay  = 5 * time.Second
	_defaultConnectTimeout = 5 * time.Second

	_backoffMultiplier = 2
)

type Postgres struct {
	Builder squirrel.StatementBuilderType
	Pool    *pgxpool.Pool

	connAttempts   int
	baseRetryDelay time.Duration
	maxRetryDelay  time.Duration
	maxPoolSize    int32
	connectTimeout time.Duration
}

// NewPostgres opens a pool for cfg and pings it, retrying with jittered
// backoff until connAttempts is spent.
func NewPostgres(cfg *config.Postgres, log logger.Logger, opts ...Option) (*Postgres, error) {
	const op = "storage.postgres.NewPostgres"

	pg := &Postgres{
		Builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),

		connAttempts:   _defaultConnAttempts,
		baseRetryDelay: _defaultBaseRetryDelay,
		maxRetryDelay:  _defaultMaxRetryDelay,
		maxPoolSize:    _defaultMaxPoolSize,
		connectTimeout: _defaultConnectTimeout,
	}

	for _, opt := range opts {
		opt(pg)
	}
	if err := pg.validate(); err != nil {
		return nil, fmt.Errorf("%s: validation: %w", op, err)
	}

	poolConfig, err := pgxpool.ParseConfig(DSN("postgres", cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: parse pool config: %w", op, err)
	}
	poolConfig.MaxConns = pg.maxPoolSize
	poolConfig.ConnConfig.ConnectTimeout = pg.connectTimeout

	if err = pg.connect(poolConfig, log); err != nil {
		return nil, fmt.Errorf("%s: create new pool: %w", op, err)
	}

	return pg, nil
}

func (p *Postgres) connect(poolConfig *pgxpool.Config, log logger.Logger) error {
	const op = "storage.postgres.connect"

	var err error
	backoff := p.baseRetryDelay
	for attempt := 1; attempt <= p.connAttempts; attempt++ {
		if err = p.open(poolConfig); err == nil {
			return nil
		}
		if attempt == p.connAttempts {
			break
		}

		wait := time.Duration(rand.Int64N(int64(backoff*_backoffMultiplier))) + 1
		wait = min(wait, p.maxRetryDelay)

		log.Warnw("PostgreSQL connection attempt failed",
			"operation", op,
			"attempt", attempt,
			"retry_after", wait.String(),
			"error", err,
		)

		time.Sleep(wait)
		backoff = min(backoff*_backoffMultiplier, p.maxRetryDelay)
	}

	return err
}

func (p *Postgres) open(poolConfig *pgxpool.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return err
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return err
	}

	p.Pool = pool
	return nil
}

// DSN builds a connection URL for scheme. golang-migrate expects "pgx5".
func DSN(scheme string, cfg *config.Postgres) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: "sslmode=" + url.QueryEscape(cfg.SSLMode),
	}
	return u.String()
}

func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}
