package postgres

import (
	"errors"
	"time"

	"orderdesk/internal/config"
)

type Option func(*Postgres)

// FromConfig turns the pool and retry settings of cfg into options. Zero
// values keep the defaults.
func FromConfig(cfg *config.Postgres) []Option {
	var opts []Option
	if cfg.PoolMax > 0 {
		opts = append(opts, MaxPoolSize(cfg.PoolMax))
	}
	if cfg.ConnAttempts > 0 {
		opts = append(opts, MaxConnAttempts(cfg.ConnAttempts))
	}
	if cfg.BaseRetryDelay > 0 {
		opts = append(opts, BaseRetryDelay(cfg.BaseRetryDelay))
	}
	if cfg.MaxRetryDelay > 0 {
		opts = append(opts, MaxRetryDelay(cfg.MaxRetryDelay))
	}
	return opts
}

func MaxPoolSize(size int32) Option {
	return func(p *Postgres) {
		p.maxPoolSize = size
	}
}

func MaxConnAttempts(attempts int) Option {
	return func(p *Postgres) {
		p.connAttempts = attempts
	}
}

func BaseRetryDelay(delay time.Duration) Option {
	return func(p *Postgres) {
		p.baseRetryDelay = delay
	}
}

func MaxRetryDelay(delay time.Duration) Option {
	return func(p *Postgres) {
		p.maxRetryDelay = delay
	}
}

// ConnectTimeout bounds a single dial and ping.
func ConnectTimeout(timeout time.Duration) Option {
	return func(p *Postgres) {
		p.connectTimeout = timeout
	}
}

func (p *Postgres) validate() error {
	var errs []error
	if p.maxPoolSize <= 0 {
		errs = append(errs, errors.New("invalid maxPoolSize: must be > 0"))
	}
	if p.connAttempts <= 0 {
		errs = append(errs, errors.New("invalid connAttempts: must be > 0"))
	}
	if p.baseRetryDelay <= 0 || p.maxRetryDelay <= 0 {
		errs = append(errs, errors.New("invalid retry delay: must be > 0"))
	} else if p.baseRetryDelay > p.maxRetryDelay {
		errs = append(errs, errors.New("baseRetryDelay cannot exceed maxRetryDelay"))
	}
	if p.connectTimeout <= 0 {
		errs = append(errs, errors.New("invalid connectTimeout: must be > 0"))
	}
	return errors.Join(errs...)
}
