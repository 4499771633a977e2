package transaction

import (
	"errors"
	"fmt"
	"time"

	"orderdesk/internal/config"

	"github.com/jackc/pgx/v5"
)

type Option func(*manager)

var _isoLevels = map[string]pgx.TxIsoLevel{
	"read_committed":  pgx.ReadCommitted,
	"repeatable_read": pgx.RepeatableRead,
	"serializable":    pgx.Serializable,
}

// FromConfig maps the transaction section onto options. An empty isolation
// keeps read committed.
func FromConfig(cfg *config.Tx) ([]Option, error) {
	opts := []Option{
		MaxAttempts(cfg.MaxAttempts),
		RetryDelay(cfg.BaseRetryDelay, cfg.MaxRetryDelay),
	}
	if cfg.Isolation != "" {
		level, ok := _isoLevels[cfg.Isolation]
		if !ok {
			return nil, fmt.Errorf("transaction.FromConfig: unknown isolation %q", cfg.Isolation)
		}
		opts = append(opts, IsoLevel(level))
	}
	return opts, nil
}

// MaxAttempts above one enables retries of serialization and connection
// failures.
func MaxAttempts(attempts int) Option {
	return func(m *manager) {
		m.maxAttempts = attempts
	}
}

// RetryDelay sets the jittered backoff window between attempts.
func RetryDelay(base, maxDelay time.Duration) Option {
	return func(m *manager) {
		m.baseRetryDelay = base
		m.maxRetryDelay = maxDelay
	}
}

// IsoLevel overrides the read committed default.
func IsoLevel(level pgx.TxIsoLevel) Option {
	return func(m *manager) {
		m.isoLevel = level
	}
}

func (m *manager) validate() error {
	var errs []error
	if m.maxAttempts <= 0 {
		errs = append(errs, errors.New("invalid maxAttempts: must be > 0"))
	}
	if m.baseRetryDelay <= 0 || m.maxRetryDelay <= 0 {
		errs = append(errs, errors.New("invalid retry delay: must be > 0"))
	} else if m.baseRetryDelay > m.maxRetryDelay {
		errs = append(errs, errors.New("baseRetryDelay cannot exceed maxRetryDelay"))
	}
	switch m.isoLevel {
	case pgx.ReadCommitted, pgx.RepeatableRead, pgx.Serializable:
	default:
		errs = append(errs, errors.New("unsupported isolation level: "+string(m.isoLevel)))
	}
	return errors.Join(errs...)
}
