package dlq

import (
	"errors"
	"time"
)

type Option func(*DLQ)

// WithBackoff sets the retry budget handed to consumers through Backoff.
// Zero fields keep their defaults.
func WithBackoff(b Backoff) Option {
	return func(d *DLQ) {
		if b.MaxAttempts != 0 {
			d.backoff.MaxAttempts = b.MaxAttempts
		}
		if b.Base != 0 {
			d.backoff.Base = b.Base
		}
		if b.Max != 0 {
			d.backoff.Max = b.Max
		}
	}
}

// WithWriter replaces the kafka writer built from config.
func WithWriter(w Writer) Option {
	return func(d *DLQ) {
		d.writer = w
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *DLQ) {
		d.now = now
	}
}

func (d *DLQ) validate() error {
	var errs []error
	if d.topic == "" {
		errs = append(errs, errors.New("dlq topic is empty"))
	}
	if err := d.backoff.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (b Backoff) validate() error {
	var errs []error
	if b.MaxAttempts <= 0 {
		errs = append(errs, errors.New("invalid maxAttempts: must be > 0"))
	}
	if b.Base <= 0 || b.Max <= 0 {
		errs = append(errs, errors.New("invalid retry delay: must be > 0"))
	} else if b.Base > b.Max {
		errs = append(errs, errors.New("base retry delay cannot exceed max retry delay"))
	}
	return errors.Join(errs...)
}
