package dlq

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"orderdesk/pkg/logger"

	"github.com/segmentio/kafka-go"
)

const _backoffMultiplier = 2

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. ProcessWithRetry stops at the
// first permanent failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

type Backoff struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
}

// delay returns a full-jitter wait for the given zero-based retry.
func (b Backoff) delay(retry int) time.Duration {
	ceiling := b.Base
	for range retry {
		ceiling *= _backoffMultiplier
		if ceiling >= b.Max {
			ceiling = b.Max
			break
		}
	}
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(ceiling))) + 1
}

// ProcessWithRetry runs handler until it succeeds, fails permanently or
// spends b.MaxAttempts. It returns the number of attempts made and the last
// error. Dead-lettering is left to the caller.
func ProcessWithRetry(
	ctx context.Context,
	msg kafka.Message,
	handler func(context.Context, kafka.Message) error,
	b Backoff,
	log logger.Logger,
) (int, error) {
	const op = "kafka.dlq.ProcessWithRetry"

	var err error
	attempt := 0
	for attempt < b.MaxAttempts {
		if attempt > 0 {
			if err := ctx.Err(); err != nil {
				return attempt, fmt.Errorf("%s: context: %w", op, err)
			}

			wait := b.delay(attempt - 1)
			log.LogAttrs(ctx, logger.InfoLevel, "retrying message processing",
				logger.String("op", op),
				logger.Int("attempt", attempt+1),
				logger.String("retry_after", wait.String()),
			)

			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return attempt, fmt.Errorf("%s: context done: %w", op, ctx.Err())
			}
		}

		attempt++
		if err = handler(ctx, msg); err == nil {
			return attempt, nil
		}

		log.LogAttrs(ctx, logger.WarnLevel, "message processing failed",
			logger.String("op", op),
			logger.Int64("offset", msg.Offset),
			logger.Int("attempt", attempt),
			logger.Bool("permanent", IsPermanent(err)),
			logger.Err(err),
		)

		if IsPermanent(err) {
			break
		}
	}

	return attempt, err
}
