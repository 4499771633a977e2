//go:generate mockgen -source=kafka_transport.go -destination=mock/kafka_transport.go -package=mock_kafkat
package kafkat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"orderdesk/internal/auth"
	"orderdesk/internal/entity"
	"orderdesk/pkg/kafka/dlq"
	"orderdesk/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type (
	// MessageReader is the part of *kafka.Reader the consumers need. Offsets
	// are committed explicitly once a message is handled or dead-lettered.
	MessageReader interface {
		FetchMessage(ctx context.Context) (kafka.Message, error)
		CommitMessages(ctx context.Context, msgs ...kafka.Message) error
		Close() error
	}

	DLQ interface {
		Send(ctx context.Context, msg kafka.Message, err error, retryCount int) error
		Backoff() dlq.Backoff
	}

	OrderService interface {
		CreateOrder(ctx context.Context, in entity.OrderInput) (*entity.Order, error)
	}

	Sessions interface {
		System() auth.Session
	}
)

// Intake turns a message payload into a stored order. Payloads that can
// never succeed are returned as dlq.Permanent errors.
type Intake struct {
	svc      OrderService
	sessions Sessions
	log      logger.Logger
}

func NewIntake(svc OrderService, sessions Sessions, log logger.Logger) *Intake {
	return &Intake{svc: svc, sessions: sessions, log: log}
}

func (i *Intake) Handle(ctx context.Context, payload []byte) (*entity.Order, error) {
	const op = "transport.kafka.Intake.Handle"

	var in entity.OrderInput
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, dlq.Permanent(fmt.Errorf("%s: unmarshal order: %w", op, err))
	}

	ctx = auth.WithSession(ctx, i.sessions.System())

	order, err := i.svc.CreateOrder(ctx, in)
	if err != nil {
		err = fmt.Errorf("%s: create order: %w", op, err)
		if errors.Is(err, entity.ErrInvalidData) {
			return nil, dlq.Permanent(err)
		}
		return nil, err
	}

	return order, nil
}
