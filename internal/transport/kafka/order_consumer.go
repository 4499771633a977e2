package kafkat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"orderdesk/pkg/kafka/dlq"
	"orderdesk/pkg/logger"
	"orderdesk/pkg/metric"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

type OrderConsumer struct {
	reader MessageReader
	dlq    DLQ
	intake *Intake
	metric metric.Kafka
	log    logger.Logger
}

func NewOrderConsumer(
	reader MessageReader,
	dlq DLQ,
	intake *Intake,
	metric metric.Kafka,
	log logger.Logger,
) *OrderConsumer {
	return &OrderConsumer{
		reader: reader,
		dlq:    dlq,
		intake: intake,
		metric: metric,
		log:    log,
	}
}

func (c *OrderConsumer) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return c.run(ctx)
	})

	eg.Go(func() error {
		<-ctx.Done()
		c.log.Infow("shutting down consumer")
		return c.reader.Close()
	})

	if err := eg.Wait(); err != nil {
		return fmt.Errorf("transport.kafka.order_consumer.Start: %w", err)
	}
	return nil
}

func (c *OrderConsumer) run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Errorw("kafka read failed",
				"error", err,
			)
			continue
		}

		c.metric.ConsumerGroupLag(msg.Topic, msg.Partition, msg.HighWaterMark-msg.Offset-1)

		if !c.processMessage(ctx, msg) {
			// Shutdown interrupted the message; leave it uncommitted.
			return nil
		}

		if err = c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Errorw("kafka commit failed",
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// processMessage reports false when ctx ended before the message was
// either stored or dead-lettered.
func (c *OrderConsumer) processMessage(ctx context.Context, msg kafka.Message) bool {
	ctx = logger.ContextWith(ctx,
		logger.String("topic", msg.Topic),
		logger.Int("partition", msg.Partition),
		logger.Int64("offset", msg.Offset),
	)
	log := c.log.Ctx(ctx)
	log.Infow("processing kafka message")

	var stored string
	attempts, err := dlq.ProcessWithRetry(ctx, msg, func(ctx context.Context, msg kafka.Message) error {
		order, err := c.intake.Handle(ctx, msg.Value)
		if err != nil {
			return err
		}
		stored = order.ID.String()
		return nil
	}, c.dlq.Backoff(), log)
	if err == nil {
		c.metric.MessageProcessed(msg.Topic, msg.Partition)
		log.Infow("order saved from kafka",
			"order_id", stored,
			"attempts", attempts,
		)
		return true
	}

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return false
	}

	reason := "retry_limit_exceeded"
	if dlq.IsPermanent(err) {
		reason = "rejected"
	}
	c.metric.MessageFailed(msg.Topic, msg.Partition, reason)

	if dlqErr := c.dlq.Send(ctx, msg, err, attempts); dlqErr != nil {
		sum := sha256.Sum256(msg.Value)
		log.Errorw("critical: failed to send to DLQ",
			"original_error", err,
			"dlq_error", dlqErr,
			"payload_hash", hex.EncodeToString(sum[:]),
		)
		return ctx.Err() == nil
	}

	log.Infow("message sent to DLQ",
		"reason", reason,
		"attempts", attempts,
	)
	return true
}
