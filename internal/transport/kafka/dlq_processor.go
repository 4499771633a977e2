package kafkat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderdesk/pkg/kafka/dlq"
	"orderdesk/pkg/logger"
	"orderdesk/pkg/metric"

	"github.com/segmentio/kafka-go"
)

const (
	_defaultDLQBatchSize     = 10
	_defaultDLQFetchTimeout  = 5 * time.Second
	_defaultDLQHandleTimeout = 2 * time.Second
)

// DLQProcessor replays dead-lettered orders on every poll until they are
// stored, fail permanently or reach maxRetries.
type DLQProcessor struct {
	dlqReader    MessageReader
	dlq          DLQ
	intake       *Intake
	metric       metric.Kafka
	maxRetries   int
	pollInterval time.Duration
	batchSize    int
	fetchTimeout time.Duration
	log          logger.Logger
}

type DLQOption func(*DLQProcessor)

func WithBatchSize(n int) DLQOption {
	return func(p *DLQProcessor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithFetchTimeout(d time.Duration) DLQOption {
	return func(p *DLQProcessor) {
		if d > 0 {
			p.fetchTimeout = d
		}
	}
}

func NewDLQProcessor(
	reader MessageReader,
	dlq DLQ,
	intake *Intake,
	metric metric.Kafka,
	maxRetries int,
	pollInterval time.Duration,
	log logger.Logger,
	opts ...DLQOption,
) *DLQProcessor {
	p := &DLQProcessor{
		dlqReader:    reader,
		dlq:          dlq,
		intake:       intake,
		metric:       metric,
		maxRetries:   maxRetries,
		pollInterval: pollInterval,
		batchSize:    _defaultDLQBatchSize,
		fetchTimeout: _defaultDLQFetchTimeout,
		log:          log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *DLQProcessor) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Infow("dlq processor shutting down")
			if err := p.dlqReader.Close(); err != nil {
				return fmt.Errorf("transport.kafka.dlq_processor.Start: close reader: %w", err)
			}
			return nil
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch handles up to batchSize dead-lettered messages and returns
// how many were read. It stops early when the topic has nothing new within
// fetchTimeout.
func (p *DLQProcessor) ProcessBatch(ctx context.Context) int {
	read := 0
	for read < p.batchSize {
		fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
		msg, err := p.dlqReader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, context.DeadlineExceeded) {
				p.log.Errorw("read dlq message", "error", err)
			}
			return read
		}
		read++

		p.replay(ctx, msg)

		if err = p.dlqReader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			p.log.Errorw("dlq commit failed",
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
	return read
}

func (p *DLQProcessor) replay(ctx context.Context, msg kafka.Message) {
	envelope, err := dlq.Decode(msg.Value)
	if err != nil {
		p.log.Errorw("unmarshal dlq message",
			"error", err,
			"offset", msg.Offset,
		)
		p.metric.MessageFailed(msg.Topic, msg.Partition, "malformed_envelope")
		return
	}

	meta := envelope.Metadata
	log := p.log.With(
		"offset", msg.Offset,
		"original_offset", meta.Offset,
		"retry_count", meta.RetryCount,
	)

	switch {
	case meta.Permanent:
		log.Infow("skipping rejected dlq message", "error", meta.Error)
		return
	case meta.RetryCount >= p.maxRetries:
		log.Warnw("dropping dlq message after max retries", "error", meta.Error)
		p.metric.MessageFailed(msg.Topic, msg.Partition, "dlq_retries_exhausted")
		return
	}

	handleCtx, cancel := context.WithTimeout(ctx, _defaultDLQHandleTimeout)
	defer cancel()

	order, err := p.intake.Handle(handleCtx, []byte(envelope.Payload))
	if err == nil {
		p.metric.MessageProcessed(msg.Topic, msg.Partition)
		log.Infow("dlq message processed successfully",
			"order_id", order.ID.String(),
		)
		return
	}

	log.Errorw("retry dlq message failed", "error", err)
	if sendErr := p.dlq.Send(ctx, msg, err, meta.RetryCount+1); sendErr != nil {
		log.Errorw("failed to requeue dlq message", "error", sendErr)
	}
}
