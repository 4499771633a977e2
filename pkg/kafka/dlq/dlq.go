package dlq

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"orderdesk/internal/config"
	"orderdesk/pkg/logger"
	"orderdesk/pkg/metric"

	"github.com/segmentio/kafka-go"
)

const (
	_defaultMaxAttempts    = 10
	_defaultBaseRetryDelay = 100 * time.Millisecond
	_defaultMaxRetryDelay  = 5 * time.Second
)

// Writer is the part of *kafka.Writer the queue needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type (
	Metadata struct {
		OriginalTopic string `json:"original_topic"`
		Partition     int    `json:"partition"`
		Offset        int64  `json:"offset"`
		RetryCount    int    `json:"retry_count"`
		Error         string `json:"error"`
		Permanent     bool   `json:"permanent,omitempty"`
		Timestamp     string `json:"timestamp"`
	}

	// Message is the envelope written to the dead-letter topic. Payload is
	// the original message value, untouched.
	Message struct {
		Metadata Metadata `json:"metadata"`
		Payload  string   `json:"payload"`
	}
)

// Decode reads an envelope back from a dead-letter message value.
func Decode(value []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(value, &m); err != nil {
		return Message{}, fmt.Errorf("kafka.dlq.Decode: %w", err)
	}
	return m, nil
}

type DLQ struct {
	writer  Writer
	topic   string
	log     logger.Logger
	metrics metric.DLQ
	now     func() time.Time

	backoff Backoff
}

func NewDLQ(cfg config.DLQ, log logger.Logger, metrics metric.DLQ, opts ...Option) (*DLQ, error) {
	d := &DLQ{
		topic:   cfg.Topic,
		log:     log,
		metrics: metrics,
		now:     time.Now,

		backoff: Backoff{
			MaxAttempts: _defaultMaxAttempts,
			Base:        _defaultBaseRetryDelay,
			Max:         _defaultMaxRetryDelay,
		},
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.writer == nil {
		d.writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Async:        false,
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
			WriteTimeout: cfg.WriteTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			Logger: kafka.LoggerFunc(func(msg string, args ...any) {
				log.LogAttrs(context.Background(), logger.DebugLevel, "dlq writer info",
					logger.String("message", fmt.Sprintf(msg, args...)),
				)
			}),
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
				log.LogAttrs(context.Background(), logger.ErrorLevel, "dlq writer error",
					logger.String("error", fmt.Sprintf(msg, args...)),
				)
			}),
		}
	}

	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("kafka.dlq.NewDLQ: validation: %w", err)
	}

	return d, nil
}

func (d *DLQ) Close() error {
	if err := d.writer.Close(); err != nil {
		return fmt.Errorf("kafka.dlq.Close: %w", err)
	}
	return nil
}

func (d *DLQ) Backoff() Backoff {
	return d.backoff
}

// Send wraps original in an envelope and writes it to the dead-letter topic.
// A message that is itself an envelope keeps its original metadata so
// replays do not nest.
func (d *DLQ) Send(
	ctx context.Context,
	original kafka.Message,
	cause error,
	retryCount int,
) error {
	const op = "kafka.dlq.Send"

	envelope := Message{
		Metadata: Metadata{
			OriginalTopic: original.Topic,
			Partition:     original.Partition,
			Offset:        original.Offset,
			RetryCount:    retryCount,
			Error:         cause.Error(),
			Permanent:     IsPermanent(cause),
			Timestamp:     d.now().UTC().Format(time.RFC3339),
		},
		Payload: string(original.Value),
	}
	if original.Topic == d.topic {
		if prev, err := Decode(original.Value); err == nil {
			envelope.Metadata.OriginalTopic = prev.Metadata.OriginalTopic
			envelope.Metadata.Partition = prev.Metadata.Partition
			envelope.Metadata.Offset = prev.Metadata.Offset
			envelope.Payload = prev.Payload
		}
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		d.log.Errorw("failed to marshal dlq message",
			"op", op,
			"error", err,
			"original_offset", original.Offset,
			"payload_base64", base64.StdEncoding.EncodeToString(original.Value),
		)
		d.metrics.DLError(d.topic, "marshal_failed")
		return fmt.Errorf("%s: marshal envelope: %w", op, err)
	}

	if err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:   original.Key,
		Value: value,
	}); err != nil {
		d.log.Errorw("failed to send message to dlq",
			"op", op,
			"error", err,
			"offset", original.Offset,
		)
		d.metrics.DLError(d.topic, "write_failed")

		return fmt.Errorf("%s: send message: %w", op, err)
	}

	d.metrics.DLSent(d.topic, envelope.Metadata.OriginalTopic, retryCount)
	d.log.Infow("message sent to dlq",
		"op", op,
		"topic", d.topic,
		"offset", original.Offset,
		"retry_count", retryCount,
		"permanent", envelope.Metadata.Permanent,
	)

	return nil
}
