package kafka

import (
	"context"
	"fmt"
	"time"

	"orderdesk/pkg/logger"

	"github.com/segmentio/kafka-go"
)

const _defaultDialTimeout = 5 * time.Second

// NewKafkaReader builds a consumer-group reader and checks that every broker
// is reachable before returning it.
func NewKafkaReader(brokers []string, topic, groupID string, log logger.Logger) (*kafka.Reader, error) {
	const op = "kafka.NewKafkaReader"

	log = log.With("topic", topic, "group_id", groupID)

	if err := checkKafkaConnection(brokers, log); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		Logger:      loggerFunc(log, logger.DebugLevel, "kafka reader info"),
		ErrorLogger: loggerFunc(log, logger.ErrorLevel, "kafka reader error"),
	}), nil
}

// NewKafkaWriter builds a synchronous writer for topic. Messages are
// balanced by key so one customer's orders keep their order.
func NewKafkaWriter(brokers []string, topic string, log logger.Logger) *kafka.Writer {
	log = log.With("topic", topic)

	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Logger:                 loggerFunc(log, logger.DebugLevel, "kafka writer info"),
		ErrorLogger:            loggerFunc(log, logger.ErrorLevel, "kafka writer error"),
	}
}

func loggerFunc(log logger.Logger, level logger.Level, msg string) kafka.LoggerFunc {
	return func(format string, args ...any) {
		log.LogAttrs(context.Background(), level, msg,
			logger.String("message", fmt.Sprintf(format, args...)),
		)
	}
}

func checkKafkaConnection(brokers []string, log logger.Logger) error {
	const op = "kafka.checkKafkaConnection"

	dialer := &kafka.Dialer{Timeout: _defaultDialTimeout}
	for _, broker := range brokers {
		conn, err := dialer.Dial("tcp", broker)
		if err != nil {
			return fmt.Errorf("%s: connect to %s: %w", op, broker, err)
		}

		if err = conn.Close(); err != nil {
			log.Warnw("failed to close connection",
				"operation", op,
				"broker", broker,
				"error", err)
		}
	}
	return nil
}
