//nolint:mnd
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"orderdesk/internal/config"
	"orderdesk/internal/entity"
	"orderdesk/pkg/kafka"
	"orderdesk/pkg/logger"

	"github.com/brianvoe/gofakeit/v7"
	kafkago "github.com/segmentio/kafka-go"
)

var _species = []string{
	"Rubber Ducky", "Zebra", "Dairy Cow", "Magic Potion", "Orange Cream",
	"Powder Blue", "Spanish Orange", "Lemon Blue", "Giant Canyon", "Panda King",
}

var _couriers = []string{"India Post", "DTDC", "Delhivery", "Blue Dart", "Professional Couriers"}

func main() {
	brokers := flag.String(
		"brokers",
		"kafka:29092",
		"Kafka bootstrap brokers to connect to, as a comma separated list",
	)
	topic := flag.String("topic", "orders", "Kafka topic to write messages to")
	numMessages := flag.Int("count", 1, "Number of messages to send")
	interval := flag.Duration("interval", 1*time.Second, "Interval between sending messages")
	invalidRate := flag.Float64("invalid-rate", 0, "Share of messages sent without a phone number, 0..1")

	flag.Parse()

	log, err := logger.NewAdapter(&config.Config{
		App:    config.App{Name: "order-producer", Version: "dev"},
		Logger: config.Logger{Level: "info"},
		Env:    "local",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	writer := kafka.NewKafkaWriter(strings.Split(*brokers, ","), *topic, log)
	defer writer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Infow("starting kafka producer",
		"count", *numMessages,
		"topic", *topic,
		"brokers", *brokers,
		"interval", interval.String(),
	)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for sent := 0; sent < *numMessages; sent++ {
		if sent > 0 {
			select {
			case <-ctx.Done():
				log.Infow("shutting down producer", "sent", sent)
				return
			case <-ticker.C:
			}
		}
		sendMessage(ctx, writer, generateFakeInput(gofakeit.Float64Range(0, 1) < *invalidRate), log)
	}

	log.Infow("sent all messages", "count", *numMessages)
}

func sendMessage(ctx context.Context, writer *kafkago.Writer, in entity.OrderInput, log logger.Logger) {
	body, err := json.Marshal(in)
	if err != nil {
		log.Errorw("failed to marshal order", "error", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err = writer.WriteMessages(writeCtx, kafkago.Message{
		Key:   []byte(in.Phone),
		Value: body,
	}); err != nil {
		log.Errorw("failed to write message to kafka", "error", err)
		return
	}

	log.Infow("order sent", "customer", in.CustomerName, "items", len(in.Items))
}

func generateFakeInput(invalid bool) entity.OrderInput {
	itemsCount := gofakeit.Number(1, 4)
	items := make([]entity.OrderItem, 0, itemsCount)
	for range itemsCount {
		items = append(items, entity.OrderItem{
			Name:     gofakeit.RandomString(_species),
			Quantity: gofakeit.Number(1, 10),
			Price:    float64(gofakeit.Number(5, 60) * 10),
		})
	}

	email := gofakeit.Email()
	handle := "@" + gofakeit.Username()
	notes := gofakeit.Sentence(6)

	in := entity.OrderInput{
		CustomerDetails: entity.CustomerDetails{
			CustomerName:      gofakeit.Name(),
			Phone:             gofakeit.Numerify("9#########"),
			Email:             &email,
			SocialMediaHandle: &handle,
			Address:           gofakeit.Address().Address,
		},
		Items: items,
		ShippingDetails: entity.ShippingDetails{
			CourierService:  gofakeit.RandomString(_couriers),
			ShippingCharges: float64(gofakeit.Number(4, 12) * 10),
			Notes:           &notes,
		},
	}

	if invalid {
		in.Phone = ""
	}

	return in
}
