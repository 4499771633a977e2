package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"orderdesk/internal/entity"
	httpt "orderdesk/internal/transport/http"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type E2ETestSuite struct {
	suite.Suite

	kafkaWriter *kafka.Writer
	httpClient  *http.Client
	baseURL     string
	accessKey   string
}

func (s *E2ETestSuite) SetupSuite() {
	kafkaBrokers := getEnvOrDefault("KAFKA_BROKERS", "localhost:9092")
	s.baseURL = "http://" + net.JoinHostPort(
		getEnvOrDefault("APP_HOST", "localhost"),
		getEnvOrDefault("APP_PORT", "8080"),
	)
	s.accessKey = getEnvOrDefault("AUTH_ACCESS_KEY", "isopods-all-the-way")

	s.kafkaWriter = &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(kafkaBrokers, ",")...),
		Topic:    getEnvOrDefault("KAFKA_TOPIC", "orders"),
		Balancer: &kafka.Hash{},
	}
	s.httpClient = &http.Client{
		Timeout: 10 * time.Second,
	}

	s.waitForApp()
}

func (s *E2ETestSuite) TearDownSuite() {
	if s.kafkaWriter != nil {
		s.kafkaWriter.Close()
	}
}

func (s *E2ETestSuite) waitForApp() {
	const maxRetries = 30
	const retryDelay = 2 * time.Second

	for i := range maxRetries {
		resp, err := s.do(http.MethodGet, "/health", nil, false)
		if err != nil {
			s.T().Logf("Health check failed (attempt %d/%d): %v", i+1, maxRetries, err)
			time.Sleep(retryDelay)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			s.T().Log("App is healthy")
			return
		}
		s.T().Logf("App health check status %d (attempt %d/%d)", resp.StatusCode, i+1, maxRetries)
		time.Sleep(retryDelay)
	}
	s.T().Fatalf("App did not become healthy after %d attempts", maxRetries)
}

func (s *E2ETestSuite) do(method, path string, body any, authorized bool) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, s.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer "+s.accessKey)
	}

	return s.httpClient.Do(req)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (s *E2ETestSuite) TestUnauthorized() {
	resp, err := s.do(http.MethodGet, "/api/orders", nil, false)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *E2ETestSuite) TestOrderLifecycle() {
	in := generateFakeInput()

	resp, err := s.do(http.MethodPost, "/api/orders", in, true)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	created := decode[httpt.OrderResponse](s.T(), resp).Order
	s.Require().Equal(in.CustomerName, created.CustomerName)

	resp, err = s.do(http.MethodPatch, "/api/orders/"+created.ID.String(), httpt.StatusRequest{Status: "shipped"}, true)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	shipped := decode[httpt.OrderResponse](s.T(), resp).Order
	s.Require().Equal(entity.StatusShipped, shipped.Status)
	s.Require().NotNil(shipped.SentDate)

	resp, err = s.do(http.MethodGet, "/api/orders/export?scope=filtered&status=shipped", nil, true)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Contains(resp.Header.Get("Content-Disposition"), "isopod_orders_")
	resp.Body.Close()

	resp, err = s.do(http.MethodDelete, "/api/orders/"+created.ID.String(), nil, true)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = s.do(http.MethodGet, "/api/orders/"+created.ID.String(), nil, true)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func (s *E2ETestSuite) TestKafkaIntake() {
	in := generateFakeInput()
	in.CustomerName = fmt.Sprintf("Kafka %s", gofakeit.LetterN(12))

	body, err := json.Marshal(in)
	s.Require().NoError(err)

	err = s.kafkaWriter.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(in.Phone),
		Value: body,
	})
	s.Require().NoError(err, "Failed to write message to Kafka")

	path := "/api/orders?q=" + url.QueryEscape(in.CustomerName)
	s.Require().Eventually(func() bool {
		resp, err := s.do(http.MethodGet, path, nil, true)
		if err != nil || resp.StatusCode != http.StatusOK {
			if resp != nil {
				resp.Body.Close()
			}
			return false
		}
		return len(decode[httpt.OrdersResponse](s.T(), resp).Orders) == 1
	}, 30*time.Second, time.Second)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func TestE2E(t *testing.T) {
	if os.Getenv("E2E_TEST") == "" {
		t.Skip("Skipping E2E test; set E2E_TEST to run.")
	}
	suite.Run(t, new(E2ETestSuite))
}

func generateFakeInput() entity.OrderInput {
	return entity.OrderInput{
		CustomerDetails: entity.CustomerDetails{
			CustomerName: gofakeit.Name(),
			Phone:        gofakeit.Numerify("9#########"),
			Address:      gofakeit.Address().Address,
		},
		Items: []entity.OrderItem{
			{Name: "Panda King", Quantity: gofakeit.Number(1, 3), Price: 450},
		},
		ShippingDetails: entity.ShippingDetails{
			CourierService:  "DTDC",
			ShippingCharges: 90,
		},
	}
}
