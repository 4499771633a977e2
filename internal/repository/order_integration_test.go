package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"orderdesk/internal/auth"
	"orderdesk/internal/config"
	"orderdesk/internal/entity"
	"orderdesk/internal/repository"
	"orderdesk/internal/service"
	"orderdesk/internal/validation"
	"orderdesk/migrations"
	"orderdesk/pkg/cache"
	"orderdesk/pkg/logger"
	"orderdesk/pkg/metric"
	"orderdesk/pkg/storage/postgres"
	"orderdesk/pkg/storage/postgres/transaction"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type IntegrationTestSuite struct {
	suite.Suite

	db           *postgres.Postgres
	orderRepo    *repository.OrderRepository
	orderService *service.OrderService
	ctx          context.Context
}

func (s *IntegrationTestSuite) SetupSuite() {
	cfg, err := config.LoadPath(os.Getenv("CONFIG_PATH"))
	s.Require().NoError(err, "Failed to load configuration")

	testLogger, err := logger.NewAdapter(cfg, logger.Filename(""))
	s.Require().NoError(err)

	s.Require().NoError(postgres.Migrate(&cfg.Postgres, migrations.FS, ".", postgres.Up, testLogger))

	db, err := postgres.NewPostgres(&cfg.Postgres, testLogger,
		postgres.MaxConnAttempts(10),
		postgres.MaxRetryDelay(5*time.Second),
	)
	s.Require().NoError(err, "Failed to connect to postgres after retries")
	s.db = db

	metrics := metric.NewFactory()

	txManager, err := transaction.NewManager(db, testLogger, metrics.Transaction())
	s.Require().NoError(err)

	orderCache, err := cache.NewLRUCache[uuid.UUID, *entity.Order](
		cfg.Cache.Capacity,
		testLogger,
		metrics.Cache(),
		cache.WithName("orders"),
	)
	s.Require().NoError(err)

	validator, err := validation.New()
	s.Require().NoError(err)

	s.orderRepo = repository.NewOrderRepository(db)
	s.orderService = service.NewOrderService(
		s.orderRepo,
		txManager,
		testLogger,
		orderCache,
		cfg.Cache.TTL,
		metrics.Orders(),
		validator,
	)

	s.ctx = auth.WithSession(context.Background(), auth.Session{ID: uuid.New(), Subject: "integration"})
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *IntegrationTestSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.Pool.Exec(ctx, "TRUNCATE TABLE orders")
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) TestCreateAndGetOrder() {
	in := generateFakeInput()

	created, err := s.orderService.CreateOrder(s.ctx, in)
	s.Require().NoError(err)
	s.Require().NotEqual(uuid.Nil, created.ID)
	s.Require().Equal(entity.StatusPending, created.Status)

	stored, err := s.orderRepo.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Require().Equal(in.CustomerName, stored.CustomerName)
	s.Require().Equal(in.Items, stored.Items)
	s.Require().Equal(created.QuantityTotal, stored.QuantityTotal)
	s.Require().InDelta(created.PaymentAmount.Value(), stored.PaymentAmount.Value(), 0.001)
	s.Require().False(stored.PaymentAmount.IsOverridden())
	s.Require().Nil(stored.SentDate)
}

func (s *IntegrationTestSuite) TestPaymentOverrideSurvivesReload() {
	in := generateFakeInput()
	amount := 1.0
	in.PaymentAmount = &amount
	in.PaymentOverride = true

	created, err := s.orderService.CreateOrder(s.ctx, in)
	s.Require().NoError(err)

	stored, err := s.orderRepo.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Require().True(stored.PaymentAmount.IsOverridden())
	s.Require().InDelta(1.0, stored.PaymentAmount.Value(), 0.001)
}

func (s *IntegrationTestSuite) TestFractionalAmountsStoredUnrounded() {
	in := generateFakeInput()
	in.Items = []entity.OrderItem{{Name: "Isopod Culture", Quantity: 3, Price: 33.3375}}
	in.ShippingCharges = 12.125

	created, err := s.orderService.CreateOrder(s.ctx, in)
	s.Require().NoError(err)

	stored, err := s.orderRepo.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Require().Equal(12.125, stored.ShippingCharges)
	s.Require().Equal(created.PaymentAmount.Value(), stored.PaymentAmount.Value())
	s.Require().False(stored.PaymentAmount.IsOverridden())
}

func (s *IntegrationTestSuite) TestListFiltersAndSearch() {
	shippedIn := generateFakeInput()
	shippedIn.CustomerName = "Meera Pillai"
	shipped, err := s.orderService.CreateOrder(s.ctx, shippedIn)
	s.Require().NoError(err)
	_, err = s.orderService.UpdateStatus(s.ctx, shipped.ID, "shipped")
	s.Require().NoError(err)

	pendingIn := generateFakeInput()
	pendingIn.CustomerName = "Arjun Rao"
	pendingIn.Items[0].Name = "Magic Potion"
	_, err = s.orderService.CreateOrder(s.ctx, pendingIn)
	s.Require().NoError(err)

	all, err := s.orderService.ListOrders(s.ctx, entity.OrderFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Require().Equal("Arjun Rao", all[0].CustomerName, "newest first")

	onlyShipped, err := s.orderService.ListOrders(s.ctx, entity.OrderFilter{Status: entity.StatusShipped})
	s.Require().NoError(err)
	s.Require().Len(onlyShipped, 1)
	s.Require().Equal(shipped.ID, onlyShipped[0].ID)

	byItem, err := s.orderService.ListOrders(s.ctx, entity.OrderFilter{Query: "magic"})
	s.Require().NoError(err)
	s.Require().Len(byItem, 1)
	s.Require().Equal("Arjun Rao", byItem[0].CustomerName)

	wildcard, err := s.orderService.ListOrders(s.ctx, entity.OrderFilter{Query: "%"})
	s.Require().NoError(err)
	s.Require().Empty(wildcard)
}

func (s *IntegrationTestSuite) TestUpdateStatusStampsSentDate() {
	created, err := s.orderService.CreateOrder(s.ctx, generateFakeInput())
	s.Require().NoError(err)

	shipped, err := s.orderService.UpdateStatus(s.ctx, created.ID, "shipped")
	s.Require().NoError(err)
	s.Require().NotNil(shipped.SentDate)
	first := *shipped.SentDate

	delivered, err := s.orderService.UpdateStatus(s.ctx, created.ID, "delivered")
	s.Require().NoError(err)
	s.Require().Equal(entity.StatusDelivered, delivered.Status)
	s.Require().Equal(first, *delivered.SentDate)
}

func (s *IntegrationTestSuite) TestReplaceWithoutStatusKeepsStored() {
	created, err := s.orderService.CreateOrder(s.ctx, generateFakeInput())
	s.Require().NoError(err)

	_, err = s.orderService.UpdateStatus(s.ctx, created.ID, "shipped")
	s.Require().NoError(err)

	in := generateFakeInput()
	in.Status = ""
	replaced, err := s.orderService.ReplaceOrder(s.ctx, created.ID, in)
	s.Require().NoError(err)
	s.Require().Equal(entity.StatusShipped, replaced.Status)
}

func (s *IntegrationTestSuite) TestReplaceAndDelete() {
	created, err := s.orderService.CreateOrder(s.ctx, generateFakeInput())
	s.Require().NoError(err)

	in := generateFakeInput()
	in.CustomerName = "Kavya Menon"
	replaced, err := s.orderService.ReplaceOrder(s.ctx, created.ID, in)
	s.Require().NoError(err)
	s.Require().Equal(created.ID, replaced.ID)
	s.Require().Equal("Kavya Menon", replaced.CustomerName)
	s.Require().Equal(entity.StatusPending, replaced.Status)

	deleted, err := s.orderService.DeleteOrder(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Require().Equal("Kavya Menon", deleted.CustomerName)

	_, err = s.orderService.GetOrder(s.ctx, created.ID)
	s.Require().ErrorIs(err, entity.ErrDataNotFound)

	_, err = s.orderService.DeleteOrder(s.ctx, created.ID)
	s.Require().ErrorIs(err, entity.ErrDataNotFound)
}

func (s *IntegrationTestSuite) TestStats() {
	for range 3 {
		_, err := s.orderService.CreateOrder(s.ctx, generateFakeInput())
		s.Require().NoError(err)
	}

	stats, err := s.orderService.Stats(s.ctx)
	s.Require().NoError(err)
	s.Require().Equal(3, stats.Total)
	s.Require().Equal(3, stats.Pending)
	s.Require().Positive(stats.Revenue)
}

func TestIntegration(t *testing.T) {
	t.Parallel()
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("Skipping integration test; set INTEGRATION_TEST to run.")
	}
	suite.Run(t, new(IntegrationTestSuite))
}

func generateFakeInput() entity.OrderInput {
	email := gofakeit.Email()
	return entity.OrderInput{
		CustomerDetails: entity.CustomerDetails{
			CustomerName: gofakeit.Name(),
			Phone:        gofakeit.Numerify("9#########"),
			Email:        &email,
			Address:      gofakeit.Address().Address,
		},
		Items: []entity.OrderItem{
			{Name: "Rubber Ducky", Quantity: gofakeit.Number(1, 5), Price: 250},
			{Name: "Zebra", Quantity: 1, Price: 120},
		},
		ShippingDetails: entity.ShippingDetails{
			CourierService:  "India Post",
			ShippingCharges: 80,
		},
	}
}
