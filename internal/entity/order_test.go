package entity_test

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"orderdesk/internal/entity"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func generateFakeItems(n int) []entity.OrderItem {
	items := make([]entity.OrderItem, 0, n)
	for range n {
		items = append(items, entity.OrderItem{
			Name:     gofakeit.ProductName(),
			Quantity: gofakeit.Number(1, 20),
			Price:    float64(gofakeit.Number(0, 2000)),
		})
	}
	return items
}

func TestRecompute(t *testing.T) {
	testCases := []struct {
		desc     string
		items    []entity.OrderItem
		shipping float64
		expected entity.Totals
	}{
		{
			desc:     "SingleCulture",
			items:    []entity.OrderItem{{Name: "Isopod Culture", Quantity: 3, Price: 250}},
			shipping: 50,
			expected: entity.Totals{QuantityTotal: 3, ItemsSubtotal: 750, PaymentAmount: 800},
		},
		{
			desc: "SeveralLines",
			items: []entity.OrderItem{
				{Name: "Springtails", Quantity: 2, Price: 120},
				{Name: "Leaf Litter", Quantity: 1, Price: 80},
			},
			shipping: 0,
			expected: entity.Totals{QuantityTotal: 3, ItemsSubtotal: 320, PaymentAmount: 320},
		},
		{
			desc:     "ZeroValuesCountAsZero",
			items:    []entity.OrderItem{{Name: "Moss"}},
			shipping: 40,
			expected: entity.Totals{QuantityTotal: 0, ItemsSubtotal: 0, PaymentAmount: 40},
		},
		{
			desc:     "NoItems",
			items:    nil,
			shipping: 0,
			expected: entity.Totals{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			got := entity.Recompute(tc.items, tc.shipping)
			require.Equal(t, tc.expected, got)
		})
	}
}

func TestRecompute_OrderIndependent(t *testing.T) {
	items := generateFakeItems(gofakeit.Number(2, 10))
	shipping := float64(gofakeit.Number(0, 300))

	want := entity.Recompute(items, shipping)

	shuffled := append([]entity.OrderItem(nil), items...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	got := entity.Recompute(shuffled, shipping)
	require.Equal(t, want.QuantityTotal, got.QuantityTotal)
	require.InDelta(t, want.PaymentAmount, got.PaymentAmount, 1e-9)
}

func TestNormalize_Idempotent(t *testing.T) {
	testCases := []struct {
		desc  string
		input entity.OrderInput
	}{
		{
			desc: "EmptyOptionals",
			input: entity.OrderInput{
				CustomerDetails: entity.CustomerDetails{
					CustomerName:      "Asha",
					Email:             strPtr(""),
					SocialMediaHandle: strPtr("  "),
				},
				ShippingDetails: entity.ShippingDetails{
					CourierReceipt: strPtr(""),
					SentDate:       strPtr(""),
					Notes:          strPtr(""),
				},
			},
		},
		{
			desc: "FilledOptionals",
			input: entity.OrderInput{
				CustomerDetails: entity.CustomerDetails{
					Email:             strPtr(gofakeit.Email()),
					SocialMediaHandle: strPtr("@" + gofakeit.Username()),
				},
				ShippingDetails: entity.ShippingDetails{
					CourierReceipt:  strPtr(gofakeit.UUID()),
					SentDate:        strPtr("2024-03-01"),
					Notes:           strPtr(gofakeit.Sentence(5)),
					ShippingCharges: -10,
				},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			once := entity.Normalize(tc.input)
			twice := entity.Normalize(once)
			require.Equal(t, once, twice)
			require.Equal(t, tc.input.ShippingCharges, once.ShippingCharges)
		})
	}
}

func TestNormalize_EmptyBecomesAbsent(t *testing.T) {
	in := entity.OrderInput{
		CustomerDetails: entity.CustomerDetails{Email: strPtr("")},
		ShippingDetails: entity.ShippingDetails{
			CourierReceipt: strPtr(""),
			SentDate:       strPtr(""),
			Notes:          strPtr(""),
		},
	}

	out := entity.Normalize(in)
	require.Nil(t, out.Email)
	require.Nil(t, out.SocialMediaHandle)
	require.Nil(t, out.CourierReceipt)
	require.Nil(t, out.SentDate)
	require.Nil(t, out.Notes)
}

func TestNewOrder(t *testing.T) {
	in := entity.OrderInput{
		CustomerDetails: entity.CustomerDetails{
			CustomerName: "Ravi",
			Phone:        "987-654-3210",
			Address:      "12 MG Road, Pune",
		},
		Items:           []entity.OrderItem{{Name: "Isopod Culture", Quantity: 3, Price: 250}},
		ShippingDetails: entity.ShippingDetails{ShippingCharges: 50},
	}

	order, err := entity.NewOrder(in)
	require.NoError(t, err)
	require.Equal(t, 3, order.QuantityTotal)
	require.InDelta(t, 800, order.PaymentAmount.Value(), 1e-9)
	require.False(t, order.PaymentAmount.IsOverridden())
	require.Equal(t, entity.StatusPending, order.Status)

	amount := 700.0
	in.PaymentAmount = &amount
	in.PaymentOverride = true

	order, err = entity.NewOrder(in)
	require.NoError(t, err)
	require.True(t, order.PaymentAmount.IsOverridden())
	require.InDelta(t, 700, order.PaymentAmount.Value(), 1e-9)

	in.SentDate = strPtr("yesterday")
	_, err = entity.NewOrder(in)
	require.ErrorIs(t, err, entity.ErrInvalidData)
}

func TestOrder_OverrideUntilNextRecompute(t *testing.T) {
	order := &entity.Order{}
	order.SetItems([]entity.OrderItem{{Name: "Cork Bark", Quantity: 2, Price: 100}})
	order.OverridePayment(150)
	require.True(t, order.PaymentAmount.IsOverridden())

	order.SetShippingCharges(30)
	require.False(t, order.PaymentAmount.IsOverridden())
	require.InDelta(t, 230, order.PaymentAmount.Value(), 1e-9)
}

func TestOrder_RestorePaymentTag(t *testing.T) {
	order := &entity.Order{
		Items:           []entity.OrderItem{{Name: "Isopod Culture", Quantity: 1, Price: 250}},
		ShippingCharges: 50,
		PaymentAmount:   entity.Computed(300),
	}
	order.RestorePaymentTag()
	require.False(t, order.PaymentAmount.IsOverridden())

	order.PaymentAmount = entity.Computed(280)
	order.RestorePaymentTag()
	require.True(t, order.PaymentAmount.IsOverridden())
	require.InDelta(t, 280, order.PaymentAmount.Value(), 1e-9)
}

func TestOrder_ApplyStatus(t *testing.T) {
	first := time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)
	later := first.Add(72 * time.Hour)
	preset := entity.DateOf(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	testCases := []struct {
		desc     string
		sentDate *entity.Date
		steps    []entity.Status
		expected *entity.Date
	}{
		{
			desc:     "ShippedStampsSentDate",
			steps:    []entity.Status{entity.StatusShipped},
			expected: func() *entity.Date { d := entity.DateOf(first); return &d }(),
		},
		{
			desc:     "RepeatShippedKeepsSentDate",
			steps:    []entity.Status{entity.StatusShipped, entity.StatusShipped},
			expected: func() *entity.Date { d := entity.DateOf(first); return &d }(),
		},
		{
			desc:     "ExistingSentDateUntouched",
			sentDate: &preset,
			steps:    []entity.Status{entity.StatusShipped},
			expected: &preset,
		},
		{
			desc:     "DeliveredLeavesSentDateAbsent",
			steps:    []entity.Status{entity.StatusDelivered},
			expected: nil,
		},
		{
			desc:     "BackToPendingAllowed",
			steps:    []entity.Status{entity.StatusDelivered, entity.StatusPending},
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			order := &entity.Order{Status: entity.StatusPending, SentDate: tc.sentDate}
			now := first
			for _, st := range tc.steps {
				order.ApplyStatus(st, now)
				now = later
			}

			require.Equal(t, tc.steps[len(tc.steps)-1], order.Status)
			require.Equal(t, tc.expected, order.SentDate)
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, st := range entity.Statuses() {
		got, err := entity.ParseStatus(string(st))
		require.NoError(t, err)
		require.Equal(t, st, got)
	}

	_, err := entity.ParseStatus("lost")
	require.ErrorIs(t, err, entity.ErrInvalidStatus)
	require.Equal(t, "Shipped", entity.StatusShipped.Title())
}

func TestPersistenceError_Is(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	err := error(&entity.PersistenceError{
		Op:      "repository.Create",
		Code:    "23505",
		Message: cause.Error(),
		Kind:    entity.ErrConflictingData,
		Cause:   cause,
	})

	require.ErrorIs(t, err, entity.ErrPersistence)
	require.ErrorIs(t, err, entity.ErrConflictingData)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, entity.ErrDataNotFound)
}

func TestComputeStats(t *testing.T) {
	orders := []entity.Order{
		{
			Status:          entity.StatusPending,
			Items:           []entity.OrderItem{{Name: "Rubber Ducky", Quantity: 2, Price: 450}},
			ShippingCharges: 80,
		},
		{
			Status: entity.StatusShipped,
			Items:  []entity.OrderItem{{Name: "Zebra", Quantity: 1, Price: 300}, {Name: "Dairy Cow", Quantity: 3, Price: 100}},
		},
		{
			Status: entity.StatusCancelled,
			Items:  []entity.OrderItem{{Name: "Magic Potion", Quantity: 1, Price: 50}},
		},
	}

	got := entity.ComputeStats(orders)

	require.Equal(t, entity.Stats{
		Total:     3,
		Pending:   1,
		Shipped:   1,
		Cancelled: 1,
		Revenue:   1550,
	}, got)
	require.Equal(t, entity.Stats{}, entity.ComputeStats(nil))
}

func TestComputeStats_RevenueHasNoFloatDrift(t *testing.T) {
	orders := []entity.Order{
		{Status: entity.StatusPending, Items: []entity.OrderItem{{Name: "Springtails", Quantity: 3, Price: 0.1}}},
		{Status: entity.StatusDelivered, Items: []entity.OrderItem{{Name: "Leaf Litter", Quantity: 1, Price: 0.2}}},
	}

	require.Equal(t, 0.5, entity.ComputeStats(orders).Revenue)
}
