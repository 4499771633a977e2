package form_test

import (
	"testing"

	"orderdesk/internal/entity"
	"orderdesk/internal/form"
	"orderdesk/internal/validation"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *validation.Validator {
	t.Helper()

	v, err := validation.New()
	require.NoError(t, err)
	return v
}

func customer() entity.CustomerDetails {
	return entity.CustomerDetails{
		CustomerName: gofakeit.Name(),
		Phone:        "9876543210",
		Address:      gofakeit.Address().Address,
	}
}

func TestWizard_NewStartsWithBlankRow(t *testing.T) {
	w := form.New(newValidator(t))

	require.Equal(t, form.StepCustomer, w.Step())
	require.Equal(t, []entity.OrderItem{{Name: "", Quantity: 1, Price: 0}}, w.Items())
	require.False(t, w.Payment().IsOverridden())
}

func TestWizard_ForwardIsGated(t *testing.T) {
	w := form.New(newValidator(t))

	err := w.Next()
	require.ErrorIs(t, err, entity.ErrInvalidData)
	require.Equal(t, form.StepCustomer, w.Step())
	require.Contains(t, w.Errors(), "customer_name")

	w.SetCustomer(customer())
	require.NoError(t, w.Next())
	require.Equal(t, form.StepItems, w.Step())

	// the blank row fails the items gate
	err = w.Next()
	require.ErrorIs(t, err, entity.ErrInvalidData)
	require.Equal(t, form.StepItems, w.Step())
	require.Equal(t, "Item name is required", w.Errors()["items[0].name"])

	require.NoError(t, w.UpdateItem(0, entity.OrderItem{Name: "Isopod Culture", Quantity: 3, Price: 250}))
	require.NoError(t, w.Next())
	require.Equal(t, form.StepShipping, w.Step())

	require.ErrorIs(t, w.Next(), form.ErrFinalStep)
}

func TestWizard_BackIsAlwaysAllowed(t *testing.T) {
	w := form.New(newValidator(t))
	w.SetCustomer(customer())
	require.NoError(t, w.Next())

	w.Back()
	require.Equal(t, form.StepCustomer, w.Step())

	w.Back()
	require.Equal(t, form.StepCustomer, w.Step())
}

func TestWizard_ItemRows(t *testing.T) {
	w := form.New(newValidator(t))

	require.ErrorIs(t, w.RemoveItem(0), form.ErrLastItem)
	require.ErrorIs(t, w.RemoveItem(3), form.ErrItemIndex)

	w.AddItem()
	require.Len(t, w.Items(), 2)
	require.NoError(t, w.UpdateItem(1, entity.OrderItem{Name: "Springtails", Quantity: 2, Price: 100}))
	require.NoError(t, w.RemoveItem(0))
	require.Equal(t, "Springtails", w.Items()[0].Name)
	require.Equal(t, 2, w.Totals().QuantityTotal)
}

func TestWizard_AutoRecomputeAndOverride(t *testing.T) {
	w := form.New(newValidator(t))
	require.NoError(t, w.UpdateItem(0, entity.OrderItem{Name: "Isopod Culture", Quantity: 3, Price: 250}))
	require.InDelta(t, 750, w.Payment().Value(), 1e-9)

	w.SetShippingCharges(50)
	require.InDelta(t, 800, w.Payment().Value(), 1e-9)

	w.OverridePayment(780)
	require.True(t, w.Payment().IsOverridden())

	w.SetShipping(entity.ShippingDetails{CourierService: "DTDC", ShippingCharges: 50})
	require.True(t, w.Payment().IsOverridden(), "unchanged charges keep the override")

	w.AddItem()
	require.False(t, w.Payment().IsOverridden())
	require.InDelta(t, 800, w.Payment().Value(), 1e-9)
}

func TestWizard_Submit(t *testing.T) {
	v := newValidator(t)

	w := form.New(v)
	_, err := w.Submit()
	require.ErrorIs(t, err, form.ErrNotFinalStep)

	w.SetCustomer(customer())
	require.NoError(t, w.Next())
	require.NoError(t, w.UpdateItem(0, entity.OrderItem{Name: "Isopod Culture", Quantity: 3, Price: 250}))
	require.NoError(t, w.Next())

	notes := ""
	w.SetShipping(entity.ShippingDetails{ShippingCharges: 50, Notes: &notes})
	w.OverridePayment(700)

	in, err := w.Submit()
	require.NoError(t, err)
	require.Nil(t, in.Notes)
	require.True(t, in.PaymentOverride)
	require.InDelta(t, 700, *in.PaymentAmount, 1e-9)
}

func TestWizard_EditKeepsStoredOverride(t *testing.T) {
	order, err := entity.NewOrder(entity.OrderInput{
		CustomerDetails: customer(),
		Items:           []entity.OrderItem{{Name: "Cork Bark", Quantity: 1, Price: 300}},
	})
	require.NoError(t, err)
	order.OverridePayment(250)

	w := form.Edit(newValidator(t), order)
	require.Equal(t, form.ModeEdit, w.Mode())
	require.True(t, w.Payment().IsOverridden())

	in := form.InputOf(order)
	require.True(t, in.PaymentOverride)
	require.InDelta(t, 250, *in.PaymentAmount, 1e-9)
}

func TestParseStep(t *testing.T) {
	testCases := []struct {
		desc    string
		input   string
		want    form.Step
		wantErr bool
	}{
		{desc: "Name", input: "items", want: form.StepItems},
		{desc: "MixedCase", input: "Shipping", want: form.StepShipping},
		{desc: "Number", input: "1", want: form.StepCustomer},
		{desc: "OutOfRange", input: "4", wantErr: true},
		{desc: "Unknown", input: "payment", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			got, err := form.ParseStep(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, entity.ErrInvalidData)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestCheckStep(t *testing.T) {
	v := newValidator(t)

	next, errs, err := form.CheckStep(v, form.StepCustomer, entity.OrderInput{CustomerDetails: customer()})
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Equal(t, form.StepItems, next)

	next, errs, err = form.CheckStep(v, form.StepItems, entity.OrderInput{})
	require.NoError(t, err)
	require.Equal(t, form.StepItems, next)
	require.Equal(t, "At least one item is required", errs["items"])

	next, _, err = form.CheckStep(v, form.StepShipping, entity.OrderInput{})
	require.NoError(t, err)
	require.Equal(t, form.StepShipping, next)
	require.Equal(t, "Shipping", next.String())
}

func TestWizard_GatesMatchCheckStep(t *testing.T) {
	v := newValidator(t)
	w := form.New(v)
	in := entity.OrderInput{Items: []entity.OrderItem{{Quantity: 1}}}

	next, errs, err := form.CheckStep(v, w.Step(), in)
	require.NoError(t, err)
	require.ErrorIs(t, w.Next(), entity.ErrInvalidData)
	require.Equal(t, next, w.Step())
	require.Equal(t, errs, w.Errors())

	in.CustomerDetails = customer()
	w.SetCustomer(in.CustomerDetails)

	next, errs, err = form.CheckStep(v, w.Step(), in)
	require.NoError(t, err)
	require.Empty(t, errs)
	require.NoError(t, w.Next())
	require.Equal(t, next, w.Step())

	next, errs, err = form.CheckStep(v, w.Step(), in)
	require.NoError(t, err)
	require.ErrorIs(t, w.Next(), entity.ErrInvalidData)
	require.Equal(t, next, w.Step())
	require.Equal(t, errs, w.Errors())
}
