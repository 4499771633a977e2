package form

import (
	"errors"
	"fmt"

	"orderdesk/internal/entity"
	"orderdesk/internal/validation"
)

var (
	ErrLastItem     = errors.New("an order keeps at least one item row")
	ErrItemIndex    = errors.New("item index out of range")
	ErrNotFinalStep = errors.New("order can be submitted only from the shipping step")
	ErrFinalStep    = errors.New("shipping is the last step")
)

type Mode uint8

const (
	ModeCreate Mode = iota
	ModeEdit
)

// Wizard holds one in-progress create or edit session. It is the client-side
// model of the dashboard form; the server only runs the same gates through
// CheckStep. Totals follow every change to items or shipping charges, and a
// payment override lasts until the next such change.
type Wizard struct {
	validator *validation.Validator
	mode      Mode
	step      Step
	input     entity.OrderInput
	payment   entity.PaymentAmount
	errors    entity.FieldErrors
}

// New starts a create session with one blank item row.
func New(v *validation.Validator) *Wizard {
	w := &Wizard{
		validator: v,
		mode:      ModeCreate,
		step:      StepCustomer,
		input: entity.OrderInput{
			Items:  []entity.OrderItem{entity.NewItem()},
			Status: entity.StatusPending,
		},
		errors: entity.FieldErrors{},
	}
	w.recompute()

	return w
}

// Edit starts a session prefilled from a stored order. A stored override
// is kept until items or shipping change.
func Edit(v *validation.Validator, order *entity.Order) *Wizard {
	w := &Wizard{
		validator: v,
		mode:      ModeEdit,
		step:      StepCustomer,
		input:     InputOf(order),
		payment:   order.PaymentAmount,
		errors:    entity.FieldErrors{},
	}

	return w
}

// InputOf converts a stored order back into a request body.
func InputOf(order *entity.Order) entity.OrderInput {
	in := entity.OrderInput{
		CustomerDetails: order.CustomerDetails,
		Items:           append([]entity.OrderItem(nil), order.Items...),
		ShippingDetails: entity.ShippingDetails{
			CourierService:  order.CourierService,
			CourierReceipt:  order.CourierReceipt,
			ShippingCharges: order.ShippingCharges,
			Notes:           order.Notes,
		},
		Status: order.Status,
	}

	if order.SentDate != nil {
		s := order.SentDate.String()
		in.SentDate = &s
	}

	if order.PaymentAmount.IsOverridden() {
		amount := order.PaymentAmount.Value()
		in.PaymentAmount = &amount
		in.PaymentOverride = true
	}

	return in
}

func (w *Wizard) Mode() Mode { return w.mode }

func (w *Wizard) Step() Step { return w.step }

func (w *Wizard) Errors() entity.FieldErrors { return w.errors }

func (w *Wizard) Payment() entity.PaymentAmount { return w.payment }

func (w *Wizard) Items() []entity.OrderItem {
	return append([]entity.OrderItem(nil), w.input.Items...)
}

func (w *Wizard) Totals() entity.Totals {
	return entity.Recompute(w.input.Items, w.input.ShippingCharges)
}

// Next moves forward when the current step passes its gate. Field errors
// are kept on the wizard and returned as a *entity.ValidationError.
func (w *Wizard) Next() error {
	tr := transitions[w.step]
	if tr.next == 0 {
		return ErrFinalStep
	}

	w.errors = tr.gate(w.validator, entity.Normalize(w.input))
	if err := w.errors.Err(); err != nil {
		return err
	}

	w.step = tr.next

	return nil
}

func (w *Wizard) Back() {
	if prev := transitions[w.step].prev; prev != 0 {
		w.step = prev
		w.errors = entity.FieldErrors{}
	}
}

func (w *Wizard) SetCustomer(c entity.CustomerDetails) {
	w.input.CustomerDetails = c
}

func (w *Wizard) AddItem() {
	w.input.Items = append(w.input.Items, entity.NewItem())
	w.recompute()
}

func (w *Wizard) RemoveItem(i int) error {
	if err := w.checkIndex(i); err != nil {
		return err
	}
	if len(w.input.Items) == 1 {
		return ErrLastItem
	}

	w.input.Items = append(w.input.Items[:i:i], w.input.Items[i+1:]...)
	w.recompute()

	return nil
}

func (w *Wizard) UpdateItem(i int, item entity.OrderItem) error {
	if err := w.checkIndex(i); err != nil {
		return err
	}

	w.input.Items[i] = item
	w.recompute()

	return nil
}

// SetShipping replaces the shipping page. Charges go through
// SetShippingCharges so the payment follows them.
func (w *Wizard) SetShipping(s entity.ShippingDetails) {
	charges := s.ShippingCharges
	s.ShippingCharges = w.input.ShippingCharges
	w.input.ShippingDetails = s
	w.SetShippingCharges(charges)
}

func (w *Wizard) SetShippingCharges(charges float64) {
	if charges == w.input.ShippingCharges {
		return
	}
	w.input.ShippingCharges = charges
	w.recompute()
}

func (w *Wizard) SetStatus(s entity.Status) {
	w.input.Status = s
}

func (w *Wizard) OverridePayment(amount float64) {
	w.payment = entity.Overridden(amount)
}

// Submit validates the whole order and returns the body to send. It is
// allowed only from the last step.
func (w *Wizard) Submit() (entity.OrderInput, error) {
	if !w.step.Final() {
		return entity.OrderInput{}, ErrNotFinalStep
	}

	in := entity.Normalize(w.input)
	in.PaymentAmount = nil
	in.PaymentOverride = false
	if w.payment.IsOverridden() {
		amount := w.payment.Value()
		in.PaymentAmount = &amount
		in.PaymentOverride = true
	}

	var err error
	if w.mode == ModeCreate {
		err = w.validator.ValidateForCreate(in)
	} else {
		err = w.validator.ValidateOrder(in)
	}

	if err != nil {
		var verr *entity.ValidationError
		if errors.As(err, &verr) {
			w.errors = verr.Fields
		}
		return entity.OrderInput{}, err
	}

	w.errors = entity.FieldErrors{}

	return in, nil
}

func (w *Wizard) checkIndex(i int) error {
	if i < 0 || i >= len(w.input.Items) {
		return fmt.Errorf("%w: %d", ErrItemIndex, i)
	}
	return nil
}

func (w *Wizard) recompute() {
	w.payment = entity.Computed(w.Totals().PaymentAmount)
}
