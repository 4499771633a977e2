package entity

import (
	"time"

	"github.com/google/uuid"
)

type (
	OrderItem struct {
		Name     string  `json:"name"     validate:"notblank"`
		Quantity int     `json:"quantity" validate:"gte=1"`
		Price    float64 `json:"price"    validate:"gte=0"`
	}

	// CustomerDetails is the first step of the order form and the customer
	// block of a stored order.
	CustomerDetails struct {
		CustomerName      string  `json:"customer_name"       validate:"notblank"`
		Phone             string  `json:"phone"               validate:"notblank,phone10"`
		Email             *string `json:"email"               validate:"omitempty,basic_email"`
		SocialMediaHandle *string `json:"social_media_handle"`
		Address           string  `json:"address"             validate:"notblank"`
	}

	// ShippingDetails is the third step of the order form as submitted by the
	// operator. SentDate is kept as text until the order is built.
	ShippingDetails struct {
		CourierService  string  `json:"courier_service"`
		CourierReceipt  *string `json:"courier_receipt"`
		SentDate        *string `json:"sent_date"        validate:"omitempty,sent_date"`
		ShippingCharges float64 `json:"shipping_charges" validate:"gte=0"`
		Notes           *string `json:"notes"`
	}

	// OrderInput is the body of a create or replace request.
	OrderInput struct {
		CustomerDetails
		Items []OrderItem `json:"items"`
		ShippingDetails

		PaymentAmount   *float64 `json:"payment_amount,omitempty"   validate:"omitempty,gte=0"`
		PaymentOverride bool     `json:"payment_override,omitempty"`
		Status          Status   `json:"status,omitempty"           validate:"omitempty,order_status"`
	}

	Order struct {
		ID        uuid.UUID `json:"id"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`

		CustomerDetails

		Items         []OrderItem `json:"items"`
		QuantityTotal int         `json:"quantity_total"`

		CourierService  string        `json:"courier_service"`
		CourierReceipt  *string       `json:"courier_receipt"`
		SentDate        *Date         `json:"sent_date"`
		ShippingCharges float64       `json:"shipping_charges"`
		PaymentAmount   PaymentAmount `json:"payment_amount"`

		Status Status  `json:"status"`
		Notes  *string `json:"notes"`
	}

	OrderFilter struct {
		Status Status
		Query  string
	}

	DeletedOrder struct {
		ID           uuid.UUID `json:"deletedOrderId"`
		CustomerName string    `json:"deletedCustomer"`
	}
)

// NewItem is the blank row offered when the operator adds an item.
func NewItem() OrderItem {
	return OrderItem{Quantity: 1}
}

// NewOrder builds an order from a normalized input. Derived fields are
// computed here; an explicit override in the input is kept as Overridden.
func NewOrder(in OrderInput) (*Order, error) {
	in = Normalize(in)

	sentDate, err := ParseSentDate(in.SentDate)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = StatusPending
	}

	order := &Order{
		CustomerDetails: in.CustomerDetails,
		CourierService:  in.CourierService,
		CourierReceipt:  in.CourierReceipt,
		SentDate:        sentDate,
		Status:          status,
		Notes:           in.Notes,
	}
	order.SetItems(in.Items)
	order.SetShippingCharges(in.ShippingCharges)

	if in.PaymentOverride && in.PaymentAmount != nil {
		order.OverridePayment(*in.PaymentAmount)
	}

	return order, nil
}

// SetItems replaces the item rows and recomputes both derived fields.
func (o *Order) SetItems(items []OrderItem) {
	o.Items = append([]OrderItem(nil), items...)
	o.recompute()
}

// SetShippingCharges replaces the shipping charges and recomputes the
// payment amount, dropping any earlier override.
func (o *Order) SetShippingCharges(charges float64) {
	o.ShippingCharges = charges
	o.recompute()
}

func (o *Order) OverridePayment(amount float64) {
	o.PaymentAmount = Overridden(amount)
}

func (o *Order) Totals() Totals {
	return Recompute(o.Items, o.ShippingCharges)
}

// RestorePaymentTag marks a payment amount read back from storage as
// overridden when it no longer matches the computed total.
func (o *Order) RestorePaymentTag() {
	totals := o.Totals()
	o.PaymentAmount = Reconcile(o.PaymentAmount.Value(), totals.PaymentAmount)
}

// ApplyStatus moves the order to status. Moving to shipped stamps the sent
// date with now unless one is already recorded.
func (o *Order) ApplyStatus(status Status, now time.Time) {
	o.Status = status
	o.UpdatedAt = now

	if status == StatusShipped && o.SentDate == nil {
		d := DateOf(now)
		o.SentDate = &d
	}
}

func (o *Order) recompute() {
	totals := Recompute(o.Items, o.ShippingCharges)
	o.QuantityTotal = totals.QuantityTotal
	o.PaymentAmount = Computed(totals.PaymentAmount)
}
