package entity

type Totals struct {
	QuantityTotal int     `json:"quantity_total"`
	ItemsSubtotal float64 `json:"items_subtotal"`
	PaymentAmount float64 `json:"payment_amount"`
}

func LineTotal(item OrderItem) float64 {
	return float64(item.Quantity) * item.Price
}

func ItemsSubtotal(items []OrderItem) float64 {
	var sum float64
	for _, it := range items {
		sum += LineTotal(it)
	}

	return sum
}

// Recompute derives quantity_total and payment_amount. Zero values count as
// zero; it never fails.
func Recompute(items []OrderItem, shippingCharges float64) Totals {
	var qty int
	for _, it := range items {
		qty += it.Quantity
	}

	subtotal := ItemsSubtotal(items)

	return Totals{
		QuantityTotal: qty,
		ItemsSubtotal: subtotal,
		PaymentAmount: subtotal + shippingCharges,
	}
}
