package entity

import "github.com/shopspring/decimal"

type Stats struct {
	Total     int     `json:"total"`
	Pending   int     `json:"pending"`
	Shipped   int     `json:"shipped"`
	Delivered int     `json:"delivered"`
	Cancelled int     `json:"cancelled"`
	Revenue   float64 `json:"revenue"`
}

// ComputeStats counts orders by status. Revenue sums item totals in decimal
// and leaves shipping out.
func ComputeStats(orders []Order) Stats {
	var (
		s       Stats
		revenue decimal.Decimal
	)
	for i := range orders {
		s.Total++
		switch orders[i].Status {
		case StatusPending:
			s.Pending++
		case StatusShipped:
			s.Shipped++
		case StatusDelivered:
			s.Delivered++
		case StatusCancelled:
			s.Cancelled++
		}
		for _, item := range orders[i].Items {
			revenue = revenue.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}
	s.Revenue = revenue.InexactFloat64()

	return s
}
