// Package export turns orders into spreadsheet rows and encodes them as an
// .xlsx workbook.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"orderdesk/internal/entity"
	"orderdesk/pkg/metric"

	"github.com/shopspring/decimal"
)

const (
	SheetName = "Orders"

	_notApplicable = "N/A"
	_notSent       = "Not Sent"
	_orderDate     = "2006-01-02 15:04"
	_minColWidth   = 10
	_maxColWidth   = 50
)

var ErrNoOrders = errors.New("no orders to export")

// Columns is the header row, in cell order.
var Columns = []string{
	"Order ID",
	"Customer Name",
	"Phone Number",
	"Email Address",
	"Social Media",
	"Shipping Address",
	"Order Date",
	"Sent Date",
	"Status",
	"Courier Service",
	"Tracking Number",
	"Items Details",
	"Items Total",
	"Shipping Charges",
	"Total Amount",
	"Notes",
}

type (
	Exporter struct {
		loc     *time.Location
		metrics metric.Orders
		now     func() time.Time
	}

	Option func(*Exporter)
)

func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

// New builds an Exporter that renders timestamps in timezone.
func New(timezone string, metrics metric.Orders, opts ...Option) (*Exporter, error) {
	const op = "export.New"

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: load location %q: %w", op, timezone, err)
	}

	e := &Exporter{
		loc:     loc,
		metrics: metrics,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// FileName is the download name for an export produced now.
func (e *Exporter) FileName() string {
	return "isopod_orders_" + e.now().In(e.loc).Format(entity.DateLayout) + ".xlsx"
}

// Row renders one order in Columns order. Money cells are numbers rounded
// to two places, every other cell is text.
func (e *Exporter) Row(order *entity.Order) []any {
	sentDate := _notSent
	if order.SentDate != nil {
		sentDate = order.SentDate.String()
	}

	return []any{
		order.ID.String(),
		order.CustomerName,
		order.Phone,
		orNA(order.Email),
		orNA(order.SocialMediaHandle),
		order.Address,
		order.CreatedAt.In(e.loc).Format(_orderDate),
		sentDate,
		order.Status.Title(),
		orNA(&order.CourierService),
		orNA(order.CourierReceipt),
		ItemsDetails(order.Items),
		money(entity.ItemsSubtotal(order.Items)),
		money(order.ShippingCharges),
		money(order.PaymentAmount.Value()),
		orNA(order.Notes),
	}
}

func (e *Exporter) Rows(orders []entity.Order) [][]any {
	rows := make([][]any, 0, len(orders))
	for i := range orders {
		rows = append(rows, e.Row(&orders[i]))
	}
	return rows
}

// ItemsDetails joins items as "name (Qty: n, ₹price)" separated by "; ".
func ItemsDetails(items []entity.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s (Qty: %d, ₹%s)",
			item.Name, item.Quantity, decimal.NewFromFloat(item.Price).String()))
	}
	return strings.Join(parts, "; ")
}

// ColumnWidth is the widest rendered cell across rows, at least 10 and at
// most 50. Every column gets the same width.
func ColumnWidth(rows [][]any) int {
	width := _minColWidth
	for _, row := range rows {
		for _, cell := range row {
			if n := utf8.RuneCountInString(cellText(cell)); n > width {
				width = n
			}
		}
	}
	return min(width, _maxColWidth)
}

func cellText(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return decimal.NewFromFloat(v).String()
	default:
		return fmt.Sprint(v)
	}
}

func money(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func orNA(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return _notApplicable
	}
	return *s
}
