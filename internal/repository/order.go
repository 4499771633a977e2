package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"orderdesk/internal/entity"
	"orderdesk/pkg/storage/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:generate mockgen -source=../service/service.go -destination=mock/repository.go -package=mock_repository

const _ordersTable = "orders"

var orderColumns = []string{
	"id", "created_at", "updated_at",
	"customer_name", "phone", "email", "social_media_handle", "address",
	"items", "quantity_total",
	"courier_service", "courier_receipt", "sent_date", "shipping_charges", "payment_amount",
	"status", "notes",
}

var returningOrder = "RETURNING " + strings.Join(orderColumns, ", ")

type OrderRepository struct {
	db *postgres.Postgres
}

func NewOrderRepository(db *postgres.Postgres) *OrderRepository {
	return &OrderRepository{db}
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) (*entity.Order, error) {
	const op = "repository.order.Create"

	items, err := json.Marshal(itemsOrEmpty(order.Items))
	if err != nil {
		return nil, fmt.Errorf("%s: marshal items: %w", op, err)
	}

	query := r.db.Builder.Insert(_ordersTable).
		Columns(
			"customer_name", "phone", "email", "social_media_handle", "address",
			"items", "quantity_total",
			"courier_service", "courier_receipt", "sent_date", "shipping_charges", "payment_amount",
			"status", "notes",
		).
		Values(
			order.CustomerName, order.Phone, order.Email, order.SocialMediaHandle, order.Address,
			items, order.QuantityTotal,
			order.CourierService, order.CourierReceipt, sentDateArg(order.SentDate),
			order.ShippingCharges, order.PaymentAmount.Value(),
			string(order.Status), order.Notes,
		).
		Suffix(returningOrder)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	result, err := scanOrder(r.db.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, toPersistenceError(op, err)
	}

	return result, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	const op = "repository.order.GetByID"

	query := r.db.Builder.Select(orderColumns...).
		From(_ordersTable).
		Where(squirrel.Eq{"id": id}).
		Limit(1)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	result, err := scanOrder(r.db.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, toPersistenceError(op, err)
	}

	return result, nil
}

// List returns orders newest first. An empty filter returns every order.
func (r *OrderRepository) List(ctx context.Context, filter entity.OrderFilter) ([]entity.Order, error) {
	const op = "repository.order.List"

	query := r.db.Builder.Select(orderColumns...).
		From(_ordersTable).
		OrderBy("created_at DESC")

	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": string(filter.Status)})
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		query = query.Where(squirrel.Or{
			squirrel.ILike{"customer_name": pattern},
			squirrel.ILike{"phone": pattern},
			squirrel.ILike{"email": pattern},
			squirrel.ILike{"courier_receipt": pattern},
			squirrel.Expr(
				"EXISTS (SELECT 1 FROM jsonb_array_elements(items) AS item WHERE item->>'name' ILIKE ?)",
				pattern,
			),
		})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, toPersistenceError(op, err)
	}
	defer rows.Close()

	orders := make([]entity.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: row scan: %w", op, err)
		}
		orders = append(orders, *order)
	}

	if err = rows.Err(); err != nil {
		return nil, toPersistenceError(op, err)
	}

	return orders, nil
}

// Replace overwrites every editable column of order id. An empty status
// keeps the stored one.
func (r *OrderRepository) Replace(ctx context.Context, id uuid.UUID, order *entity.Order) (*entity.Order, error) {
	const op = "repository.order.Replace"

	query, err := replaceQuery(r.db.Builder, id, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	result, err := scanOrder(r.db.Pool.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, toPersistenceError(op, err)
	}

	return result, nil
}

func replaceQuery(builder squirrel.StatementBuilderType, id uuid.UUID, order *entity.Order) (squirrel.UpdateBuilder, error) {
	items, err := json.Marshal(itemsOrEmpty(order.Items))
	if err != nil {
		return squirrel.UpdateBuilder{}, fmt.Errorf("marshal items: %w", err)
	}

	columns := map[string]any{
		"customer_name":       order.CustomerName,
		"phone":               order.Phone,
		"email":               order.Email,
		"social_media_handle": order.SocialMediaHandle,
		"address":             order.Address,
		"items":               items,
		"quantity_total":      order.QuantityTotal,
		"courier_service":     order.CourierService,
		"courier_receipt":     order.CourierReceipt,
		"sent_date":           sentDateArg(order.SentDate),
		"shipping_charges":    order.ShippingCharges,
		"payment_amount":      order.PaymentAmount.Value(),
		"notes":               order.Notes,
		"updated_at":          squirrel.Expr("now()"),
	}
	if order.Status != "" {
		columns["status"] = string(order.Status)
	}

	return builder.Update(_ordersTable).
		SetMap(columns).
		Where(squirrel.Eq{"id": id}).
		Suffix(returningOrder), nil
}

// GetForUpdate locks the row of order id until the surrounding transaction ends.
func (r *OrderRepository) GetForUpdate(
	ctx context.Context,
	queryExecuter postgres.QueryExecuter,
	id uuid.UUID,
) (*entity.Order, error) {
	const op = "repository.order.GetForUpdate"

	query := r.db.Builder.Select(orderColumns...).
		From(_ordersTable).
		Where(squirrel.Eq{"id": id}).
		Suffix("FOR UPDATE")

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	result, err := scanOrder(r.db.Executer(queryExecuter).QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, toPersistenceError(op, err)
	}

	return result, nil
}

// UpdateStatus writes status, sent_date and updated_at of order.
func (r *OrderRepository) UpdateStatus(
	ctx context.Context,
	queryExecuter postgres.QueryExecuter,
	order *entity.Order,
) (*entity.Order, error) {
	const op = "repository.order.UpdateStatus"

	query := r.db.Builder.Update(_ordersTable).
		Set("status", string(order.Status)).
		Set("sent_date", sentDateArg(order.SentDate)).
		Set("updated_at", order.UpdatedAt).
		Where(squirrel.Eq{"id": order.ID}).
		Suffix(returningOrder)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: building query: %w", op, err)
	}

	result, err := scanOrder(r.db.Executer(queryExecuter).QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, toPersistenceError(op, err)
	}

	return result, nil
}

func (r *OrderRepository) Delete(
	ctx context.Context,
	queryExecuter postgres.QueryExecuter,
	id uuid.UUID,
) (entity.DeletedOrder, error) {
	const op = "repository.order.Delete"

	query := r.db.Builder.Delete(_ordersTable).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING id, customer_name")

	sql, args, err := query.ToSql()
	if err != nil {
		return entity.DeletedOrder{}, fmt.Errorf("%s: building query: %w", op, err)
	}

	var deleted entity.DeletedOrder
	if err = r.db.Executer(queryExecuter).QueryRow(ctx, sql, args...).Scan(&deleted.ID, &deleted.CustomerName); err != nil {
		return entity.DeletedOrder{}, toPersistenceError(op, err)
	}

	return deleted, nil
}

func scanOrder(row pgx.Row) (*entity.Order, error) {
	var (
		o        entity.Order
		items    []byte
		sentDate *time.Time
		payment  float64
		status   string
	)

	err := row.Scan(
		&o.ID, &o.CreatedAt, &o.UpdatedAt,
		&o.CustomerName, &o.Phone, &o.Email, &o.SocialMediaHandle, &o.Address,
		&items, &o.QuantityTotal,
		&o.CourierService, &o.CourierReceipt, &sentDate, &o.ShippingCharges, &payment,
		&status, &o.Notes,
	)
	if err != nil {
		return nil, err
	}

	if err = json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}

	if sentDate != nil {
		d := entity.DateOf(*sentDate)
		o.SentDate = &d
	}

	o.Status = entity.Status(status)
	o.PaymentAmount = entity.Computed(payment)
	o.RestorePaymentTag()

	return &o, nil
}

// toPersistenceError keeps pgx.ErrNoRows as the only not-found signal.
func toPersistenceError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, entity.ErrDataNotFound)
	}

	pe := &entity.PersistenceError{Op: op, Cause: err}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		pe.Code = pgErr.Code
		pe.Message = pgErr.Message
		pe.Detail = pgErr.Detail
		pe.Hint = pgErr.Hint

		switch pgErr.Code {
		case "23505":
			pe.Kind = entity.ErrConflictingData
		case "23502", "23514", "22P02", "22007", "22008":
			pe.Kind = entity.ErrInvalidData
		}
	}

	return pe
}

func sentDateArg(d *entity.Date) any {
	if d == nil {
		return nil
	}
	return d.Time
}

func itemsOrEmpty(items []entity.OrderItem) []entity.OrderItem {
	if items == nil {
		return []entity.OrderItem{}
	}
	return items
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
