package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, restaurant_id, outlet_id, table_id, order_number, order_type,
	status, subtotal, tax_total, discount_total, service_charge, total, notes,
	idempotency_key, merged_into, split_from, placed_by, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.RestaurantID, &o.OutletID, &o.TableID, &o.OrderNumber, &o.OrderType,
		&o.Status, &o.Subtotal, &o.TaxTotal, &o.DiscountTotal, &o.ServiceCharge,
		&o.Total, &o.Notes, &o.IdempotencyKey, &o.MergedInto, &o.SplitFrom,
		&o.PlacedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// GetOrderForUpdate locks the order row for the rest of the transaction so
// that concurrent operations on the same order serialize instead of
// interleaving partial writes.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	return scanOrder(row)
}

type GetOrderByIdempotencyKeyParams struct {
	RestaurantID   uuid.UUID
	IdempotencyKey string
}

func (q *Queries) GetOrderByIdempotencyKey(ctx context.Context, arg GetOrderByIdempotencyKeyParams) (Order, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE restaurant_id = $1 AND idempotency_key = $2`,
		arg.RestaurantID, arg.IdempotencyKey)
	return scanOrder(row)
}

// GetNextOrderNumber returns MAX+1 of the numeric suffix of order numbers in
// the outlet. Concurrent transactions can read the same value; the unique
// constraint on (outlet_id, order_number) catches the race and the service
// retries.
func (q *Queries) GetNextOrderNumber(ctx context.Context, outletID uuid.UUID) (int32, error) {
	var next int32
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(SUBSTRING(order_number FROM 5)::INT), 0) + 1
		 FROM orders WHERE outlet_id = $1`, outletID).Scan(&next)
	return next, err
}

type CreateOrderParams struct {
	RestaurantID   uuid.UUID
	OutletID       uuid.UUID
	TableID        pgtype.UUID
	OrderNumber    string
	OrderType      string
	Status         string
	Subtotal       pgtype.Numeric
	TaxTotal       pgtype.Numeric
	DiscountTotal  pgtype.Numeric
	ServiceCharge  pgtype.Numeric
	Total          pgtype.Numeric
	Notes          string
	IdempotencyKey pgtype.Text
	SplitFrom      pgtype.UUID
	PlacedBy       uuid.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (restaurant_id, outlet_id, table_id, order_number, order_type,
			status, subtotal, tax_total, discount_total, service_charge, total, notes,
			idempotency_key, split_from, placed_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING `+orderColumns,
		arg.RestaurantID, arg.OutletID, arg.TableID, arg.OrderNumber, arg.OrderType,
		arg.Status, arg.Subtotal, arg.TaxTotal, arg.DiscountTotal, arg.ServiceCharge,
		arg.Total, arg.Notes, arg.IdempotencyKey, arg.SplitFrom, arg.PlacedBy)
	return scanOrder(row)
}

type UpdateOrderTotalsParams struct {
	ID            uuid.UUID
	Subtotal      pgtype.Numeric
	TaxTotal      pgtype.Numeric
	DiscountTotal pgtype.Numeric
	ServiceCharge pgtype.Numeric
	Total         pgtype.Numeric
}

func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET subtotal = $2, tax_total = $3, discount_total = $4,
			service_charge = $5, total = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns,
		arg.ID, arg.Subtotal, arg.TaxTotal, arg.DiscountTotal, arg.ServiceCharge, arg.Total)
	return scanOrder(row)
}

type UpdateOrderStatusParams struct {
	ID     uuid.UUID
	Status string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, arg.ID, arg.Status)
	return scanOrder(row)
}

type UpdateOrderTableParams struct {
	ID      uuid.UUID
	TableID pgtype.UUID
}

func (q *Queries) UpdateOrderTable(ctx context.Context, arg UpdateOrderTableParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET table_id = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, arg.ID, arg.TableID)
	return scanOrder(row)
}

type MarkOrderMergedParams struct {
	ID         uuid.UUID
	MergedInto uuid.UUID
}

// MarkOrderMerged cancels the source order of a merge and records the target
// as lineage.
func (q *Queries) MarkOrderMerged(ctx context.Context, arg MarkOrderMergedParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET status = 'cancelled', merged_into = $2, table_id = NULL, updated_at = now()
		WHERE id = $1
		RETURNING `+orderColumns, arg.ID, arg.MergedInto)
	return scanOrder(row)
}

type ListOrdersParams struct {
	OutletID uuid.UUID
	Status   pgtype.Text
	Limit    int32
	Offset   int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE outlet_id = $1 AND ($2::TEXT IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		arg.OutletID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
