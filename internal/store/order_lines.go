package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderLineColumns = `id, order_id, position, menu_item_id, name, variant_id,
	variant_name, quantity, unit_price, discount, note, modifiers`

func (q *Queries) ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]OrderLine, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+orderLineColumns+` FROM order_lines WHERE order_id = $1 ORDER BY position`,
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(
			&l.ID, &l.OrderID, &l.Position, &l.MenuItemID, &l.Name, &l.VariantID,
			&l.VariantName, &l.Quantity, &l.UnitPrice, &l.Discount, &l.Note, &l.Modifiers,
		); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

type InsertOrderLineParams struct {
	OrderID     uuid.UUID
	Position    int32
	MenuItemID  pgtype.UUID
	Name        string
	VariantID   pgtype.UUID
	VariantName string
	Quantity    int32
	UnitPrice   pgtype.Numeric
	Discount    pgtype.Numeric
	Note        string
	Modifiers   []LineModifier
}

func (q *Queries) InsertOrderLine(ctx context.Context, arg InsertOrderLineParams) (OrderLine, error) {
	mods := arg.Modifiers
	if mods == nil {
		mods = []LineModifier{}
	}
	row := q.db.QueryRow(ctx, `
		INSERT INTO order_lines (order_id, position, menu_item_id, name, variant_id,
			variant_name, quantity, unit_price, discount, note, modifiers)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING `+orderLineColumns,
		arg.OrderID, arg.Position, arg.MenuItemID, arg.Name, arg.VariantID,
		arg.VariantName, arg.Quantity, arg.UnitPrice, arg.Discount, arg.Note, mods)
	var l OrderLine
	err := row.Scan(
		&l.ID, &l.OrderID, &l.Position, &l.MenuItemID, &l.Name, &l.VariantID,
		&l.VariantName, &l.Quantity, &l.UnitPrice, &l.Discount, &l.Note, &l.Modifiers,
	)
	return l, err
}

func (q *Queries) DeleteOrderLines(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, orderID)
	return err
}

type MoveOrderLinesParams struct {
	FromOrderID    uuid.UUID
	ToOrderID      uuid.UUID
	PositionOffset int32
}

// MoveOrderLines relocates every line of one order onto another, shifting
// positions past the target's existing lines. Used by order merges.
func (q *Queries) MoveOrderLines(ctx context.Context, arg MoveOrderLinesParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE order_lines SET order_id = $2, position = position + $3 WHERE order_id = $1`,
		arg.FromOrderID, arg.ToOrderID, arg.PositionOffset)
	return err
}

type MoveOrderLineParams struct {
	ID        uuid.UUID
	ToOrderID uuid.UUID
	Position  int32
}

// MoveOrderLine relocates a single line. Used by order splits.
func (q *Queries) MoveOrderLine(ctx context.Context, arg MoveOrderLineParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE order_lines SET order_id = $2, position = $3 WHERE id = $1`,
		arg.ID, arg.ToOrderID, arg.Position)
	return err
}

// --- Payments / refunds ---

func (q *Queries) ListPayments(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, order_id, method, amount, reference, paid_at
		 FROM payments WHERE order_id = $1 ORDER BY paid_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Reference, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

type InsertPaymentParams struct {
	OrderID   uuid.UUID
	Method    string
	Amount    pgtype.Numeric
	Reference string
}

func (q *Queries) InsertPayment(ctx context.Context, arg InsertPaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO payments (order_id, method, amount, reference)
		VALUES ($1,$2,$3,$4)
		RETURNING id, order_id, method, amount, reference, paid_at`,
		arg.OrderID, arg.Method, arg.Amount, arg.Reference)
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Reference, &p.PaidAt)
	return p, err
}

func (q *Queries) SumPayments(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1`, orderID).Scan(&n)
	if err != nil {
		return decimal.Zero, err
	}
	return NumericToDecimal(n), nil
}

type MovePaymentsParams struct {
	FromOrderID uuid.UUID
	ToOrderID   uuid.UUID
}

// MovePayments relocates an order's payment history onto another order.
// Used by order merges; payment rows themselves stay immutable apart from
// their owner.
func (q *Queries) MovePayments(ctx context.Context, arg MovePaymentsParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE payments SET order_id = $2 WHERE order_id = $1`,
		arg.FromOrderID, arg.ToOrderID)
	return err
}

func (q *Queries) ListRefunds(ctx context.Context, orderID uuid.UUID) ([]Refund, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, order_id, amount, reason, reference, refunded_at
		 FROM refunds WHERE order_id = $1 ORDER BY refunded_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refunds []Refund
	for rows.Next() {
		var r Refund
		if err := rows.Scan(&r.ID, &r.OrderID, &r.Amount, &r.Reason, &r.Reference, &r.RefundedAt); err != nil {
			return nil, err
		}
		refunds = append(refunds, r)
	}
	return refunds, rows.Err()
}

type InsertRefundParams struct {
	OrderID   uuid.UUID
	Amount    pgtype.Numeric
	Reason    string
	Reference string
}

func (q *Queries) InsertRefund(ctx context.Context, arg InsertRefundParams) (Refund, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO refunds (order_id, amount, reason, reference)
		VALUES ($1,$2,$3,$4)
		RETURNING id, order_id, amount, reason, reference, refunded_at`,
		arg.OrderID, arg.Amount, arg.Reason, arg.Reference)
	var r Refund
	err := row.Scan(&r.ID, &r.OrderID, &r.Amount, &r.Reason, &r.Reference, &r.RefundedAt)
	return r, err
}

func (q *Queries) SumRefunds(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM refunds WHERE order_id = $1`, orderID).Scan(&n)
	if err != nil {
		return decimal.Zero, err
	}
	return NumericToDecimal(n), nil
}
