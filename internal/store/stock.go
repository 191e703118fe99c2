package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const stockItemColumns = `id, restaurant_id, outlet_id, name, sku, unit, is_tracked,
	current_qty, created_at, updated_at`

func (q *Queries) GetStockItem(ctx context.Context, id uuid.UUID) (StockItem, error) {
	row := q.db.QueryRow(ctx, `SELECT `+stockItemColumns+` FROM stock_items WHERE id = $1`, id)
	var s StockItem
	err := row.Scan(&s.ID, &s.RestaurantID, &s.OutletID, &s.Name, &s.Sku, &s.Unit,
		&s.IsTracked, &s.CurrentQty, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

type ApplyStockChangeParams struct {
	ID     uuid.UUID
	Change pgtype.Numeric
}

// ApplyStockChange adds a signed quantity to current_qty in a single atomic
// statement, so concurrent orders consuming the same stock item never lose
// updates.
func (q *Queries) ApplyStockChange(ctx context.Context, arg ApplyStockChangeParams) (StockItem, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE stock_items SET current_qty = current_qty + $2, updated_at = now()
		WHERE id = $1
		RETURNING `+stockItemColumns, arg.ID, arg.Change)
	var s StockItem
	err := row.Scan(&s.ID, &s.RestaurantID, &s.OutletID, &s.Name, &s.Sku, &s.Unit,
		&s.IsTracked, &s.CurrentQty, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// ApplyStockChangeNonNegative is the FAIL_ON_NEGATIVE form: the guard lives
// in the WHERE clause so the check and the write are one statement. No row
// returned means the change would drive current_qty below zero.
func (q *Queries) ApplyStockChangeNonNegative(ctx context.Context, arg ApplyStockChangeParams) (StockItem, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE stock_items SET current_qty = current_qty + $2, updated_at = now()
		WHERE id = $1 AND current_qty + $2 >= 0
		RETURNING `+stockItemColumns, arg.ID, arg.Change)
	var s StockItem
	err := row.Scan(&s.ID, &s.RestaurantID, &s.OutletID, &s.Name, &s.Sku, &s.Unit,
		&s.IsTracked, &s.CurrentQty, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

type InsertStockMovementParams struct {
	StockItemID  uuid.UUID
	RestaurantID uuid.UUID
	OutletID     pgtype.UUID
	Change       pgtype.Numeric
	Kind         string
	Reference    string
	Note         string
	PerformedBy  uuid.UUID
}

func (q *Queries) InsertStockMovement(ctx context.Context, arg InsertStockMovementParams) (StockMovement, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO stock_movements (stock_item_id, restaurant_id, outlet_id, change,
			kind, reference, note, performed_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, stock_item_id, restaurant_id, outlet_id, change, kind, reference,
			note, performed_by, created_at`,
		arg.StockItemID, arg.RestaurantID, arg.OutletID, arg.Change,
		arg.Kind, arg.Reference, arg.Note, arg.PerformedBy)
	var m StockMovement
	err := row.Scan(&m.ID, &m.StockItemID, &m.RestaurantID, &m.OutletID, &m.Change,
		&m.Kind, &m.Reference, &m.Note, &m.PerformedBy, &m.CreatedAt)
	return m, err
}

type ListStockItemsParams struct {
	RestaurantID uuid.UUID
	Limit        int32
	Offset       int32
}

func (q *Queries) ListStockItems(ctx context.Context, arg ListStockItemsParams) ([]StockItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+stockItemColumns+` FROM stock_items
		WHERE restaurant_id = $1
		ORDER BY name
		LIMIT $2 OFFSET $3`,
		arg.RestaurantID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []StockItem
	for rows.Next() {
		var s StockItem
		if err := rows.Scan(&s.ID, &s.RestaurantID, &s.OutletID, &s.Name, &s.Sku, &s.Unit,
			&s.IsTracked, &s.CurrentQty, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

type ListStockMovementsParams struct {
	StockItemID uuid.UUID
	Limit       int32
	Offset      int32
}

func (q *Queries) ListStockMovements(ctx context.Context, arg ListStockMovementsParams) ([]StockMovement, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, stock_item_id, restaurant_id, outlet_id, change, kind, reference,
			note, performed_by, created_at
		FROM stock_movements
		WHERE stock_item_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		arg.StockItemID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.StockItemID, &m.RestaurantID, &m.OutletID, &m.Change,
			&m.Kind, &m.Reference, &m.Note, &m.PerformedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
