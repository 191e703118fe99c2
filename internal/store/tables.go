package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tableColumns = `id, restaurant_id, outlet_id, name, seats, status,
	current_order, merged_into, created_at, updated_at`

func scanTable(row pgx.Row) (Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.RestaurantID, &t.OutletID, &t.Name, &t.Seats, &t.Status,
		&t.CurrentOrder, &t.MergedInto, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tableColumns+` FROM tables WHERE id = $1`, id)
	return scanTable(row)
}

type BindTableParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

// BindTable seats an order at a table with a single conditional write: the
// bind succeeds only if the table is currently available or reserved, not
// merged into another table, and not holding an order. Exactly one of two
// racing binds wins; the loser sees no row.
func (q *Queries) BindTable(ctx context.Context, arg BindTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE tables SET status = 'occupied', current_order = $2, updated_at = now()
		WHERE id = $1
		  AND status IN ('available','reserved')
		  AND current_order IS NULL
		  AND merged_into IS NULL
		RETURNING `+tableColumns, arg.ID, arg.OrderID)
	return scanTable(row)
}

type UnbindTableParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

// UnbindTable releases a table only if it is still bound to the given order.
func (q *Queries) UnbindTable(ctx context.Context, arg UnbindTableParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE tables SET status = 'available', current_order = NULL, updated_at = now()
		WHERE id = $1 AND current_order = $2
		RETURNING `+tableColumns, arg.ID, arg.OrderID)
	return scanTable(row)
}

type SetTableMergedIntoParams struct {
	ID         uuid.UUID
	MergedInto uuid.UUID
}

func (q *Queries) SetTableMergedInto(ctx context.Context, arg SetTableMergedIntoParams) (Table, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE tables SET merged_into = $2, status = 'occupied', current_order = NULL, updated_at = now()
		WHERE id = $1
		RETURNING `+tableColumns, arg.ID, arg.MergedInto)
	return scanTable(row)
}

// ClearTableMerge splits a secondary table off its primary. The status
// reverts to available only when no order remains bound.
func (q *Queries) ClearTableMerge(ctx context.Context, id uuid.UUID) (Table, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE tables SET merged_into = NULL,
			status = CASE WHEN current_order IS NULL THEN 'available' ELSE status END,
			updated_at = now()
		WHERE id = $1
		RETURNING `+tableColumns, id)
	return scanTable(row)
}

type ListTablesParams struct {
	OutletID uuid.UUID
}

func (q *Queries) ListTables(ctx context.Context, arg ListTablesParams) ([]Table, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+tableColumns+` FROM tables WHERE outlet_id = $1 ORDER BY name`, arg.OutletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}
