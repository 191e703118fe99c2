package store

import (
	"context"

	"github.com/google/uuid"
)

const menuItemColumns = `id, restaurant_id, name, base_price, is_active,
	variants, modifiers, recipe, created_at, updated_at`

// GetMenuItemsByIDs loads all referenced menu items in one round trip.
func (q *Queries) GetMenuItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+menuItemColumns+` FROM menu_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(
			&m.ID, &m.RestaurantID, &m.Name, &m.BasePrice, &m.IsActive,
			&m.Variants, &m.Modifiers, &m.Recipe, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

type ListMenuItemsParams struct {
	RestaurantID uuid.UUID
	Limit        int32
	Offset       int32
}

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+menuItemColumns+` FROM menu_items
		WHERE restaurant_id = $1 AND is_active
		ORDER BY name
		LIMIT $2 OFFSET $3`,
		arg.RestaurantID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(
			&m.ID, &m.RestaurantID, &m.Name, &m.BasePrice, &m.IsActive,
			&m.Variants, &m.Modifiers, &m.Recipe, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
