// Package catalog resolves menu item references into read-only snapshots:
// authoritative prices, option lists and the recipe used for stock
// consumption. A snapshot is taken once per operation; order logic never
// trusts prices supplied by the caller.
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dhaba-pos/api/internal/apperr"
	"github.com/dhaba-pos/api/internal/store"
)

// Store is the read surface the resolver needs. Satisfied by *store.Queries.
type Store interface {
	GetMenuItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]store.MenuItem, error)
}

// Snapshot is one menu item frozen at validation time.
type Snapshot struct {
	ID        uuid.UUID
	Name      string
	BasePrice decimal.Decimal
	IsActive  bool
	Variants  []store.Variant
	Modifiers []store.Modifier
	Recipe    []store.RecipeRule
}

// Resolve batch-loads every referenced menu item in a single query and fails
// the whole batch if any reference is missing, inactive, or belongs to
// another restaurant. Callers never proceed with a partial catalog.
func Resolve(ctx context.Context, st Store, restaurantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]Snapshot, error) {
	snapshots, err := Load(ctx, st, restaurantID, ids)
	if err != nil {
		return nil, err
	}
	for id, s := range snapshots {
		if !s.IsActive {
			return nil, &apperr.CatalogError{Kind: apperr.CatalogInactive, Ref: id.String()}
		}
	}
	for _, id := range ids {
		if _, ok := snapshots[id]; !ok {
			return nil, &apperr.CatalogError{Kind: apperr.CatalogUnknown, Ref: id.String()}
		}
	}
	return snapshots, nil
}

// Load is the lenient form used to look up recipes of already-persisted
// lines: items that have since gone inactive still resolve, and unknown ids
// are simply absent from the result.
func Load(ctx context.Context, st Store, restaurantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]Snapshot, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]Snapshot{}, nil
	}

	// Dedupe so repeated lines don't inflate the ANY($1) list.
	seen := make(map[uuid.UUID]bool, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	items, err := st.GetMenuItemsByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}

	snapshots := make(map[uuid.UUID]Snapshot, len(items))
	for _, m := range items {
		if m.RestaurantID != restaurantID {
			continue
		}
		snapshots[m.ID] = Snapshot{
			ID:        m.ID,
			Name:      m.Name,
			BasePrice: store.NumericToDecimal(m.BasePrice),
			IsActive:  m.IsActive,
			Variants:  m.Variants,
			Modifiers: m.Modifiers,
			Recipe:    m.Recipe,
		}
	}
	return snapshots, nil
}

// ResolveVariant finds a variant by id, or by name when no id is given. The
// variant's price replaces the base price as the line's unit price.
func (s Snapshot) ResolveVariant(id uuid.UUID, name string) (store.Variant, error) {
	for _, v := range s.Variants {
		if (id != uuid.Nil && v.ID == id) || (id == uuid.Nil && name != "" && v.Name == name) {
			if !v.IsAvailable {
				return store.Variant{}, &apperr.CatalogError{Kind: apperr.CatalogInvalidOption, Ref: v.Name}
			}
			return v, nil
		}
	}
	ref := name
	if id != uuid.Nil {
		ref = id.String()
	}
	return store.Variant{}, &apperr.CatalogError{Kind: apperr.CatalogInvalidOption, Ref: ref}
}

// ResolveModifier finds a modifier by id, or by name when no id is given.
func (s Snapshot) ResolveModifier(id uuid.UUID, name string) (store.Modifier, error) {
	for _, m := range s.Modifiers {
		if (id != uuid.Nil && m.ID == id) || (id == uuid.Nil && name != "" && m.Name == name) {
			return m, nil
		}
	}
	ref := name
	if id != uuid.Nil {
		ref = id.String()
	}
	return store.Modifier{}, &apperr.CatalogError{Kind: apperr.CatalogInvalidOption, Ref: ref}
}
