// Package inventory applies consumption deltas to stock levels and appends
// the immutable movement trail. It always runs inside the caller's
// transaction; a rejected entry aborts the whole unit of work.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dhaba-pos/api/internal/apperr"
	"github.com/dhaba-pos/api/internal/consumption"
	"github.com/dhaba-pos/api/internal/enum"
	"github.com/dhaba-pos/api/internal/store"
)

// Store is the stock surface the ledger needs. Satisfied by *store.Queries.
type Store interface {
	GetStockItem(ctx context.Context, id uuid.UUID) (store.StockItem, error)
	ApplyStockChange(ctx context.Context, arg store.ApplyStockChangeParams) (store.StockItem, error)
	ApplyStockChangeNonNegative(ctx context.Context, arg store.ApplyStockChangeParams) (store.StockItem, error)
	InsertStockMovement(ctx context.Context, arg store.InsertStockMovementParams) (store.StockMovement, error)
}

// Ledger holds the negative-stock policy. With FailOnNegative set, an
// operation that would drive a tracked item below zero aborts with
// InsufficientStockError; otherwise the quantity goes negative so the true
// deficit stays visible. Quantities are never clamped to zero.
type Ledger struct {
	FailOnNegative bool
}

// MovementContext tags the movements written for one operation.
type MovementContext struct {
	RestaurantID uuid.UUID
	OutletID     pgtype.UUID
	Reference    string
	Note         string
	PerformedBy  uuid.UUID
}

// Apply consumes a delta map: positive quantities consume stock, negative
// quantities return it. Each applied entry decrements/increments current_qty
// with one atomic statement and appends exactly one movement row (usage for
// consumption, adjustment for returns).
func (l Ledger) Apply(ctx context.Context, st Store, delta consumption.Map, mc MovementContext) error {
	// Stable order keeps concurrent transactions from locking the same
	// stock rows in opposite sequence.
	ids := make([]uuid.UUID, 0, len(delta))
	for id := range delta {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	for _, id := range ids {
		qty := delta[id]
		if qty.IsZero() {
			continue
		}

		item, err := st.GetStockItem(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &apperr.NotFoundError{Entity: apperr.EntityStockItem, ID: id.String()}
			}
			return fmt.Errorf("get stock item: %w", err)
		}
		if !item.IsTracked {
			continue
		}

		change := qty.Neg()
		kind := enum.MovementUsage
		if change.IsPositive() {
			kind = enum.MovementAdjustment
		}

		if _, err := l.record(ctx, st, item, change, kind, mc); err != nil {
			return err
		}
	}
	return nil
}

// Record applies one direct signed change (purchase receipts, manual
// adjustments, transfers) through the same policy and movement bookkeeping.
func (l Ledger) Record(ctx context.Context, st Store, stockItemID uuid.UUID, change decimal.Decimal, kind string, mc MovementContext) (store.StockMovement, error) {
	item, err := st.GetStockItem(ctx, stockItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.StockMovement{}, &apperr.NotFoundError{Entity: apperr.EntityStockItem, ID: stockItemID.String()}
		}
		return store.StockMovement{}, fmt.Errorf("get stock item: %w", err)
	}
	return l.record(ctx, st, item, change, kind, mc)
}

func (l Ledger) record(ctx context.Context, st Store, item store.StockItem, change decimal.Decimal, kind string, mc MovementContext) (store.StockMovement, error) {
	params := store.ApplyStockChangeParams{ID: item.ID, Change: store.DecimalToNumeric(change)}

	var err error
	if l.FailOnNegative && change.IsNegative() {
		_, err = st.ApplyStockChangeNonNegative(ctx, params)
		if errors.Is(err, pgx.ErrNoRows) {
			return store.StockMovement{}, &apperr.InsufficientStockError{StockItemID: item.ID, Name: item.Name}
		}
	} else {
		_, err = st.ApplyStockChange(ctx, params)
	}
	if err != nil {
		return store.StockMovement{}, fmt.Errorf("apply stock change %s: %w", item.ID, err)
	}

	mv, err := st.InsertStockMovement(ctx, store.InsertStockMovementParams{
		StockItemID:  item.ID,
		RestaurantID: mc.RestaurantID,
		OutletID:     mc.OutletID,
		Change:       store.DecimalToNumeric(change),
		Kind:         kind,
		Reference:    mc.Reference,
		Note:         mc.Note,
		PerformedBy:  mc.PerformedBy,
	})
	if err != nil {
		return store.StockMovement{}, fmt.Errorf("insert stock movement: %w", err)
	}
	return mv, nil
}
