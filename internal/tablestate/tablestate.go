// Package tablestate governs table occupancy transitions and the
// table-to-order binding. Every transition is a single conditional write so
// that two cashiers racing for the same table resolve to exactly one winner.
package tablestate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/dhaba-pos/api/internal/apperr"
	"github.com/dhaba-pos/api/internal/enum"
	"github.com/dhaba-pos/api/internal/store"
)

// Store is the table surface of the state machine. Satisfied by
// *store.Queries. UpdateOrderTable is here because relocating an order
// during a merge is part of the binding contract.
type Store interface {
	GetTable(ctx context.Context, id uuid.UUID) (store.Table, error)
	BindTable(ctx context.Context, arg store.BindTableParams) (store.Table, error)
	UnbindTable(ctx context.Context, arg store.UnbindTableParams) (store.Table, error)
	SetTableMergedInto(ctx context.Context, arg store.SetTableMergedIntoParams) (store.Table, error)
	ClearTableMerge(ctx context.Context, id uuid.UUID) (store.Table, error)
	UpdateOrderTable(ctx context.Context, arg store.UpdateOrderTableParams) (store.Order, error)
}

// Bind seats an order at a table. Succeeds only from available or reserved;
// a lost race or an invalid state comes back as TableConflictError with the
// reason.
func Bind(ctx context.Context, st Store, tableID, orderID uuid.UUID) (store.Table, error) {
	t, err := st.BindTable(ctx, store.BindTableParams{ID: tableID, OrderID: orderID})
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return store.Table{}, fmt.Errorf("bind table: %w", err)
	}

	// The conditional write matched nothing; fetch to classify the conflict.
	cur, err := st.GetTable(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Table{}, &apperr.NotFoundError{Entity: apperr.EntityTable, ID: tableID.String()}
		}
		return store.Table{}, fmt.Errorf("get table: %w", err)
	}
	switch {
	case cur.Status == enum.TableStatusDisabled:
		return store.Table{}, &apperr.TableConflictError{Kind: apperr.TableDisabled, TableID: tableID}
	case cur.MergedInto.Valid:
		return store.Table{}, &apperr.TableConflictError{Kind: apperr.TableMerged, TableID: tableID}
	default:
		return store.Table{}, &apperr.TableConflictError{Kind: apperr.TableAlreadyBound, TableID: tableID}
	}
}

// Unbind releases a table if it is still bound to the given order. A
// mismatch is not an error: the table has already been rebound and releasing
// it is someone else's business.
func Unbind(ctx context.Context, st Store, tableID, orderID uuid.UUID) error {
	_, err := st.UnbindTable(ctx, store.UnbindTableParams{ID: tableID, OrderID: orderID})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unbind table: %w", err)
	}
	return nil
}

// Merge folds secondary into primary. Rejected outright when both tables
// hold an active order: combining two live orders has side effects no
// occupancy rule can make safe, so reject beats reconcile. When exactly one
// side holds an order it is relocated to the primary.
func Merge(ctx context.Context, st Store, primaryID, secondaryID uuid.UUID) (store.Table, store.Table, error) {
	if primaryID == secondaryID {
		return store.Table{}, store.Table{}, &apperr.TableConflictError{Kind: apperr.TableSameTable, TableID: primaryID}
	}

	primary, err := getTable(ctx, st, primaryID)
	if err != nil {
		return store.Table{}, store.Table{}, err
	}
	secondary, err := getTable(ctx, st, secondaryID)
	if err != nil {
		return store.Table{}, store.Table{}, err
	}

	if primary.Status == enum.TableStatusDisabled {
		return store.Table{}, store.Table{}, &apperr.TableConflictError{Kind: apperr.TableDisabled, TableID: primaryID}
	}
	if secondary.Status == enum.TableStatusDisabled {
		return store.Table{}, store.Table{}, &apperr.TableConflictError{Kind: apperr.TableDisabled, TableID: secondaryID}
	}
	if primary.MergedInto.Valid {
		return store.Table{}, store.Table{}, &apperr.TableConflictError{Kind: apperr.TableMerged, TableID: primaryID}
	}
	if secondary.MergedInto.Valid {
		return store.Table{}, store.Table{}, &apperr.TableConflictError{Kind: apperr.TableMerged, TableID: secondaryID}
	}
	if primary.CurrentOrder.Valid && secondary.CurrentOrder.Valid {
		return store.Table{}, store.Table{}, &apperr.TableConflictError{Kind: apperr.TableAlreadyBound, TableID: primaryID}
	}

	// Relocate the secondary's order, if any, onto the primary.
	if secondary.CurrentOrder.Valid {
		orderID := uuid.UUID(secondary.CurrentOrder.Bytes)
		if err := Unbind(ctx, st, secondaryID, orderID); err != nil {
			return store.Table{}, store.Table{}, err
		}
		if primary, err = Bind(ctx, st, primaryID, orderID); err != nil {
			return store.Table{}, store.Table{}, err
		}
		if _, err := st.UpdateOrderTable(ctx, store.UpdateOrderTableParams{
			ID:      orderID,
			TableID: pgtype.UUID{Bytes: primaryID, Valid: true},
		}); err != nil {
			return store.Table{}, store.Table{}, fmt.Errorf("relocate order table: %w", err)
		}
	}

	secondary, err = st.SetTableMergedInto(ctx, store.SetTableMergedIntoParams{ID: secondaryID, MergedInto: primaryID})
	if err != nil {
		return store.Table{}, store.Table{}, fmt.Errorf("set merged_into: %w", err)
	}
	return primary, secondary, nil
}

// Split detaches a table merged into another. The status reverts to
// available only when no order remains bound.
func Split(ctx context.Context, st Store, tableID uuid.UUID) (store.Table, error) {
	t, err := st.ClearTableMerge(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Table{}, &apperr.NotFoundError{Entity: apperr.EntityTable, ID: tableID.String()}
		}
		return store.Table{}, fmt.Errorf("clear merge: %w", err)
	}
	return t, nil
}

func getTable(ctx context.Context, st Store, id uuid.UUID) (store.Table, error) {
	t, err := st.GetTable(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Table{}, &apperr.NotFoundError{Entity: apperr.EntityTable, ID: id.String()}
		}
		return store.Table{}, fmt.Errorf("get table: %w", err)
	}
	return t, nil
}
