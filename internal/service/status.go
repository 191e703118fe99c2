package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dhaba-pos/api/internal/apperr"
	"github.com/dhaba-pos/api/internal/enum"
	"github.com/dhaba-pos/api/internal/store"
	"github.com/dhaba-pos/api/internal/tablestate"
)

type ChangeTableParams struct {
	OrderID uuid.UUID
	TableID uuid.UUID
}

// ChangeTable moves an open order to another table: unbind the source, bind
// the target, update the order's reference, all in one transaction. A lost
// race for the target table surfaces as TableConflictError and rolls the
// unbind back with it.
func (s *OrderService) ChangeTable(ctx context.Context, p ChangeTableParams) (*OrderDetail, error) {
	if p.TableID == uuid.Nil {
		return nil, apperr.Validationf("table id required")
	}

	detail, err := s.runTx(ctx, func(st Store) (*OrderDetail, error) {
		order, err := lockOpenOrder(ctx, st, p.OrderID)
		if err != nil {
			return nil, err
		}

		if order.TableID.Valid {
			current := uuid.UUID(order.TableID.Bytes)
			if current == p.TableID {
				return nil, &apperr.TableConflictError{Kind: apperr.TableSameTable, TableID: p.TableID}
			}
			if err := tablestate.Unbind(ctx, st, current, order.ID); err != nil {
				return nil, err
			}
		}

		if _, err := tablestate.Bind(ctx, st, p.TableID, order.ID); err != nil {
			return nil, err
		}

		order, err = st.UpdateOrderTable(ctx, store.UpdateOrderTableParams{ID: order.ID, TableID: pgUUID(p.TableID)})
		if err != nil {
			return nil, fmt.Errorf("update order table: %w", err)
		}
		return loadDetailFor(ctx, st, order)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, enum.EventOrderTableChanged, detail)
	return detail, nil
}

type UpdateStatusParams struct {
	OrderID uuid.UUID
	Status  string
}

// UpdateStatus sets the order status. Transitions to completed or cancelled
// release the bound table; there is no inventory effect on any transition.
func (s *OrderService) UpdateStatus(ctx context.Context, p UpdateStatusParams) (*OrderDetail, error) {
	if !enum.IsOrderStatus(p.Status) {
		return nil, apperr.Validationf("unknown order status %q", p.Status)
	}

	detail, err := s.runTx(ctx, func(st Store) (*OrderDetail, error) {
		order, err := lockOpenOrder(ctx, st, p.OrderID)
		if err != nil {
			return nil, err
		}

		order, err = st.UpdateOrderStatus(ctx, store.UpdateOrderStatusParams{ID: order.ID, Status: p.Status})
		if err != nil {
			return nil, fmt.Errorf("update status: %w", err)
		}

		if enum.OrderStatusClosed(p.Status) && order.TableID.Valid {
			if err := tablestate.Unbind(ctx, st, uuid.UUID(order.TableID.Bytes), order.ID); err != nil {
				return nil, err
			}
		}
		return loadDetailFor(ctx, st, order)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, enum.EventOrderStatusUpdated, detail)
	return detail, nil
}
