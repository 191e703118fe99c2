package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dhaba-pos/api/internal/apperr"
	"github.com/dhaba-pos/api/internal/catalog"
	"github.com/dhaba-pos/api/internal/consumption"
	"github.com/dhaba-pos/api/internal/enum"
	"github.com/dhaba-pos/api/internal/pricing"
)

type AddItemsParams struct {
	OrderID uuid.UUID
	Items   []LineRequest
	ActorID uuid.UUID
}

// AddItems appends lines to an open order, re-prices the full resulting line
// set, and applies the consumption delta between the previous and the new
// line set.
func (s *OrderService) AddItems(ctx context.Context, p AddItemsParams) (*OrderDetail, error) {
	if len(p.Items) == 0 {
		return nil, apperr.Validationf("no items to add")
	}

	detail, err := s.runTx(ctx, func(st Store) (*OrderDetail, error) {
		order, err := lockOpenOrder(ctx, st, p.OrderID)
		if err != nil {
			return nil, err
		}

		oldLines, err := st.ListOrderLines(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("list order lines: %w", err)
		}
		// Lenient load: items on existing lines may have gone inactive
		// since they were ordered; their recipes still count.
		oldSnaps, err := catalog.Load(ctx, st, order.RestaurantID, menuItemIDsOf(oldLines))
		if err != nil {
			return nil, err
		}

		resolved, err := resolveLines(ctx, st, order.RestaurantID, p.Items)
		if err != nil {
			return nil, err
		}

		if _, err := insertResolvedLines(ctx, st, order.ID, nextPosition(oldLines), resolved); err != nil {
			return nil, err
		}

		tax, discount, service := orderScalars(order)
		allLines := append(pricingFromStored(oldLines), pricingFromResolved(resolved)...)
		order, err = st.UpdateOrderTotals(ctx, totalsParams(order.ID, pricing.Price(allLines, tax, discount, service)))
		if err != nil {
			return nil, fmt.Errorf("update totals: %w", err)
		}

		oldUsage := consumptionFromStored(oldLines, oldSnaps)
		oldMap := consumption.Expand(oldUsage)
		newMap := consumption.Expand(append(oldUsage, consumptionFromResolved(resolved)...))
		if err := s.ledger.Apply(ctx, st, consumption.Delta(oldMap, newMap), movementContext(order, p.ActorID)); err != nil {
			return nil, err
		}

		return loadDetailFor(ctx, st, order)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, enum.EventOrderItemsAdded, detail)
	return detail, nil
}

type UpdateItemsParams struct {
	OrderID uuid.UUID
	Items   []LineRequest
	ActorID uuid.UUID
}

// UpdateItems replaces the full line set of an open order. Stock is never
// re-applied absolutely: the ledger sees only the delta between the old and
// the new expansion, so unchanged lines move no stock.
func (s *OrderService) UpdateItems(ctx context.Context, p UpdateItemsParams) (*OrderDetail, error) {
	if len(p.Items) == 0 {
		return nil, apperr.Validationf("replacement line set cannot be empty")
	}

	detail, err := s.runTx(ctx, func(st Store) (*OrderDetail, error) {
		order, err := lockOpenOrder(ctx, st, p.OrderID)
		if err != nil {
			return nil, err
		}

		oldLines, err := st.ListOrderLines(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("list order lines: %w", err)
		}
		oldSnaps, err := catalog.Load(ctx, st, order.RestaurantID, menuItemIDsOf(oldLines))
		if err != nil {
			return nil, err
		}
		oldMap := consumption.Expand(consumptionFromStored(oldLines, oldSnaps))

		resolved, err := resolveLines(ctx, st, order.RestaurantID, p.Items)
		if err != nil {
			return nil, err
		}

		if err := st.DeleteOrderLines(ctx, order.ID); err != nil {
			return nil, fmt.Errorf("delete order lines: %w", err)
		}
		if _, err := insertResolvedLines(ctx, st, order.ID, 0, resolved); err != nil {
			return nil, err
		}

		tax, discount, service := orderScalars(order)
		order, err = st.UpdateOrderTotals(ctx, totalsParams(order.ID, pricing.Price(pricingFromResolved(resolved), tax, discount, service)))
		if err != nil {
			return nil, fmt.Errorf("update totals: %w", err)
		}

		newMap := consumption.Expand(consumptionFromResolved(resolved))
		if err := s.ledger.Apply(ctx, st, consumption.Delta(oldMap, newMap), movementContext(order, p.ActorID)); err != nil {
			return nil, err
		}

		return loadDetailFor(ctx, st, order)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, enum.EventOrderUpdated, detail)
	return detail, nil
}
