package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dhaba-pos/api/internal/apperr"
	"github.com/dhaba-pos/api/internal/enum"
	"github.com/dhaba-pos/api/internal/pricing"
	"github.com/dhaba-pos/api/internal/store"
	"github.com/dhaba-pos/api/internal/tablestate"
)

type MergeOrdersParams struct {
	SourceOrderID uuid.UUID
	TargetOrderID uuid.UUID
}

// MergeOrders folds the source order into the target: lines and payments are
// relocated (not re-consumed, the physical consumption already happened),
// the target is re-priced over the combined line set, and the source ends
// cancelled with a back-reference. The target inherits the source's table
// when it has none of its own.
func (s *OrderService) MergeOrders(ctx context.Context, p MergeOrdersParams) (*OrderDetail, error) {
	if p.SourceOrderID == p.TargetOrderID {
		return nil, apperr.Validationf("cannot merge an order into itself")
	}

	detail, err := s.runTx(ctx, func(st Store) (*OrderDetail, error) {
		// Lock both orders in stable id order so two opposite merges
		// cannot deadlock.
		first, second := p.SourceOrderID, p.TargetOrderID
		if second.String() < first.String() {
			first, second = second, first
		}
		a, err := lockOpenOrder(ctx, st, first)
		if err != nil {
			return nil, err
		}
		b, err := lockOpenOrder(ctx, st, second)
		if err != nil {
			return nil, err
		}
		source, target := a, b
		if a.ID != p.SourceOrderID {
			source, target = b, a
		}

		if source.OutletID != target.OutletID {
			return nil, apperr.Validationf("orders belong to different outlets")
		}

		targetLines, err := st.ListOrderLines(ctx, target.ID)
		if err != nil {
			return nil, fmt.Errorf("list target lines: %w", err)
		}
		if err := st.MoveOrderLines(ctx, store.MoveOrderLinesParams{
			FromOrderID:    source.ID,
			ToOrderID:      target.ID,
			PositionOffset: nextPosition(targetLines),
		}); err != nil {
			return nil, fmt.Errorf("move order lines: %w", err)
		}
		if err := st.MovePayments(ctx, store.MovePaymentsParams{FromOrderID: source.ID, ToOrderID: target.ID}); err != nil {
			return nil, fmt.Errorf("move payments: %w", err)
		}

		// Scalars are summed across both orders so tax and service already
		// charged on the source are not silently dropped.
		srcTax, srcDiscount, srcService := orderScalars(source)
		tax, discount, service := orderScalars(target)
		merged, err := st.ListOrderLines(ctx, target.ID)
		if err != nil {
			return nil, fmt.Errorf("list merged lines: %w", err)
		}
		target, err = st.UpdateOrderTotals(ctx, totalsParams(target.ID, pricing.Price(
			pricingFromStored(merged),
			tax.Add(srcTax), discount.Add(srcDiscount), service.Add(srcService),
		)))
		if err != nil {
			return nil, fmt.Errorf("update target totals: %w", err)
		}

		if source.TableID.Valid {
			srcTable := uuid.UUID(source.TableID.Bytes)
			if err := tablestate.Unbind(ctx, st, srcTable, source.ID); err != nil {
				return nil, err
			}
			if !target.TableID.Valid {
				if _, err := tablestate.Bind(ctx, st, srcTable, target.ID); err != nil {
					return nil, err
				}
				target, err = st.UpdateOrderTable(ctx, store.UpdateOrderTableParams{ID: target.ID, TableID: pgUUID(srcTable)})
				if err != nil {
					return nil, fmt.Errorf("inherit table: %w", err)
				}
			}
		}

		if _, err := st.MarkOrderMerged(ctx, store.MarkOrderMergedParams{ID: source.ID, MergedInto: target.ID}); err != nil {
			return nil, fmt.Errorf("mark merged: %w", err)
		}

		return loadDetailFor(ctx, st, target)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, enum.EventOrderMerged, detail)
	return detail, nil
}

type SplitItemsParams struct {
	OrderID     uuid.UUID
	LineIDs     []uuid.UUID
	LineIndexes []int32 // positions into the ordered line list; used when LineIDs is empty
	ActorID     uuid.UUID
}

// SplitItems moves the selected lines onto a new pending order with a
// lineage pointer to the source. Both orders are re-priced; the new order
// starts with zero tax/discount/service and no payments. No stock moves:
// the physical consumption is unchanged, only its ownership.
func (s *OrderService) SplitItems(ctx context.Context, p SplitItemsParams) (remaining, split *OrderDetail, err error) {
	if len(p.LineIDs) == 0 && len(p.LineIndexes) == 0 {
		return nil, nil, apperr.Validationf("no lines selected to split")
	}

	remaining, err = s.runTx(ctx, func(st Store) (*OrderDetail, error) {
		split = nil

		order, err := lockOpenOrder(ctx, st, p.OrderID)
		if err != nil {
			return nil, err
		}

		lines, err := st.ListOrderLines(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("list order lines: %w", err)
		}
		moved, kept, err := partitionLines(lines, p.LineIDs, p.LineIndexes)
		if err != nil {
			return nil, err
		}
		if len(kept) == 0 {
			return nil, apperr.Validationf("split would leave the order empty")
		}

		next, err := st.GetNextOrderNumber(ctx, order.OutletID)
		if err != nil {
			return nil, fmt.Errorf("next order number: %w", err)
		}

		newTotals := pricing.Price(pricingFromStored(moved), decimal.Zero, decimal.Zero, decimal.Zero)
		newOrder, err := st.CreateOrder(ctx, store.CreateOrderParams{
			RestaurantID:  order.RestaurantID,
			OutletID:      order.OutletID,
			OrderNumber:   fmt.Sprintf("ORD-%04d", next),
			OrderType:     order.OrderType,
			Status:        enum.OrderStatusPending,
			Subtotal:      store.DecimalToNumeric(newTotals.Subtotal),
			TaxTotal:      store.DecimalToNumeric(newTotals.TaxTotal),
			DiscountTotal: store.DecimalToNumeric(newTotals.DiscountTotal),
			ServiceCharge: store.DecimalToNumeric(newTotals.ServiceCharge),
			Total:         store.DecimalToNumeric(newTotals.Total),
			SplitFrom:     pgUUID(order.ID),
			PlacedBy:      p.ActorID,
		})
		if err != nil {
			return nil, fmt.Errorf("create split order: %w", err)
		}

		for i, l := range moved {
			if err := st.MoveOrderLine(ctx, store.MoveOrderLineParams{
				ID:        l.ID,
				ToOrderID: newOrder.ID,
				Position:  int32(i),
			}); err != nil {
				return nil, fmt.Errorf("move order line: %w", err)
			}
		}

		tax, discount, service := orderScalars(order)
		order, err = st.UpdateOrderTotals(ctx, totalsParams(order.ID, pricing.Price(pricingFromStored(kept), tax, discount, service)))
		if err != nil {
			return nil, fmt.Errorf("update source totals: %w", err)
		}

		if split, err = loadDetailFor(ctx, st, newOrder); err != nil {
			return nil, err
		}
		return loadDetailFor(ctx, st, order)
	})
	if err != nil {
		return nil, nil, err
	}
	s.publish(ctx, enum.EventOrderSplit, split)
	return remaining, split, nil
}

// partitionLines picks the moved set by id, or by list position when no ids
// are given. Any reference that matches nothing fails the split.
func partitionLines(lines []store.OrderLine, ids []uuid.UUID, indexes []int32) (moved, kept []store.OrderLine, err error) {
	if len(ids) > 0 {
		want := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
		for _, l := range lines {
			if want[l.ID] {
				moved = append(moved, l)
				delete(want, l.ID)
			} else {
				kept = append(kept, l)
			}
		}
		for id := range want {
			return nil, nil, apperr.Validationf("line %s not on this order", id)
		}
		return moved, kept, nil
	}

	want := make(map[int32]bool, len(indexes))
	for _, i := range indexes {
		if i < 0 || int(i) >= len(lines) {
			return nil, nil, apperr.Validationf("line index %d out of range", i)
		}
		want[i] = true
	}
	for i, l := range lines {
		if want[int32(i)] {
			moved = append(moved, l)
		} else {
			kept = append(kept, l)
		}
	}
	return moved, kept, nil
}
