package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dhaba-pos/api/internal/apperr"
	"github.com/dhaba-pos/api/internal/consumption"
	"github.com/dhaba-pos/api/internal/enum"
	"github.com/dhaba-pos/api/internal/pricing"
	"github.com/dhaba-pos/api/internal/store"
	"github.com/dhaba-pos/api/internal/tablestate"
)

type CreateOrderParams struct {
	RestaurantID   uuid.UUID
	OutletID       uuid.UUID
	TableID        uuid.UUID // uuid.Nil for counter orders
	OrderType      string
	Items          []LineRequest
	TaxTotal       decimal.Decimal
	DiscountTotal  decimal.Decimal
	ServiceCharge  decimal.Decimal
	Notes          string
	IdempotencyKey string
	PlacedBy       uuid.UUID
}

// CreateOrder validates and prices the incoming lines, binds the table if
// one is given, consumes stock from an empty baseline, and persists the
// order as pending. A repeated idempotency key returns the prior order
// unchanged with no new side effects and no notification.
func (s *OrderService) CreateOrder(ctx context.Context, p CreateOrderParams) (*OrderDetail, error) {
	if len(p.Items) == 0 {
		return nil, apperr.Validationf("order needs at least one item")
	}

	var replayed bool
	detail, err := s.runTx(ctx, func(st Store) (*OrderDetail, error) {
		replayed = false

		if p.IdempotencyKey != "" {
			existing, err := st.GetOrderByIdempotencyKey(ctx, store.GetOrderByIdempotencyKeyParams{
				RestaurantID:   p.RestaurantID,
				IdempotencyKey: p.IdempotencyKey,
			})
			switch {
			case err == nil:
				replayed = true
				return loadDetailFor(ctx, st, existing)
			case !errors.Is(err, pgx.ErrNoRows):
				return nil, fmt.Errorf("idempotency lookup: %w", err)
			}
		}

		resolved, err := resolveLines(ctx, st, p.RestaurantID, p.Items)
		if err != nil {
			return nil, err
		}

		totals := pricing.Price(pricingFromResolved(resolved), p.TaxTotal, p.DiscountTotal, p.ServiceCharge)

		next, err := st.GetNextOrderNumber(ctx, p.OutletID)
		if err != nil {
			return nil, fmt.Errorf("next order number: %w", err)
		}

		orderType := p.OrderType
		if orderType == "" {
			orderType = enum.OrderTypeCounter
			if p.TableID != uuid.Nil {
				orderType = enum.OrderTypeDineIn
			}
		}

		var tableRef pgtype.UUID
		if p.TableID != uuid.Nil {
			tableRef = pgUUID(p.TableID)
		}

		order, err := st.CreateOrder(ctx, store.CreateOrderParams{
			RestaurantID:   p.RestaurantID,
			OutletID:       p.OutletID,
			TableID:        tableRef,
			OrderNumber:    fmt.Sprintf("ORD-%04d", next),
			OrderType:      orderType,
			Status:         enum.OrderStatusPending,
			Subtotal:       store.DecimalToNumeric(totals.Subtotal),
			TaxTotal:       store.DecimalToNumeric(totals.TaxTotal),
			DiscountTotal:  store.DecimalToNumeric(totals.DiscountTotal),
			ServiceCharge:  store.DecimalToNumeric(totals.ServiceCharge),
			Total:          store.DecimalToNumeric(totals.Total),
			Notes:          p.Notes,
			IdempotencyKey: pgtype.Text{String: p.IdempotencyKey, Valid: p.IdempotencyKey != ""},
			PlacedBy:       p.PlacedBy,
		})
		if err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}

		if p.TableID != uuid.Nil {
			if _, err := tablestate.Bind(ctx, st, p.TableID, order.ID); err != nil {
				return nil, err
			}
		}

		lines, err := insertResolvedLines(ctx, st, order.ID, 0, resolved)
		if err != nil {
			return nil, err
		}

		// Delta against an empty baseline is the full new map.
		delta := consumption.Expand(consumptionFromResolved(resolved))
		if err := s.ledger.Apply(ctx, st, delta, movementContext(order, p.PlacedBy)); err != nil {
			return nil, err
		}

		return &OrderDetail{
			Order:    order,
			Lines:    lines,
			Payments: []store.Payment{},
			Refunds:  []store.Refund{},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if !replayed {
		s.publish(ctx, enum.EventOrderCreated, detail)
	}
	return detail, nil
}
