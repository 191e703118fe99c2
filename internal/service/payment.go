package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dhaba-pos/api/internal/apperr"
	"github.com/dhaba-pos/api/internal/enum"
	"github.com/dhaba-pos/api/internal/store"
	"github.com/dhaba-pos/api/internal/tablestate"
)

type AddPaymentParams struct {
	OrderID   uuid.UUID
	Method    string
	Amount    decimal.Decimal
	Reference string
}

// AddPayment appends a payment record. When cumulative net payments reach
// the order total, the order auto-completes and its table is released.
func (s *OrderService) AddPayment(ctx context.Context, p AddPaymentParams) (*OrderDetail, error) {
	if !p.Amount.IsPositive() {
		return nil, apperr.Validationf("payment amount must be positive")
	}
	if p.Method == "" {
		return nil, apperr.Validationf("payment method required")
	}

	detail, err := s.runTx(ctx, func(st Store) (*OrderDetail, error) {
		order, err := lockOpenOrder(ctx, st, p.OrderID)
		if err != nil {
			return nil, err
		}

		if _, err := st.InsertPayment(ctx, store.InsertPaymentParams{
			OrderID:   order.ID,
			Method:    p.Method,
			Amount:    store.DecimalToNumeric(p.Amount),
			Reference: p.Reference,
		}); err != nil {
			return nil, fmt.Errorf("insert payment: %w", err)
		}

		paid, err := st.SumPayments(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("sum payments: %w", err)
		}
		refunded, err := st.SumRefunds(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("sum refunds: %w", err)
		}

		if paid.Sub(refunded).GreaterThanOrEqual(store.NumericToDecimal(order.Total)) {
			order, err = st.UpdateOrderStatus(ctx, store.UpdateOrderStatusParams{ID: order.ID, Status: enum.OrderStatusCompleted})
			if err != nil {
				return nil, fmt.Errorf("complete order: %w", err)
			}
			if order.TableID.Valid {
				if err := tablestate.Unbind(ctx, st, uuid.UUID(order.TableID.Bytes), order.ID); err != nil {
					return nil, err
				}
			}
		}
		return loadDetailFor(ctx, st, order)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, enum.EventOrderPaymentAdded, detail)
	return detail, nil
}

type RefundPaymentParams struct {
	OrderID   uuid.UUID
	Amount    decimal.Decimal
	Reason    string
	Reference string
}

// RefundPayment appends to the refund ledger; payment rows are immutable
// history and are never edited. A refund that drops net paid below the total
// reverts a completed order to pending. The table binding is left untouched:
// re-occupying a table is an explicit decision, not a refund side effect.
func (s *OrderService) RefundPayment(ctx context.Context, p RefundPaymentParams) (*OrderDetail, error) {
	if !p.Amount.IsPositive() {
		return nil, apperr.Validationf("refund amount must be positive")
	}

	detail, err := s.runTx(ctx, func(st Store) (*OrderDetail, error) {
		// Refunds are allowed on completed orders, so this lock does not
		// go through lockOpenOrder.
		order, err := st.GetOrderForUpdate(ctx, p.OrderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &apperr.NotFoundError{Entity: apperr.EntityOrder, ID: p.OrderID.String()}
			}
			return nil, fmt.Errorf("lock order: %w", err)
		}
		if order.Status == enum.OrderStatusCancelled {
			return nil, &apperr.ClosedOrderError{OrderID: order.ID, Status: order.Status}
		}

		paid, err := st.SumPayments(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("sum payments: %w", err)
		}
		refunded, err := st.SumRefunds(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("sum refunds: %w", err)
		}
		net := paid.Sub(refunded)
		if p.Amount.GreaterThan(net) {
			return nil, apperr.Validationf("refund %s exceeds net paid %s", p.Amount, net)
		}

		if _, err := st.InsertRefund(ctx, store.InsertRefundParams{
			OrderID:   order.ID,
			Amount:    store.DecimalToNumeric(p.Amount),
			Reason:    p.Reason,
			Reference: p.Reference,
		}); err != nil {
			return nil, fmt.Errorf("insert refund: %w", err)
		}

		if order.Status == enum.OrderStatusCompleted &&
			net.Sub(p.Amount).LessThan(store.NumericToDecimal(order.Total)) {
			order, err = st.UpdateOrderStatus(ctx, store.UpdateOrderStatusParams{ID: order.ID, Status: enum.OrderStatusPending})
			if err != nil {
				return nil, fmt.Errorf("reopen order: %w", err)
			}
		}
		return loadDetailFor(ctx, st, order)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, enum.EventOrderRefunded, detail)
	return detail, nil
}
