// Package service is the order transaction engine. Every public operation
// runs as one atomic unit of work spanning the order, any touched tables and
// any stock writes; on success the notification sink is called exactly once
// with the post-commit snapshot.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/dhaba-pos/api/internal/apperr"
	"github.com/dhaba-pos/api/internal/catalog"
	"github.com/dhaba-pos/api/internal/consumption"
	"github.com/dhaba-pos/api/internal/enum"
	"github.com/dhaba-pos/api/internal/inventory"
	"github.com/dhaba-pos/api/internal/notify"
	"github.com/dhaba-pos/api/internal/pricing"
	"github.com/dhaba-pos/api/internal/store"
)

// maxTxRetries bounds retries on transient conflicts (serialization
// failures, order-number races). Business errors are never retried.
const maxTxRetries = 3

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store defines the DB methods the engine needs. Satisfied by
// *store.Queries (and its WithTx variant); also satisfies the narrower
// interfaces of the catalog, inventory and tablestate packages.
type Store interface {
	// orders
	GetOrder(ctx context.Context, id uuid.UUID) (store.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (store.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, arg store.GetOrderByIdempotencyKeyParams) (store.Order, error)
	GetNextOrderNumber(ctx context.Context, outletID uuid.UUID) (int32, error)
	CreateOrder(ctx context.Context, arg store.CreateOrderParams) (store.Order, error)
	UpdateOrderTotals(ctx context.Context, arg store.UpdateOrderTotalsParams) (store.Order, error)
	UpdateOrderStatus(ctx context.Context, arg store.UpdateOrderStatusParams) (store.Order, error)
	UpdateOrderTable(ctx context.Context, arg store.UpdateOrderTableParams) (store.Order, error)
	MarkOrderMerged(ctx context.Context, arg store.MarkOrderMergedParams) (store.Order, error)

	// order lines
	ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]store.OrderLine, error)
	InsertOrderLine(ctx context.Context, arg store.InsertOrderLineParams) (store.OrderLine, error)
	DeleteOrderLines(ctx context.Context, orderID uuid.UUID) error
	MoveOrderLines(ctx context.Context, arg store.MoveOrderLinesParams) error
	MoveOrderLine(ctx context.Context, arg store.MoveOrderLineParams) error

	// payments and refunds
	ListPayments(ctx context.Context, orderID uuid.UUID) ([]store.Payment, error)
	InsertPayment(ctx context.Context, arg store.InsertPaymentParams) (store.Payment, error)
	SumPayments(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
	MovePayments(ctx context.Context, arg store.MovePaymentsParams) error
	ListRefunds(ctx context.Context, orderID uuid.UUID) ([]store.Refund, error)
	InsertRefund(ctx context.Context, arg store.InsertRefundParams) (store.Refund, error)
	SumRefunds(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)

	// catalog
	GetMenuItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]store.MenuItem, error)

	// stock
	GetStockItem(ctx context.Context, id uuid.UUID) (store.StockItem, error)
	ApplyStockChange(ctx context.Context, arg store.ApplyStockChangeParams) (store.StockItem, error)
	ApplyStockChangeNonNegative(ctx context.Context, arg store.ApplyStockChangeParams) (store.StockItem, error)
	InsertStockMovement(ctx context.Context, arg store.InsertStockMovementParams) (store.StockMovement, error)

	// tables
	GetTable(ctx context.Context, id uuid.UUID) (store.Table, error)
	BindTable(ctx context.Context, arg store.BindTableParams) (store.Table, error)
	UnbindTable(ctx context.Context, arg store.UnbindTableParams) (store.Table, error)
	SetTableMergedInto(ctx context.Context, arg store.SetTableMergedIntoParams) (store.Table, error)
	ClearTableMerge(ctx context.Context, id uuid.UUID) (store.Table, error)
}

// NewStore creates a Store from a DBTX (pool or tx), so the engine can bind
// store instances to its transactions.
type NewStore func(db store.DBTX) Store

// OrderService orchestrates order mutations.
type OrderService struct {
	pool     TxBeginner
	newStore NewStore
	ledger   inventory.Ledger
	sink     notify.Sink
}

func NewOrderService(pool TxBeginner, newStore NewStore, ledger inventory.Ledger, sink notify.Sink) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, ledger: ledger, sink: sink}
}

// OrderDetail is the full order snapshot returned by every operation and
// published to the notification sink.
type OrderDetail struct {
	Order    store.Order      `json:"order"`
	Lines    []store.OrderLine `json:"lines"`
	Payments []store.Payment  `json:"payments"`
	Refunds  []store.Refund   `json:"refunds"`
}

// --- transaction plumbing ---

// runTx executes fn inside a transaction with a bounded retry on transient
// conflicts. fn must be safe to re-run: every side effect of a failed
// attempt is rolled back.
func (s *OrderService) runTx(ctx context.Context, fn func(st Store) (*OrderDetail, error)) (*OrderDetail, error) {
	var lastErr error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		detail, err := s.runTxOnce(ctx, fn)
		if err == nil {
			return detail, nil
		}
		if isRetryableTxError(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *OrderService) runTxOnce(ctx context.Context, fn func(st Store) (*OrderDetail, error)) (*OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	detail, err := fn(s.newStore(tx))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return detail, nil
}

// isRetryableTxError matches serialization failures, deadlocks, and the
// order-number/idempotency unique races where a re-run reads fresh state.
func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return true
	case "23505":
		return pgErr.ConstraintName == "orders_outlet_id_order_number_key" ||
			pgErr.ConstraintName == "idx_orders_idempotency"
	}
	return false
}

// publish sends the post-commit event. Delivery is best effort; a sink
// failure never fails the already-committed operation.
func (s *OrderService) publish(ctx context.Context, eventType string, detail *OrderDetail) {
	ev := notify.Event{
		Type:         eventType,
		RestaurantID: detail.Order.RestaurantID,
		OutletID:     detail.Order.OutletID,
		Payload:      detail,
	}
	if err := s.sink.Publish(ctx, ev); err != nil {
		log.Printf("ERROR: publish %s for order %s: %v", eventType, detail.Order.ID, err)
	}
}

// --- shared loaders ---

func loadDetail(ctx context.Context, st Store, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := st.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperr.NotFoundError{Entity: apperr.EntityOrder, ID: orderID.String()}
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return loadDetailFor(ctx, st, order)
}

func loadDetailFor(ctx context.Context, st Store, order store.Order) (*OrderDetail, error) {
	lines, err := st.ListOrderLines(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	payments, err := st.ListPayments(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	refunds, err := st.ListRefunds(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list refunds: %w", err)
	}
	return &OrderDetail{Order: order, Lines: lines, Payments: payments, Refunds: refunds}, nil
}

// lockOpenOrder loads the order row FOR UPDATE and rejects closed orders, so
// concurrent mutations of the same order serialize at the start of each
// transaction.
func lockOpenOrder(ctx context.Context, st Store, orderID uuid.UUID) (store.Order, error) {
	order, err := st.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Order{}, &apperr.NotFoundError{Entity: apperr.EntityOrder, ID: orderID.String()}
		}
		return store.Order{}, fmt.Errorf("lock order: %w", err)
	}
	if enum.OrderStatusClosed(order.Status) {
		return store.Order{}, &apperr.ClosedOrderError{OrderID: order.ID, Status: order.Status}
	}
	return order, nil
}

// --- stored-line projections ---

func pricingFromStored(lines []store.OrderLine) []pricing.Line {
	out := make([]pricing.Line, len(lines))
	for i, l := range lines {
		prices := make([]decimal.Decimal, len(l.Modifiers))
		for j, m := range l.Modifiers {
			prices[j] = m.Price
		}
		out[i] = pricing.Line{
			UnitPrice:      store.NumericToDecimal(l.UnitPrice),
			ModifierPrices: prices,
			Quantity:       l.Quantity,
			Discount:       store.NumericToDecimal(l.Discount),
		}
	}
	return out
}

// consumptionFromStored expands persisted lines against the given catalog
// snapshots. Ad-hoc lines and lines whose menu item no longer resolves
// contribute nothing.
func consumptionFromStored(lines []store.OrderLine, snaps map[uuid.UUID]catalog.Snapshot) []consumption.Line {
	var out []consumption.Line
	for _, l := range lines {
		if !l.MenuItemID.Valid {
			continue
		}
		snap, ok := snaps[uuid.UUID(l.MenuItemID.Bytes)]
		if !ok {
			continue
		}
		out = append(out, consumption.Line{Quantity: l.Quantity, Recipe: snap.Recipe})
	}
	return out
}

func menuItemIDsOf(lines []store.OrderLine) []uuid.UUID {
	var ids []uuid.UUID
	for _, l := range lines {
		if l.MenuItemID.Valid {
			ids = append(ids, uuid.UUID(l.MenuItemID.Bytes))
		}
	}
	return ids
}
