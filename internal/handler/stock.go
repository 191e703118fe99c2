package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dhaba-pos/api/internal/enum"
	"github.com/dhaba-pos/api/internal/inventory"
	"github.com/dhaba-pos/api/internal/middleware"
	"github.com/dhaba-pos/api/internal/notify"
	"github.com/dhaba-pos/api/internal/store"
)

// StockStore defines the database methods the stock read endpoints need.
// Satisfied by *store.Queries.
type StockStore interface {
	ListStockItems(ctx context.Context, arg store.ListStockItemsParams) ([]store.StockItem, error)
	ListStockMovements(ctx context.Context, arg store.ListStockMovementsParams) ([]store.StockMovement, error)
}

// StockHandler handles stock bookkeeping endpoints. Receive and adjust go
// through the same ledger as order consumption, inside their own
// transaction.
type StockHandler struct {
	store    StockStore
	pool     TxBeginner
	newStore func(db store.DBTX) inventory.Store
	ledger   inventory.Ledger
	sink     notify.Sink
}

func NewStockHandler(store StockStore, pool TxBeginner, newStore func(db store.DBTX) inventory.Store, ledger inventory.Ledger, sink notify.Sink) *StockHandler {
	return &StockHandler{store: store, pool: pool, newStore: newStore, ledger: ledger, sink: sink}
}

// --- Request / Response types ---

type stockItemResponse struct {
	ID           uuid.UUID  `json:"id"`
	RestaurantID uuid.UUID  `json:"restaurant_id"`
	OutletID     *uuid.UUID `json:"outlet_id"`
	Name         string     `json:"name"`
	Sku          *string    `json:"sku"`
	Unit         string     `json:"unit"`
	IsTracked    bool       `json:"is_tracked"`
	CurrentQty   string     `json:"current_qty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type movementResponse struct {
	ID          uuid.UUID  `json:"id"`
	StockItemID uuid.UUID  `json:"stock_item_id"`
	OutletID    *uuid.UUID `json:"outlet_id"`
	Change      string     `json:"change"`
	Kind        string     `json:"kind"`
	Reference   string     `json:"reference"`
	Note        string     `json:"note"`
	PerformedBy uuid.UUID  `json:"performed_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

type receiveStockRequest struct {
	Quantity  decimal.Decimal `json:"quantity"`
	Reference string          `json:"reference"`
	Note      string          `json:"note"`
}

type adjustStockRequest struct {
	Change    decimal.Decimal `json:"change"`
	Kind      string          `json:"kind"` // adjustment or transfer
	Reference string          `json:"reference"`
	Note      string          `json:"note"`
}

func toStockItemResponse(s store.StockItem) stockItemResponse {
	return stockItemResponse{
		ID:           s.ID,
		RestaurantID: s.RestaurantID,
		OutletID:     uuidPtr(s.OutletID),
		Name:         s.Name,
		Sku:          textPtr(s.Sku),
		Unit:         s.Unit,
		IsTracked:    s.IsTracked,
		CurrentQty:   numStr(s.CurrentQty),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func toMovementResponse(m store.StockMovement) movementResponse {
	return movementResponse{
		ID:          m.ID,
		StockItemID: m.StockItemID,
		OutletID:    uuidPtr(m.OutletID),
		Change:      numStr(m.Change),
		Kind:        m.Kind,
		Reference:   m.Reference,
		Note:        m.Note,
		PerformedBy: m.PerformedBy,
		CreatedAt:   m.CreatedAt,
	}
}

// --- Handlers ---

// List handles GET /outlets/{oid}/stock.
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit, offset := parsePagination(r)
	items, err := h.store.ListStockItems(r.Context(), store.ListStockItemsParams{
		RestaurantID: claims.RestaurantID,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		respondServiceError(w, err, "list stock items")
		return
	}

	resp := make([]stockItemResponse, 0, len(items))
	for _, s := range items {
		resp = append(resp, toStockItemResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListMovements handles GET /outlets/{oid}/stock/{id}/movements.
func (h *StockHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid stock item ID"})
		return
	}

	limit, offset := parsePagination(r)
	movements, err := h.store.ListStockMovements(r.Context(), store.ListStockMovementsParams{
		StockItemID: itemID,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		respondServiceError(w, err, "list stock movements")
		return
	}

	resp := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		resp = append(resp, toMovementResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Receive handles POST /outlets/{oid}/stock/{id}/receive: a purchase receipt
// adding to the stock level.
func (h *StockHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var req receiveStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !req.Quantity.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be positive"})
		return
	}
	h.record(w, r, req.Quantity, enum.MovementPurchase, req.Reference, req.Note)
}

// Adjust handles POST /outlets/{oid}/stock/{id}/adjust: a manual signed
// correction or a transfer.
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Change.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "change must be non-zero"})
		return
	}
	kind := req.Kind
	if kind == "" {
		kind = enum.MovementAdjustment
	}
	if kind != enum.MovementAdjustment && kind != enum.MovementTransfer {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind must be adjustment or transfer"})
		return
	}
	h.record(w, r, req.Change, kind, req.Reference, req.Note)
}

func (h *StockHandler) record(w http.ResponseWriter, r *http.Request, change decimal.Decimal, kind, reference, note string) {
	itemID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid stock item ID"})
		return
	}
	outletID, ok := urlUUID(r, "oid")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var movement store.StockMovement
	err := h.inTx(r.Context(), func(st inventory.Store) error {
		var err error
		movement, err = h.ledger.Record(r.Context(), st, itemID, change, kind, inventory.MovementContext{
			RestaurantID: claims.RestaurantID,
			OutletID:     pgtype.UUID{Bytes: outletID, Valid: true},
			Reference:    reference,
			Note:         note,
			PerformedBy:  claims.UserID,
		})
		return err
	})
	if err != nil {
		respondServiceError(w, err, "record stock movement")
		return
	}

	// Delivery is best effort; the movement is already committed.
	if err := h.sink.Publish(r.Context(), notify.Event{
		Type:         enum.EventStockMovement,
		RestaurantID: claims.RestaurantID,
		OutletID:     outletID,
		Payload:      toMovementResponse(movement),
	}); err != nil {
		log.Printf("ERROR: publish stock movement %s: %v", movement.ID, err)
	}

	writeJSON(w, http.StatusCreated, toMovementResponse(movement))
}

func (h *StockHandler) inTx(ctx context.Context, fn func(st inventory.Store) error) error {
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(h.newStore(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
