package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dhaba-pos/api/internal/middleware"
	"github.com/dhaba-pos/api/internal/service"
	"github.com/dhaba-pos/api/internal/store"
)

// OrderServicer defines the engine operations the order handlers need.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, p service.CreateOrderParams) (*service.OrderDetail, error)
	AddItems(ctx context.Context, p service.AddItemsParams) (*service.OrderDetail, error)
	UpdateItems(ctx context.Context, p service.UpdateItemsParams) (*service.OrderDetail, error)
	ChangeTable(ctx context.Context, p service.ChangeTableParams) (*service.OrderDetail, error)
	UpdateStatus(ctx context.Context, p service.UpdateStatusParams) (*service.OrderDetail, error)
	AddPayment(ctx context.Context, p service.AddPaymentParams) (*service.OrderDetail, error)
	RefundPayment(ctx context.Context, p service.RefundPaymentParams) (*service.OrderDetail, error)
	MergeOrders(ctx context.Context, p service.MergeOrdersParams) (*service.OrderDetail, error)
	SplitItems(ctx context.Context, p service.SplitItemsParams) (*service.OrderDetail, *service.OrderDetail, error)
}

// OrderStore defines the database methods the read endpoints need.
// Satisfied by *store.Queries.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (store.Order, error)
	ListOrders(ctx context.Context, arg store.ListOrdersParams) ([]store.Order, error)
	ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]store.OrderLine, error)
	ListPayments(ctx context.Context, orderID uuid.UUID) ([]store.Payment, error)
	ListRefunds(ctx context.Context, orderID uuid.UUID) ([]store.Refund, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints. Expected to be mounted inside an
// outlet-scoped subrouter: /outlets/{oid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/items", h.AddItems)
	r.Put("/{id}/items", h.UpdateItems)
	r.Patch("/{id}/table", h.ChangeTable)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/payments", h.AddPayment)
	r.Post("/{id}/refunds", h.RefundPayment)
	r.Post("/{id}/merge", h.Merge)
	r.Post("/{id}/split", h.Split)
}

// --- Request / Response types ---

type createOrderRequest struct {
	TableID        string                `json:"table_id"`
	OrderType      string                `json:"order_type"`
	Items          []service.LineRequest `json:"items"`
	TaxTotal       decimal.Decimal       `json:"tax_total"`
	DiscountTotal  decimal.Decimal       `json:"discount_total"`
	ServiceCharge  decimal.Decimal       `json:"service_charge"`
	Notes          string                `json:"notes"`
	IdempotencyKey string                `json:"idempotency_key"`
}

type itemsRequest struct {
	Items []service.LineRequest `json:"items"`
}

type changeTableRequest struct {
	TableID string `json:"table_id"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type addPaymentRequest struct {
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

type refundRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Reference string          `json:"reference"`
}

type mergeRequest struct {
	TargetOrderID string `json:"target_order_id"`
}

type splitRequest struct {
	LineIDs     []uuid.UUID `json:"line_ids"`
	LineIndexes []int32     `json:"line_indexes"`
}

type orderResponse struct {
	ID            uuid.UUID  `json:"id"`
	RestaurantID  uuid.UUID  `json:"restaurant_id"`
	OutletID      uuid.UUID  `json:"outlet_id"`
	TableID       *uuid.UUID `json:"table_id"`
	OrderNumber   string     `json:"order_number"`
	OrderType     string     `json:"order_type"`
	Status        string     `json:"status"`
	Subtotal      string     `json:"subtotal"`
	TaxTotal      string     `json:"tax_total"`
	DiscountTotal string     `json:"discount_total"`
	ServiceCharge string     `json:"service_charge"`
	Total         string     `json:"total"`
	Notes         string     `json:"notes"`
	MergedInto    *uuid.UUID `json:"merged_into"`
	SplitFrom     *uuid.UUID `json:"split_from"`
	PlacedBy      uuid.UUID  `json:"placed_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type lineResponse struct {
	ID          uuid.UUID            `json:"id"`
	Position    int32                `json:"position"`
	MenuItemID  *uuid.UUID           `json:"menu_item_id"`
	Name        string               `json:"name"`
	VariantID   *uuid.UUID           `json:"variant_id"`
	VariantName string               `json:"variant_name"`
	Quantity    int32                `json:"quantity"`
	UnitPrice   string               `json:"unit_price"`
	Discount    string               `json:"discount"`
	Note        string               `json:"note"`
	Modifiers   []store.LineModifier `json:"modifiers"`
}

type paymentResponse struct {
	ID        uuid.UUID `json:"id"`
	Method    string    `json:"method"`
	Amount    string    `json:"amount"`
	Reference string    `json:"reference"`
	PaidAt    time.Time `json:"paid_at"`
}

type refundResponse struct {
	ID         uuid.UUID `json:"id"`
	Amount     string    `json:"amount"`
	Reason     string    `json:"reason"`
	Reference  string    `json:"reference"`
	RefundedAt time.Time `json:"refunded_at"`
}

type orderDetailResponse struct {
	orderResponse
	Lines    []lineResponse    `json:"lines"`
	Payments []paymentResponse `json:"payments"`
	Refunds  []refundResponse  `json:"refunds"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int32           `json:"limit"`
	Offset int32           `json:"offset"`
}

type splitResponse struct {
	Remaining orderDetailResponse `json:"remaining"`
	Split     orderDetailResponse `json:"split"`
}

func toOrderResponse(o store.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		RestaurantID:  o.RestaurantID,
		OutletID:      o.OutletID,
		TableID:       uuidPtr(o.TableID),
		OrderNumber:   o.OrderNumber,
		OrderType:     o.OrderType,
		Status:        o.Status,
		Subtotal:      numStr(o.Subtotal),
		TaxTotal:      numStr(o.TaxTotal),
		DiscountTotal: numStr(o.DiscountTotal),
		ServiceCharge: numStr(o.ServiceCharge),
		Total:         numStr(o.Total),
		Notes:         o.Notes,
		MergedInto:    uuidPtr(o.MergedInto),
		SplitFrom:     uuidPtr(o.SplitFrom),
		PlacedBy:      o.PlacedBy,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toOrderDetailResponse(d *service.OrderDetail) orderDetailResponse {
	resp := orderDetailResponse{
		orderResponse: toOrderResponse(d.Order),
		Lines:         []lineResponse{},
		Payments:      []paymentResponse{},
		Refunds:       []refundResponse{},
	}
	for _, l := range d.Lines {
		mods := l.Modifiers
		if mods == nil {
			mods = []store.LineModifier{}
		}
		resp.Lines = append(resp.Lines, lineResponse{
			ID:          l.ID,
			Position:    l.Position,
			MenuItemID:  uuidPtr(l.MenuItemID),
			Name:        l.Name,
			VariantID:   uuidPtr(l.VariantID),
			VariantName: l.VariantName,
			Quantity:    l.Quantity,
			UnitPrice:   numStr(l.UnitPrice),
			Discount:    numStr(l.Discount),
			Note:        l.Note,
			Modifiers:   mods,
		})
	}
	for _, p := range d.Payments {
		resp.Payments = append(resp.Payments, paymentResponse{
			ID:        p.ID,
			Method:    p.Method,
			Amount:    numStr(p.Amount),
			Reference: p.Reference,
			PaidAt:    p.PaidAt,
		})
	}
	for _, rf := range d.Refunds {
		resp.Refunds = append(resp.Refunds, refundResponse{
			ID:         rf.ID,
			Amount:     numStr(rf.Amount),
			Reason:     rf.Reason,
			Reference:  rf.Reference,
			RefundedAt: rf.RefundedAt,
		})
	}
	return resp
}

// --- Handlers ---

// Create handles POST /outlets/{oid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var tableID uuid.UUID
	if req.TableID != "" {
		var err error
		if tableID, err = uuid.Parse(req.TableID); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
	}

	key := req.IdempotencyKey
	if key == "" {
		key = r.Header.Get("Idempotency-Key")
	}

	detail, err := h.svc.CreateOrder(r.Context(), service.CreateOrderParams{
		RestaurantID:   claims.RestaurantID,
		OutletID:       outletID,
		TableID:        tableID,
		OrderType:      req.OrderType,
		Items:          req.Items,
		TaxTotal:       req.TaxTotal,
		DiscountTotal:  req.DiscountTotal,
		ServiceCharge:  req.ServiceCharge,
		Notes:          req.Notes,
		IdempotencyKey: key,
		PlacedBy:       claims.UserID,
	})
	if err != nil {
		respondServiceError(w, err, "create order")
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDetailResponse(detail))
}

// List handles GET /outlets/{oid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	outletID, ok := urlUUID(r, "oid")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid outlet ID"})
		return
	}

	limit, offset := parsePagination(r)
	params := store.ListOrdersParams{OutletID: outletID, Limit: limit, Offset: offset}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		respondServiceError(w, err, "list orders")
		return
	}

	resp := orderListResponse{Orders: []orderResponse{}, Limit: limit, Offset: offset}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /outlets/{oid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		respondServiceError(w, err, "get order")
		return
	}

	lines, err := h.store.ListOrderLines(r.Context(), order.ID)
	if err != nil {
		respondServiceError(w, err, "list order lines")
		return
	}
	payments, err := h.store.ListPayments(r.Context(), order.ID)
	if err != nil {
		respondServiceError(w, err, "list payments")
		return
	}
	refunds, err := h.store.ListRefunds(r.Context(), order.ID)
	if err != nil {
		respondServiceError(w, err, "list refunds")
		return
	}

	writeJSON(w, http.StatusOK, toOrderDetailResponse(&service.OrderDetail{
		Order: order, Lines: lines, Payments: payments, Refunds: refunds,
	}))
}

// AddItems handles POST /outlets/{oid}/orders/{id}/items.
func (h *OrderHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req itemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	detail, err := h.svc.AddItems(r.Context(), service.AddItemsParams{
		OrderID: orderID,
		Items:   req.Items,
		ActorID: claims.UserID,
	})
	if err != nil {
		respondServiceError(w, err, "add items")
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(detail))
}

// UpdateItems handles PUT /outlets/{oid}/orders/{id}/items (full replace).
func (h *OrderHandler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req itemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	detail, err := h.svc.UpdateItems(r.Context(), service.UpdateItemsParams{
		OrderID: orderID,
		Items:   req.Items,
		ActorID: claims.UserID,
	})
	if err != nil {
		respondServiceError(w, err, "update items")
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(detail))
}

// ChangeTable handles PATCH /outlets/{oid}/orders/{id}/table.
func (h *OrderHandler) ChangeTable(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req changeTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
		return
	}

	detail, err := h.svc.ChangeTable(r.Context(), service.ChangeTableParams{OrderID: orderID, TableID: tableID})
	if err != nil {
		respondServiceError(w, err, "change table")
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(detail))
}

// UpdateStatus handles PATCH /outlets/{oid}/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	detail, err := h.svc.UpdateStatus(r.Context(), service.UpdateStatusParams{OrderID: orderID, Status: req.Status})
	if err != nil {
		respondServiceError(w, err, "update status")
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(detail))
}

// AddPayment handles POST /outlets/{oid}/orders/{id}/payments.
func (h *OrderHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req addPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	detail, err := h.svc.AddPayment(r.Context(), service.AddPaymentParams{
		OrderID:   orderID,
		Method:    req.Method,
		Amount:    req.Amount,
		Reference: req.Reference,
	})
	if err != nil {
		respondServiceError(w, err, "add payment")
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(detail))
}

// RefundPayment handles POST /outlets/{oid}/orders/{id}/refunds.
func (h *OrderHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	detail, err := h.svc.RefundPayment(r.Context(), service.RefundPaymentParams{
		OrderID:   orderID,
		Amount:    req.Amount,
		Reason:    req.Reason,
		Reference: req.Reference,
	})
	if err != nil {
		respondServiceError(w, err, "refund payment")
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(detail))
}

// Merge handles POST /outlets/{oid}/orders/{id}/merge; {id} is the source.
func (h *OrderHandler) Merge(w http.ResponseWriter, r *http.Request) {
	sourceID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	targetID, err := uuid.Parse(req.TargetOrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid target_order_id"})
		return
	}

	detail, err := h.svc.MergeOrders(r.Context(), service.MergeOrdersParams{
		SourceOrderID: sourceID,
		TargetOrderID: targetID,
	})
	if err != nil {
		respondServiceError(w, err, "merge orders")
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailResponse(detail))
}

// Split handles POST /outlets/{oid}/orders/{id}/split.
func (h *OrderHandler) Split(w http.ResponseWriter, r *http.Request) {
	orderID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req splitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	remaining, split, err := h.svc.SplitItems(r.Context(), service.SplitItemsParams{
		OrderID:     orderID,
		LineIDs:     req.LineIDs,
		LineIndexes: req.LineIndexes,
		ActorID:     claims.UserID,
	})
	if err != nil {
		respondServiceError(w, err, "split items")
		return
	}
	writeJSON(w, http.StatusCreated, splitResponse{
		Remaining: toOrderDetailResponse(remaining),
		Split:     toOrderDetailResponse(split),
	})
}
