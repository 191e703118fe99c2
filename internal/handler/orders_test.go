package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dhaba-pos/api/internal/apperr"
	"github.com/dhaba-pos/api/internal/auth"
	"github.com/dhaba-pos/api/internal/enum"
	"github.com/dhaba-pos/api/internal/handler"
	"github.com/dhaba-pos/api/internal/middleware"
	"github.com/dhaba-pos/api/internal/service"
	"github.com/dhaba-pos/api/internal/store"
)

const testSecret = "test-secret"

// --- mocks ---

// mockOrderServicer implements handler.OrderServicer with overridable
// function fields. Nil functions return a stub detail.
type mockOrderServicer struct {
	createOrderFn   func(ctx context.Context, p service.CreateOrderParams) (*service.OrderDetail, error)
	addItemsFn      func(ctx context.Context, p service.AddItemsParams) (*service.OrderDetail, error)
	updateItemsFn   func(ctx context.Context, p service.UpdateItemsParams) (*service.OrderDetail, error)
	changeTableFn   func(ctx context.Context, p service.ChangeTableParams) (*service.OrderDetail, error)
	updateStatusFn  func(ctx context.Context, p service.UpdateStatusParams) (*service.OrderDetail, error)
	addPaymentFn    func(ctx context.Context, p service.AddPaymentParams) (*service.OrderDetail, error)
	refundPaymentFn func(ctx context.Context, p service.RefundPaymentParams) (*service.OrderDetail, error)
	mergeOrdersFn   func(ctx context.Context, p service.MergeOrdersParams) (*service.OrderDetail, error)
	splitItemsFn    func(ctx context.Context, p service.SplitItemsParams) (*service.OrderDetail, *service.OrderDetail, error)
}

func (m *mockOrderServicer) CreateOrder(ctx context.Context, p service.CreateOrderParams) (*service.OrderDetail, error) {
	if m.createOrderFn != nil {
		return m.createOrderFn(ctx, p)
	}
	return stubDetail(), nil
}

func (m *mockOrderServicer) AddItems(ctx context.Context, p service.AddItemsParams) (*service.OrderDetail, error) {
	if m.addItemsFn != nil {
		return m.addItemsFn(ctx, p)
	}
	return stubDetail(), nil
}

func (m *mockOrderServicer) UpdateItems(ctx context.Context, p service.UpdateItemsParams) (*service.OrderDetail, error) {
	if m.updateItemsFn != nil {
		return m.updateItemsFn(ctx, p)
	}
	return stubDetail(), nil
}

func (m *mockOrderServicer) ChangeTable(ctx context.Context, p service.ChangeTableParams) (*service.OrderDetail, error) {
	if m.changeTableFn != nil {
		return m.changeTableFn(ctx, p)
	}
	return stubDetail(), nil
}

func (m *mockOrderServicer) UpdateStatus(ctx context.Context, p service.UpdateStatusParams) (*service.OrderDetail, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, p)
	}
	return stubDetail(), nil
}

func (m *mockOrderServicer) AddPayment(ctx context.Context, p service.AddPaymentParams) (*service.OrderDetail, error) {
	if m.addPaymentFn != nil {
		return m.addPaymentFn(ctx, p)
	}
	return stubDetail(), nil
}

func (m *mockOrderServicer) RefundPayment(ctx context.Context, p service.RefundPaymentParams) (*service.OrderDetail, error) {
	if m.refundPaymentFn != nil {
		return m.refundPaymentFn(ctx, p)
	}
	return stubDetail(), nil
}

func (m *mockOrderServicer) MergeOrders(ctx context.Context, p service.MergeOrdersParams) (*service.OrderDetail, error) {
	if m.mergeOrdersFn != nil {
		return m.mergeOrdersFn(ctx, p)
	}
	return stubDetail(), nil
}

func (m *mockOrderServicer) SplitItems(ctx context.Context, p service.SplitItemsParams) (*service.OrderDetail, *service.OrderDetail, error) {
	if m.splitItemsFn != nil {
		return m.splitItemsFn(ctx, p)
	}
	return stubDetail(), stubDetail(), nil
}

// mockOrderStore implements handler.OrderStore. Nil functions behave as an
// empty database.
type mockOrderStore struct {
	getOrderFn       func(ctx context.Context, id uuid.UUID) (store.Order, error)
	listOrdersFn     func(ctx context.Context, arg store.ListOrdersParams) ([]store.Order, error)
	listOrderLinesFn func(ctx context.Context, orderID uuid.UUID) ([]store.OrderLine, error)
	listPaymentsFn   func(ctx context.Context, orderID uuid.UUID) ([]store.Payment, error)
	listRefundsFn    func(ctx context.Context, orderID uuid.UUID) ([]store.Refund, error)
}

func (m *mockOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (store.Order, error) {
	if m.getOrderFn != nil {
		return m.getOrderFn(ctx, id)
	}
	return store.Order{}, pgx.ErrNoRows
}

func (m *mockOrderStore) ListOrders(ctx context.Context, arg store.ListOrdersParams) ([]store.Order, error) {
	if m.listOrdersFn != nil {
		return m.listOrdersFn(ctx, arg)
	}
	return []store.Order{}, nil
}

func (m *mockOrderStore) ListOrderLines(ctx context.Context, orderID uuid.UUID) ([]store.OrderLine, error) {
	if m.listOrderLinesFn != nil {
		return m.listOrderLinesFn(ctx, orderID)
	}
	return []store.OrderLine{}, nil
}

func (m *mockOrderStore) ListPayments(ctx context.Context, orderID uuid.UUID) ([]store.Payment, error) {
	if m.listPaymentsFn != nil {
		return m.listPaymentsFn(ctx, orderID)
	}
	return []store.Payment{}, nil
}

func (m *mockOrderStore) ListRefunds(ctx context.Context, orderID uuid.UUID) ([]store.Refund, error) {
	if m.listRefundsFn != nil {
		return m.listRefundsFn(ctx, orderID)
	}
	return []store.Refund{}, nil
}

// --- helpers ---

func num(s string) pgtype.Numeric {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return store.DecimalToNumeric(d)
}

func stubDetail() *service.OrderDetail {
	return &service.OrderDetail{
		Order: store.Order{
			ID:          uuid.New(),
			OrderNumber: "ORD-0001",
			OrderType:   enum.OrderTypeCounter,
			Status:      enum.OrderStatusPending,
			Subtotal:    num("500"),
			TaxTotal:    num("25"),
			Total:       num("525"),
		},
		Lines: []store.OrderLine{{
			ID:        uuid.New(),
			Name:      "Chicken Pulao",
			Quantity:  2,
			UnitPrice: num("250"),
			Discount:  num("0"),
		}},
		Payments: []store.Payment{},
		Refunds:  []store.Refund{},
	}
}

type testClaims struct {
	userID       uuid.UUID
	restaurantID uuid.UUID
	outletID     uuid.UUID
	role         string
}

func defaultClaims() testClaims {
	return testClaims{
		userID:       uuid.New(),
		restaurantID: uuid.New(),
		outletID:     uuid.New(),
		role:         enum.UserRoleCashier,
	}
}

func setupOrderRouter(svc handler.OrderServicer, st handler.OrderStore) chi.Router {
	r := chi.NewRouter()
	h := handler.NewOrderHandler(svc, st)
	r.Route("/outlets/{oid}/orders", func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		h.RegisterRoutes(r)
	})
	return r
}

func doAuthRequest(t *testing.T, router chi.Router, method, path string, body interface{}, claims testClaims) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	token, err := auth.GenerateToken(testSecret, claims.userID, claims.restaurantID, claims.outletID, claims.role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return m
}

func ordersPath(outletID uuid.UUID, rest string) string {
	return fmt.Sprintf("/outlets/%s/orders%s", outletID, rest)
}

// --- tests ---

func TestCreateOrderEndpoint(t *testing.T) {
	claims := defaultClaims()
	var got service.CreateOrderParams
	svc := &mockOrderServicer{
		createOrderFn: func(ctx context.Context, p service.CreateOrderParams) (*service.OrderDetail, error) {
			got = p
			return stubDetail(), nil
		},
	}
	router := setupOrderRouter(svc, &mockOrderStore{})

	body := map[string]interface{}{
		"items": []map[string]interface{}{
			{"menu_item_id": uuid.New(), "quantity": 2},
		},
		"tax_total":       "25",
		"idempotency_key": "req-1",
	}
	rec := doAuthRequest(t, router, http.MethodPost, ordersPath(claims.outletID, "/"), body, claims)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if got.OutletID != claims.outletID {
		t.Errorf("outlet: got %v, want %v", got.OutletID, claims.outletID)
	}
	if got.RestaurantID != claims.restaurantID {
		t.Errorf("restaurant: got %v, want %v", got.RestaurantID, claims.restaurantID)
	}
	if got.PlacedBy != claims.userID {
		t.Errorf("placed_by: got %v, want %v", got.PlacedBy, claims.userID)
	}
	if got.IdempotencyKey != "req-1" {
		t.Errorf("idempotency key: got %q", got.IdempotencyKey)
	}
	if !got.TaxTotal.Equal(decimal.NewFromInt(25)) {
		t.Errorf("tax total: got %s", got.TaxTotal)
	}

	resp := decodeBody(t, rec)
	// Money fields serialize as strings.
	if resp["subtotal"] != "500" {
		t.Errorf("subtotal: got %v (%T), want \"500\"", resp["subtotal"], resp["subtotal"])
	}
	if resp["total"] != "525" {
		t.Errorf("total: got %v", resp["total"])
	}
}

func TestCreateOrderEndpoint_IdempotencyKeyHeaderFallback(t *testing.T) {
	claims := defaultClaims()
	var got service.CreateOrderParams
	svc := &mockOrderServicer{
		createOrderFn: func(ctx context.Context, p service.CreateOrderParams) (*service.OrderDetail, error) {
			got = p
			return stubDetail(), nil
		},
	}
	router := setupOrderRouter(svc, &mockOrderStore{})

	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(map[string]interface{}{
		"items": []map[string]interface{}{{"name": "Chai", "quantity": 1, "unit_price": "30"}},
	})
	req := httptest.NewRequest(http.MethodPost, ordersPath(claims.outletID, "/"), &buf)
	token, _ := auth.GenerateToken(testSecret, claims.userID, claims.restaurantID, claims.outletID, claims.role)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Idempotency-Key", "hdr-77")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body.String())
	}
	if got.IdempotencyKey != "hdr-77" {
		t.Errorf("idempotency key: got %q, want hdr-77", got.IdempotencyKey)
	}
}

func TestCreateOrderEndpoint_InvalidBody(t *testing.T) {
	claims := defaultClaims()
	router := setupOrderRouter(&mockOrderServicer{}, &mockOrderStore{})

	req := httptest.NewRequest(http.MethodPost, ordersPath(claims.outletID, "/"), bytes.NewBufferString("{nope"))
	token, _ := auth.GenerateToken(testSecret, claims.userID, claims.restaurantID, claims.outletID, claims.role)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
}

func TestCreateOrderEndpoint_NoAuth(t *testing.T) {
	router := setupOrderRouter(&mockOrderServicer{}, &mockOrderStore{})

	req := httptest.NewRequest(http.MethodPost, ordersPath(uuid.New(), "/"), bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
}

func TestCreateOrderEndpoint_ErrorMapping(t *testing.T) {
	claims := defaultClaims()
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.Validationf("order needs at least one item"), http.StatusBadRequest},
		{"catalog", &apperr.CatalogError{Kind: apperr.CatalogUnknown, Ref: "x"}, http.StatusBadRequest},
		{"not found", &apperr.NotFoundError{Entity: apperr.EntityOrder, ID: "x"}, http.StatusNotFound},
		{"closed", &apperr.ClosedOrderError{OrderID: uuid.New(), Status: enum.OrderStatusCompleted}, http.StatusConflict},
		{"table conflict", &apperr.TableConflictError{Kind: apperr.TableAlreadyBound, TableID: uuid.New()}, http.StatusConflict},
		{"insufficient stock", &apperr.InsufficientStockError{StockItemID: uuid.New(), Name: "Rice"}, http.StatusConflict},
		{"internal", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockOrderServicer{
				createOrderFn: func(ctx context.Context, p service.CreateOrderParams) (*service.OrderDetail, error) {
					return nil, tc.err
				},
			}
			router := setupOrderRouter(svc, &mockOrderStore{})
			body := map[string]interface{}{"items": []map[string]interface{}{{"name": "x", "quantity": 1}}}
			rec := doAuthRequest(t, router, http.MethodPost, ordersPath(claims.outletID, "/"), body, claims)

			if rec.Code != tc.want {
				t.Errorf("status: got %d, want %d", rec.Code, tc.want)
			}
			resp := decodeBody(t, rec)
			if _, ok := resp["error"]; !ok {
				t.Error("response has no error field")
			}
			if tc.want == http.StatusInternalServerError && resp["error"] != "internal server error" {
				t.Errorf("internal errors must not leak details: %v", resp["error"])
			}
		})
	}
}

func TestListOrdersEndpoint_Pagination(t *testing.T) {
	claims := defaultClaims()
	var got store.ListOrdersParams
	st := &mockOrderStore{
		listOrdersFn: func(ctx context.Context, arg store.ListOrdersParams) ([]store.Order, error) {
			got = arg
			return []store.Order{}, nil
		},
	}
	router := setupOrderRouter(&mockOrderServicer{}, st)

	rec := doAuthRequest(t, router, http.MethodGet, ordersPath(claims.outletID, "/"), nil, claims)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if got.Limit != 20 || got.Offset != 0 {
		t.Errorf("defaults: got limit=%d offset=%d, want 20/0", got.Limit, got.Offset)
	}

	doAuthRequest(t, router, http.MethodGet, ordersPath(claims.outletID, "/?limit=500&offset=40"), nil, claims)
	if got.Limit != 100 {
		t.Errorf("limit cap: got %d, want 100", got.Limit)
	}
	if got.Offset != 40 {
		t.Errorf("offset: got %d, want 40", got.Offset)
	}
}

func TestListOrdersEndpoint_StatusFilter(t *testing.T) {
	claims := defaultClaims()
	var got store.ListOrdersParams
	st := &mockOrderStore{
		listOrdersFn: func(ctx context.Context, arg store.ListOrdersParams) ([]store.Order, error) {
			got = arg
			return []store.Order{}, nil
		},
	}
	router := setupOrderRouter(&mockOrderServicer{}, st)

	rec := doAuthRequest(t, router, http.MethodGet, ordersPath(claims.outletID, "/?status=pending"), nil, claims)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !got.Status.Valid || got.Status.String != enum.OrderStatusPending {
		t.Errorf("status filter: got %+v", got.Status)
	}
	if got.OutletID != claims.outletID {
		t.Errorf("outlet: got %v", got.OutletID)
	}
}

func TestGetOrderEndpoint(t *testing.T) {
	claims := defaultClaims()
	orderID := uuid.New()
	st := &mockOrderStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (store.Order, error) {
			if id != orderID {
				return store.Order{}, pgx.ErrNoRows
			}
			return store.Order{ID: orderID, OrderNumber: "ORD-0042", Status: enum.OrderStatusServed,
				Subtotal: num("100"), Total: num("100")}, nil
		},
	}
	router := setupOrderRouter(&mockOrderServicer{}, st)

	rec := doAuthRequest(t, router, http.MethodGet, ordersPath(claims.outletID, "/"+orderID.String()), nil, claims)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["order_number"] != "ORD-0042" {
		t.Errorf("order_number: got %v", resp["order_number"])
	}
	// Empty collections serialize as [], never null.
	if resp["lines"] == nil || resp["payments"] == nil || resp["refunds"] == nil {
		t.Errorf("nil collections in response: %v", resp)
	}
}

func TestGetOrderEndpoint_NotFound(t *testing.T) {
	claims := defaultClaims()
	router := setupOrderRouter(&mockOrderServicer{}, &mockOrderStore{})

	rec := doAuthRequest(t, router, http.MethodGet, ordersPath(claims.outletID, "/"+uuid.New().String()), nil, claims)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
}

func TestGetOrderEndpoint_InvalidID(t *testing.T) {
	claims := defaultClaims()
	router := setupOrderRouter(&mockOrderServicer{}, &mockOrderStore{})

	rec := doAuthRequest(t, router, http.MethodGet, ordersPath(claims.outletID, "/not-a-uuid"), nil, claims)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
}

func TestAddItemsEndpoint(t *testing.T) {
	claims := defaultClaims()
	orderID := uuid.New()
	var got service.AddItemsParams
	svc := &mockOrderServicer{
		addItemsFn: func(ctx context.Context, p service.AddItemsParams) (*service.OrderDetail, error) {
			got = p
			return stubDetail(), nil
		},
	}
	router := setupOrderRouter(svc, &mockOrderStore{})

	body := map[string]interface{}{"items": []map[string]interface{}{{"menu_item_id": uuid.New(), "quantity": 1}}}
	rec := doAuthRequest(t, router, http.MethodPost, ordersPath(claims.outletID, "/"+orderID.String()+"/items"), body, claims)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body.String())
	}
	if got.OrderID != orderID {
		t.Errorf("order id: got %v", got.OrderID)
	}
	if got.ActorID != claims.userID {
		t.Errorf("actor: got %v", got.ActorID)
	}
	if len(got.Items) != 1 {
		t.Errorf("items: got %d", len(got.Items))
	}
}

func TestChangeTableEndpoint(t *testing.T) {
	claims := defaultClaims()
	orderID := uuid.New()
	tableID := uuid.New()
	var got service.ChangeTableParams
	svc := &mockOrderServicer{
		changeTableFn: func(ctx context.Context, p service.ChangeTableParams) (*service.OrderDetail, error) {
			got = p
			return stubDetail(), nil
		},
	}
	router := setupOrderRouter(svc, &mockOrderStore{})

	rec := doAuthRequest(t, router, http.MethodPatch, ordersPath(claims.outletID, "/"+orderID.String()+"/table"),
		map[string]string{"table_id": tableID.String()}, claims)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body.String())
	}
	if got.OrderID != orderID || got.TableID != tableID {
		t.Errorf("params: got %+v", got)
	}
}

func TestChangeTableEndpoint_InvalidTableID(t *testing.T) {
	claims := defaultClaims()
	router := setupOrderRouter(&mockOrderServicer{}, &mockOrderStore{})

	rec := doAuthRequest(t, router, http.MethodPatch, ordersPath(claims.outletID, "/"+uuid.New().String()+"/table"),
		map[string]string{"table_id": "zzz"}, claims)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
}

func TestUpdateStatusEndpoint(t *testing.T) {
	claims := defaultClaims()
	orderID := uuid.New()
	var got service.UpdateStatusParams
	svc := &mockOrderServicer{
		updateStatusFn: func(ctx context.Context, p service.UpdateStatusParams) (*service.OrderDetail, error) {
			got = p
			return stubDetail(), nil
		},
	}
	router := setupOrderRouter(svc, &mockOrderStore{})

	rec := doAuthRequest(t, router, http.MethodPatch, ordersPath(claims.outletID, "/"+orderID.String()+"/status"),
		map[string]string{"status": enum.OrderStatusInKitchen}, claims)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if got.Status != enum.OrderStatusInKitchen {
		t.Errorf("status param: got %q", got.Status)
	}
}

func TestAddPaymentEndpoint(t *testing.T) {
	claims := defaultClaims()
	orderID := uuid.New()
	var got service.AddPaymentParams
	svc := &mockOrderServicer{
		addPaymentFn: func(ctx context.Context, p service.AddPaymentParams) (*service.OrderDetail, error) {
			got = p
			return stubDetail(), nil
		},
	}
	router := setupOrderRouter(svc, &mockOrderStore{})

	rec := doAuthRequest(t, router, http.MethodPost, ordersPath(claims.outletID, "/"+orderID.String()+"/payments"),
		map[string]interface{}{"method": "upi", "amount": "525", "reference": "UPI-1"}, claims)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body.String())
	}
	if got.Method != "upi" || !got.Amount.Equal(decimal.NewFromInt(525)) || got.Reference != "UPI-1" {
		t.Errorf("params: got %+v", got)
	}
}

func TestRefundEndpoint(t *testing.T) {
	claims := defaultClaims()
	orderID := uuid.New()
	var got service.RefundPaymentParams
	svc := &mockOrderServicer{
		refundPaymentFn: func(ctx context.Context, p service.RefundPaymentParams) (*service.OrderDetail, error) {
			got = p
			return stubDetail(), nil
		},
	}
	router := setupOrderRouter(svc, &mockOrderStore{})

	rec := doAuthRequest(t, router, http.MethodPost, ordersPath(claims.outletID, "/"+orderID.String()+"/refunds"),
		map[string]interface{}{"amount": "100", "reason": "cold food"}, claims)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body.String())
	}
	if !got.Amount.Equal(decimal.NewFromInt(100)) || got.Reason != "cold food" {
		t.Errorf("params: got %+v", got)
	}
}

func TestMergeEndpoint(t *testing.T) {
	claims := defaultClaims()
	sourceID := uuid.New()
	targetID := uuid.New()
	var got service.MergeOrdersParams
	svc := &mockOrderServicer{
		mergeOrdersFn: func(ctx context.Context, p service.MergeOrdersParams) (*service.OrderDetail, error) {
			got = p
			return stubDetail(), nil
		},
	}
	router := setupOrderRouter(svc, &mockOrderStore{})

	rec := doAuthRequest(t, router, http.MethodPost, ordersPath(claims.outletID, "/"+sourceID.String()+"/merge"),
		map[string]string{"target_order_id": targetID.String()}, claims)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body.String())
	}
	if got.SourceOrderID != sourceID || got.TargetOrderID != targetID {
		t.Errorf("params: got %+v", got)
	}
}

func TestMergeEndpoint_InvalidTarget(t *testing.T) {
	claims := defaultClaims()
	router := setupOrderRouter(&mockOrderServicer{}, &mockOrderStore{})

	rec := doAuthRequest(t, router, http.MethodPost, ordersPath(claims.outletID, "/"+uuid.New().String()+"/merge"),
		map[string]string{"target_order_id": "not-a-uuid"}, claims)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
}

func TestSplitEndpoint(t *testing.T) {
	claims := defaultClaims()
	orderID := uuid.New()
	lineID := uuid.New()
	var got service.SplitItemsParams
	svc := &mockOrderServicer{
		splitItemsFn: func(ctx context.Context, p service.SplitItemsParams) (*service.OrderDetail, *service.OrderDetail, error) {
			got = p
			return stubDetail(), stubDetail(), nil
		},
	}
	router := setupOrderRouter(svc, &mockOrderStore{})

	rec := doAuthRequest(t, router, http.MethodPost, ordersPath(claims.outletID, "/"+orderID.String()+"/split"),
		map[string]interface{}{"line_ids": []string{lineID.String()}}, claims)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body.String())
	}
	if got.OrderID != orderID {
		t.Errorf("order id: got %v", got.OrderID)
	}
	if len(got.LineIDs) != 1 || got.LineIDs[0] != lineID {
		t.Errorf("line ids: got %v", got.LineIDs)
	}
	if got.ActorID != claims.userID {
		t.Errorf("actor: got %v", got.ActorID)
	}

	resp := decodeBody(t, rec)
	if resp["remaining"] == nil || resp["split"] == nil {
		t.Errorf("split response shape: %v", resp)
	}
}
