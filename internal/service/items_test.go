package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/dhaba-pos/api/internal/apperr"
	"github.com/dhaba-pos/api/internal/enum"
	"github.com/dhaba-pos/api/internal/store"
)

// openPulaoOrder seeds a pending order carrying qty servings of pulao, as
// if CreateOrder had already run and consumed its stock.
func openPulaoOrder(f *fakeStore, pulao uuid.UUID, qty int32) store.Order {
	o := f.addOrder(enum.OrderStatusPending, map[string]string{
		"subtotal": "500", "total": "500",
	})
	f.addLine(o.ID, pulao, "Chicken Pulao", qty, "250")
	return o
}

func TestAddItems_AppliesOnlyTheDelta(t *testing.T) {
	f, pulao, rice := pulaoStore("30")
	order := openPulaoOrder(f, pulao, 2)
	svc, sink := newTestService(f, true)

	detail, err := svc.AddItems(context.Background(), AddItemsParams{
		OrderID: order.ID,
		Items:   []LineRequest{{MenuItemID: pulao, Quantity: 1}},
		ActorID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("add items: %v", err)
	}

	if len(detail.Lines) != 2 {
		t.Fatalf("lines: got %d, want 2", len(detail.Lines))
	}
	if detail.Lines[1].Position != 1 {
		t.Errorf("appended line position: got %d, want 1", detail.Lines[1].Position)
	}
	// 3 x 250
	if !numEq(detail.Order.Subtotal, "750") {
		t.Errorf("subtotal: got %s, want 750", store.NumericToDecimal(detail.Order.Subtotal))
	}

	// Only the added serving moves stock: 30 - 0.35.
	if got := f.stockQty(rice); !got.Equal(dec("29.65")) {
		t.Errorf("rice qty: got %s, want 29.65", got)
	}
	if len(f.movements) != 1 || !numEq(f.movements[0].Change, "-0.35") {
		t.Fatalf("movements: got %+v, want one -0.35 usage", f.movements)
	}

	if len(sink.events) != 1 || sink.events[0].Type != enum.EventOrderItemsAdded {
		t.Errorf("events: got %v, want one order:itemsAdded", sink.events)
	}
}

func TestAddItems_EmptyRejected(t *testing.T) {
	f, pulao, _ := pulaoStore("30")
	order := openPulaoOrder(f, pulao, 2)
	svc, _ := newTestService(f, true)

	_, err := svc.AddItems(context.Background(), AddItemsParams{OrderID: order.ID})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAddItems_ClosedOrderRejected(t *testing.T) {
	f, pulao, _ := pulaoStore("30")
	order := f.addOrder(enum.OrderStatusCompleted, nil)
	svc, _ := newTestService(f, true)

	_, err := svc.AddItems(context.Background(), AddItemsParams{
		OrderID: order.ID,
		Items:   []LineRequest{{MenuItemID: pulao, Quantity: 1}},
	})
	var cerr *apperr.ClosedOrderError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ClosedOrderError, got %v", err)
	}
	if cerr.Status != enum.OrderStatusCompleted {
		t.Errorf("closed status: got %s", cerr.Status)
	}
}

func TestAddItems_UnknownOrder(t *testing.T) {
	f, pulao, _ := pulaoStore("30")
	svc, _ := newTestService(f, true)

	_, err := svc.AddItems(context.Background(), AddItemsParams{
		OrderID: uuid.New(),
		Items:   []LineRequest{{MenuItemID: pulao, Quantity: 1}},
	})
	var nfe *apperr.NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestUpdateItems_DecreaseReturnsStock(t *testing.T) {
	f, pulao, rice := pulaoStore("30")
	order := openPulaoOrder(f, pulao, 2)
	svc, _ := newTestService(f, true)

	detail, err := svc.UpdateItems(context.Background(), UpdateItemsParams{
		OrderID: order.ID,
		Items:   []LineRequest{{MenuItemID: pulao, Quantity: 1}},
		ActorID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("update items: %v", err)
	}

	if !numEq(detail.Order.Subtotal, "250") {
		t.Errorf("subtotal: got %s, want 250", store.NumericToDecimal(detail.Order.Subtotal))
	}

	// One serving returned: 30 + 0.35.
	if got := f.stockQty(rice); !got.Equal(dec("30.35")) {
		t.Errorf("rice qty: got %s, want 30.35", got)
	}
	if len(f.movements) != 1 {
		t.Fatalf("movements: got %d, want 1", len(f.movements))
	}
	mv := f.movements[0]
	if mv.Kind != enum.MovementAdjustment || !numEq(mv.Change, "0.35") {
		t.Errorf("movement: got kind=%s change=%s, want adjustment +0.35", mv.Kind, store.NumericToDecimal(mv.Change))
	}
}

func TestUpdateItems_UnchangedLinesMoveNoStock(t *testing.T) {
	f, pulao, rice := pulaoStore("30")
	order := openPulaoOrder(f, pulao, 2)
	svc, _ := newTestService(f, true)

	_, err := svc.UpdateItems(context.Background(), UpdateItemsParams{
		OrderID: order.ID,
		Items:   []LineRequest{{MenuItemID: pulao, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("update items: %v", err)
	}
	if len(f.movements) != 0 {
		t.Errorf("movements: got %d, want 0", len(f.movements))
	}
	if got := f.stockQty(rice); !got.Equal(dec("30")) {
		t.Errorf("rice qty: got %s, want 30", got)
	}
}

func TestUpdateItems_EmptyRejected(t *testing.T) {
	f, pulao, _ := pulaoStore("30")
	order := openPulaoOrder(f, pulao, 2)
	svc, _ := newTestService(f, true)

	_, err := svc.UpdateItems(context.Background(), UpdateItemsParams{OrderID: order.ID})
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUpdateItems_SwapConsumesNewAndReturnsOld(t *testing.T) {
	f, pulao, rice := pulaoStore("30")
	paneer := f.addStockItem("Paneer", "10", true)
	masala := f.addMenuItem("Paneer Butter Masala", "220", []store.RecipeRule{
		{StockItemID: paneer, Qty: dec("0.2"), Unit: "kg"},
	})
	order := openPulaoOrder(f, pulao, 2)
	svc, _ := newTestService(f, true)

	_, err := svc.UpdateItems(context.Background(), UpdateItemsParams{
		OrderID: order.ID,
		Items:   []LineRequest{{MenuItemID: masala, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("update items: %v", err)
	}
	if got := f.stockQty(rice); !got.Equal(dec("30.7")) {
		t.Errorf("rice returned: got %s, want 30.7", got)
	}
	if got := f.stockQty(paneer); !got.Equal(dec("9.8")) {
		t.Errorf("paneer consumed: got %s, want 9.8", got)
	}
	if len(f.movements) != 2 {
		t.Errorf("movements: got %d, want 2", len(f.movements))
	}
}
