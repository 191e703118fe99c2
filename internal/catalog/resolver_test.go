package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dhaba-pos/api/internal/apperr"
	"github.com/dhaba-pos/api/internal/catalog"
	"github.com/dhaba-pos/api/internal/store"
)

type mockStore struct {
	getMenuItemsByIDsFn func(ctx context.Context, ids []uuid.UUID) ([]store.MenuItem, error)
}

func (m *mockStore) GetMenuItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]store.MenuItem, error) {
	if m.getMenuItemsByIDsFn != nil {
		return m.getMenuItemsByIDsFn(ctx, ids)
	}
	return nil, nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testItem(restaurantID uuid.UUID) store.MenuItem {
	return store.MenuItem{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Name:         "Chicken Pulao",
		BasePrice:    store.DecimalToNumeric(dec("250")),
		IsActive:     true,
		Variants: []store.Variant{
			{ID: uuid.New(), Name: "Half", Price: dec("150"), IsAvailable: true},
			{ID: uuid.New(), Name: "Full", Price: dec("250"), IsAvailable: true},
			{ID: uuid.New(), Name: "Jumbo", Price: dec("400"), IsAvailable: false},
		},
		Modifiers: []store.Modifier{
			{ID: uuid.New(), Name: "Extra Chicken", Price: dec("62.50")},
		},
	}
}

func TestResolve_HappyPath(t *testing.T) {
	restaurantID := uuid.New()
	item := testItem(restaurantID)

	st := &mockStore{
		getMenuItemsByIDsFn: func(ctx context.Context, ids []uuid.UUID) ([]store.MenuItem, error) {
			return []store.MenuItem{item}, nil
		},
	}

	snaps, err := catalog.Resolve(context.Background(), st, restaurantID, []uuid.UUID{item.ID})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	snap, ok := snaps[item.ID]
	if !ok {
		t.Fatal("snapshot missing")
	}
	if snap.Name != "Chicken Pulao" {
		t.Errorf("name: got %q", snap.Name)
	}
	if !snap.BasePrice.Equal(dec("250")) {
		t.Errorf("base price: got %s, want 250", snap.BasePrice)
	}
}

func TestResolve_UnknownReferenceFailsBatch(t *testing.T) {
	restaurantID := uuid.New()
	item := testItem(restaurantID)
	missing := uuid.New()

	st := &mockStore{
		getMenuItemsByIDsFn: func(ctx context.Context, ids []uuid.UUID) ([]store.MenuItem, error) {
			return []store.MenuItem{item}, nil
		},
	}

	_, err := catalog.Resolve(context.Background(), st, restaurantID, []uuid.UUID{item.ID, missing})
	var cerr *apperr.CatalogError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CatalogError, got %v", err)
	}
	if cerr.Kind != apperr.CatalogUnknown {
		t.Errorf("kind: got %s, want unknown", cerr.Kind)
	}
}

func TestResolve_InactiveItemRejected(t *testing.T) {
	restaurantID := uuid.New()
	item := testItem(restaurantID)
	item.IsActive = false

	st := &mockStore{
		getMenuItemsByIDsFn: func(ctx context.Context, ids []uuid.UUID) ([]store.MenuItem, error) {
			return []store.MenuItem{item}, nil
		},
	}

	_, err := catalog.Resolve(context.Background(), st, restaurantID, []uuid.UUID{item.ID})
	var cerr *apperr.CatalogError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CatalogError, got %v", err)
	}
	if cerr.Kind != apperr.CatalogInactive {
		t.Errorf("kind: got %s, want inactive", cerr.Kind)
	}
}

func TestResolve_CrossRestaurantItemInvisible(t *testing.T) {
	item := testItem(uuid.New())

	st := &mockStore{
		getMenuItemsByIDsFn: func(ctx context.Context, ids []uuid.UUID) ([]store.MenuItem, error) {
			return []store.MenuItem{item}, nil
		},
	}

	// Different restaurant asking for the same id.
	_, err := catalog.Resolve(context.Background(), st, uuid.New(), []uuid.UUID{item.ID})
	var cerr *apperr.CatalogError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CatalogError, got %v", err)
	}
	if cerr.Kind != apperr.CatalogUnknown {
		t.Errorf("kind: got %s, want unknown", cerr.Kind)
	}
}

func TestLoad_DeduplicatesIDs(t *testing.T) {
	restaurantID := uuid.New()
	item := testItem(restaurantID)

	var queried []uuid.UUID
	st := &mockStore{
		getMenuItemsByIDsFn: func(ctx context.Context, ids []uuid.UUID) ([]store.MenuItem, error) {
			queried = ids
			return []store.MenuItem{item}, nil
		},
	}

	_, err := catalog.Load(context.Background(), st, restaurantID, []uuid.UUID{item.ID, item.ID, item.ID})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(queried) != 1 {
		t.Errorf("queried ids: got %d, want 1", len(queried))
	}
}

func TestLoad_LenientOnInactiveAndUnknown(t *testing.T) {
	restaurantID := uuid.New()
	item := testItem(restaurantID)
	item.IsActive = false

	st := &mockStore{
		getMenuItemsByIDsFn: func(ctx context.Context, ids []uuid.UUID) ([]store.MenuItem, error) {
			return []store.MenuItem{item}, nil
		},
	}

	snaps, err := catalog.Load(context.Background(), st, restaurantID, []uuid.UUID{item.ID, uuid.New()})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("snapshots: got %d, want 1", len(snaps))
	}
	if snaps[item.ID].IsActive {
		t.Error("inactive flag should survive the load")
	}
}

func TestLoad_EmptyIDs(t *testing.T) {
	called := false
	st := &mockStore{
		getMenuItemsByIDsFn: func(ctx context.Context, ids []uuid.UUID) ([]store.MenuItem, error) {
			called = true
			return nil, nil
		},
	}
	snaps, err := catalog.Load(context.Background(), st, uuid.New(), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("snapshots: got %d, want 0", len(snaps))
	}
	if called {
		t.Error("no query should run for an empty id list")
	}
}

func TestResolveVariant_ByIDAndByName(t *testing.T) {
	item := testItem(uuid.New())
	snap := catalog.Snapshot{Variants: item.Variants}

	v, err := snap.ResolveVariant(item.Variants[0].ID, "")
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if v.Name != "Half" {
		t.Errorf("by id: got %q, want Half", v.Name)
	}

	v, err = snap.ResolveVariant(uuid.Nil, "Full")
	if err != nil {
		t.Fatalf("by name: %v", err)
	}
	if !v.Price.Equal(dec("250")) {
		t.Errorf("by name price: got %s, want 250", v.Price)
	}
}

func TestResolveVariant_UnavailableRejected(t *testing.T) {
	item := testItem(uuid.New())
	snap := catalog.Snapshot{Variants: item.Variants}

	_, err := snap.ResolveVariant(uuid.Nil, "Jumbo")
	var cerr *apperr.CatalogError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CatalogError, got %v", err)
	}
	if cerr.Kind != apperr.CatalogInvalidOption {
		t.Errorf("kind: got %s, want invalid_option", cerr.Kind)
	}
}

func TestResolveVariant_UnknownRejected(t *testing.T) {
	snap := catalog.Snapshot{}
	_, err := snap.ResolveVariant(uuid.New(), "")
	var cerr *apperr.CatalogError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CatalogError, got %v", err)
	}
}

func TestResolveModifier(t *testing.T) {
	item := testItem(uuid.New())
	snap := catalog.Snapshot{Modifiers: item.Modifiers}

	m, err := snap.ResolveModifier(uuid.Nil, "Extra Chicken")
	if err != nil {
		t.Fatalf("resolve modifier: %v", err)
	}
	if !m.Price.Equal(dec("62.50")) {
		t.Errorf("price: got %s, want 62.50", m.Price)
	}

	if _, err := snap.ResolveModifier(uuid.Nil, "Extra Cheese"); err == nil {
		t.Error("unknown modifier should fail")
	}
}
