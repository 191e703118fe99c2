package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dhaba-pos/api/internal/apperr"
	"github.com/dhaba-pos/api/internal/catalog"
	"github.com/dhaba-pos/api/internal/consumption"
	"github.com/dhaba-pos/api/internal/inventory"
	"github.com/dhaba-pos/api/internal/pricing"
	"github.com/dhaba-pos/api/internal/store"
)

// ModifierRequest references a modifier by id or, when no id is given, by
// name.
type ModifierRequest struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// LineRequest is one incoming order line. A zero MenuItemID marks an ad-hoc
// line: the caller supplies the name and unit price and no stock is
// consumed. Catalog lines take their prices and recipe from the snapshot;
// a caller-supplied UnitPrice is ignored for them.
type LineRequest struct {
	MenuItemID  uuid.UUID         `json:"menu_item_id"`
	Name        string            `json:"name"`
	VariantID   uuid.UUID         `json:"variant_id"`
	VariantName string            `json:"variant_name"`
	Modifiers   []ModifierRequest `json:"modifiers"`
	Quantity    int32             `json:"quantity"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	Discount    decimal.Decimal   `json:"discount"`
	Note        string            `json:"note"`
}

// resolvedLine is a LineRequest validated against the catalog snapshot,
// ready to persist and to feed the pricer and the consumption calculator.
type resolvedLine struct {
	menuItemID  pgtype.UUID
	name        string
	variantID   pgtype.UUID
	variantName string
	quantity    int32
	unitPrice   decimal.Decimal
	discount    decimal.Decimal
	note        string
	modifiers   []store.LineModifier
	recipe      []store.RecipeRule
}

// resolveLines validates a batch of incoming lines against one catalog
// snapshot. Any unresolvable reference fails the whole batch.
func resolveLines(ctx context.Context, st Store, restaurantID uuid.UUID, reqs []LineRequest) ([]resolvedLine, error) {
	var catalogIDs []uuid.UUID
	for _, r := range reqs {
		if r.MenuItemID != uuid.Nil {
			catalogIDs = append(catalogIDs, r.MenuItemID)
		}
	}
	snaps, err := catalog.Resolve(ctx, st, restaurantID, catalogIDs)
	if err != nil {
		return nil, err
	}

	out := make([]resolvedLine, 0, len(reqs))
	for i, r := range reqs {
		if r.Quantity <= 0 {
			return nil, apperr.Validationf("item %d: quantity must be positive", i)
		}
		if r.Discount.IsNegative() {
			return nil, apperr.Validationf("item %d: discount cannot be negative", i)
		}

		rl := resolvedLine{quantity: r.Quantity, discount: r.Discount, note: r.Note}

		if r.MenuItemID == uuid.Nil {
			if r.Name == "" {
				return nil, apperr.Validationf("item %d: ad-hoc lines need a name", i)
			}
			if r.UnitPrice.IsNegative() {
				return nil, apperr.Validationf("item %d: unit price cannot be negative", i)
			}
			rl.name = r.Name
			rl.unitPrice = r.UnitPrice
			out = append(out, rl)
			continue
		}

		snap := snaps[r.MenuItemID]
		rl.menuItemID = pgUUID(r.MenuItemID)
		rl.name = snap.Name
		rl.unitPrice = snap.BasePrice
		rl.recipe = snap.Recipe

		if r.VariantID != uuid.Nil || r.VariantName != "" {
			v, err := snap.ResolveVariant(r.VariantID, r.VariantName)
			if err != nil {
				return nil, err
			}
			rl.variantID = pgUUID(v.ID)
			rl.variantName = v.Name
			// The variant price replaces the base price.
			rl.unitPrice = v.Price
		}

		for _, mr := range r.Modifiers {
			m, err := snap.ResolveModifier(mr.ID, mr.Name)
			if err != nil {
				return nil, err
			}
			rl.modifiers = append(rl.modifiers, store.LineModifier{ID: m.ID, Name: m.Name, Price: m.Price})
		}

		out = append(out, rl)
	}
	return out, nil
}

func insertResolvedLines(ctx context.Context, st Store, orderID uuid.UUID, startPos int32, lines []resolvedLine) ([]store.OrderLine, error) {
	out := make([]store.OrderLine, 0, len(lines))
	for i, rl := range lines {
		line, err := st.InsertOrderLine(ctx, store.InsertOrderLineParams{
			OrderID:     orderID,
			Position:    startPos + int32(i),
			MenuItemID:  rl.menuItemID,
			Name:        rl.name,
			VariantID:   rl.variantID,
			VariantName: rl.variantName,
			Quantity:    rl.quantity,
			UnitPrice:   store.DecimalToNumeric(rl.unitPrice),
			Discount:    store.DecimalToNumeric(rl.discount),
			Note:        rl.note,
			Modifiers:   rl.modifiers,
		})
		if err != nil {
			return nil, fmt.Errorf("insert order line: %w", err)
		}
		out = append(out, line)
	}
	return out, nil
}

func pricingFromResolved(lines []resolvedLine) []pricing.Line {
	out := make([]pricing.Line, len(lines))
	for i, rl := range lines {
		prices := make([]decimal.Decimal, len(rl.modifiers))
		for j, m := range rl.modifiers {
			prices[j] = m.Price
		}
		out[i] = pricing.Line{
			UnitPrice:      rl.unitPrice,
			ModifierPrices: prices,
			Quantity:       rl.quantity,
			Discount:       rl.discount,
		}
	}
	return out
}

func consumptionFromResolved(lines []resolvedLine) []consumption.Line {
	var out []consumption.Line
	for _, rl := range lines {
		if len(rl.recipe) == 0 {
			continue
		}
		out = append(out, consumption.Line{Quantity: rl.quantity, Recipe: rl.recipe})
	}
	return out
}

// nextPosition returns one past the highest position in use, so appended
// lines keep the ordering stable even after moves left gaps.
func nextPosition(lines []store.OrderLine) int32 {
	var next int32
	for _, l := range lines {
		if l.Position >= next {
			next = l.Position + 1
		}
	}
	return next
}

func orderScalars(o store.Order) (tax, discount, service decimal.Decimal) {
	return store.NumericToDecimal(o.TaxTotal),
		store.NumericToDecimal(o.DiscountTotal),
		store.NumericToDecimal(o.ServiceCharge)
}

func totalsParams(orderID uuid.UUID, t pricing.Totals) store.UpdateOrderTotalsParams {
	return store.UpdateOrderTotalsParams{
		ID:            orderID,
		Subtotal:      store.DecimalToNumeric(t.Subtotal),
		TaxTotal:      store.DecimalToNumeric(t.TaxTotal),
		DiscountTotal: store.DecimalToNumeric(t.DiscountTotal),
		ServiceCharge: store.DecimalToNumeric(t.ServiceCharge),
		Total:         store.DecimalToNumeric(t.Total),
	}
}

func movementContext(order store.Order, actor uuid.UUID) inventory.MovementContext {
	return inventory.MovementContext{
		RestaurantID: order.RestaurantID,
		OutletID:     pgUUID(order.OutletID),
		Reference:    order.ID.String(),
		Note:         "order " + order.OrderNumber,
		PerformedBy:  actor,
	}
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
