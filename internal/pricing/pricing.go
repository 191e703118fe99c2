// Package pricing computes order totals. Pure and deterministic: no I/O, and
// stored totals are never trusted. Every mutation that touches the line set
// re-prices from scratch.
package pricing

import "github.com/shopspring/decimal"

// Line is a resolved order line as the pricer sees it. UnitPrice and
// ModifierPrices come from the catalog snapshot (or the caller, for ad-hoc
// lines); Discount is a per-line absolute amount.
type Line struct {
	UnitPrice      decimal.Decimal
	ModifierPrices []decimal.Decimal
	Quantity       int32
	Discount       decimal.Decimal
}

// Totals is the authoritative money breakdown of an order.
type Totals struct {
	Subtotal      decimal.Decimal
	TaxTotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	ServiceCharge decimal.Decimal
	Total         decimal.Decimal
}

// LineTotal is (unitPrice + sum(modifierPrices)) * quantity - discount.
func LineTotal(l Line) decimal.Decimal {
	unit := l.UnitPrice
	for _, p := range l.ModifierPrices {
		unit = unit.Add(p)
	}
	return unit.Mul(decimal.NewFromInt32(l.Quantity)).Sub(l.Discount)
}

// Price computes the full totals. Tax, order-level discount and service
// charge are caller-supplied scalars; deriving them is a business rule that
// lives outside the engine.
func Price(lines []Line, taxTotal, discountTotal, serviceCharge decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(LineTotal(l))
	}
	return Totals{
		Subtotal:      subtotal,
		TaxTotal:      taxTotal,
		DiscountTotal: discountTotal,
		ServiceCharge: serviceCharge,
		Total:         subtotal.Add(taxTotal).Add(serviceCharge).Sub(discountTotal),
	}
}
