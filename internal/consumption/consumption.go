// Package consumption expands menu recipes into per-stock-item quantities
// and computes signed deltas between two such maps. Item-affecting mutations
// always apply the delta against the previous committed state rather than
// re-applying absolute quantities, which keeps retries and replacements
// incremental.
package consumption

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dhaba-pos/api/internal/store"
)

// Line pairs a recipe with the ordered quantity. Ad-hoc lines carry an empty
// recipe and contribute nothing.
type Line struct {
	Quantity int32
	Recipe   []store.RecipeRule
}

// Map aggregates quantity consumed per stock item.
type Map map[uuid.UUID]decimal.Decimal

// Expand multiplies each recipe rule by the line quantity and accumulates
// across lines.
func Expand(lines []Line) Map {
	m := make(Map)
	for _, l := range lines {
		qty := decimal.NewFromInt32(l.Quantity)
		for _, r := range l.Recipe {
			m[r.StockItemID] = m[r.StockItemID].Add(r.Qty.Mul(qty))
		}
	}
	return m
}

// Delta returns new - old per stock item over the union of keys. Positive
// means consume more, negative means return to stock; zero entries are
// omitted.
func Delta(old, new Map) Map {
	d := make(Map)
	for k, nv := range new {
		diff := nv.Sub(old[k])
		if !diff.IsZero() {
			d[k] = diff
		}
	}
	for k, ov := range old {
		if _, ok := new[k]; !ok && !ov.IsZero() {
			d[k] = ov.Neg()
		}
	}
	return d
}
