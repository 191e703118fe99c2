package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dhaba-pos/api/internal/pricing"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestLineTotal_Basic(t *testing.T) {
	got := pricing.LineTotal(pricing.Line{
		UnitPrice: dec("250"),
		Quantity:  2,
	})
	if !got.Equal(dec("500")) {
		t.Errorf("line total: got %s, want 500", got)
	}
}

func TestLineTotal_ModifiersMultiplyWithQuantity(t *testing.T) {
	got := pricing.LineTotal(pricing.Line{
		UnitPrice:      dec("100"),
		ModifierPrices: []decimal.Decimal{dec("25"), dec("15")},
		Quantity:       3,
	})
	// (100 + 25 + 15) * 3 = 420
	if !got.Equal(dec("420")) {
		t.Errorf("line total: got %s, want 420", got)
	}
}

func TestLineTotal_DiscountIsAbsolute(t *testing.T) {
	got := pricing.LineTotal(pricing.Line{
		UnitPrice: dec("80"),
		Quantity:  2,
		Discount:  dec("30"),
	})
	if !got.Equal(dec("130")) {
		t.Errorf("line total: got %s, want 130", got)
	}
}

func TestPrice_TotalsBreakdown(t *testing.T) {
	lines := []pricing.Line{
		{UnitPrice: dec("250"), Quantity: 2},
		{UnitPrice: dec("30"), Quantity: 1},
	}
	got := pricing.Price(lines, dec("26.50"), dec("50"), dec("53"))

	if !got.Subtotal.Equal(dec("530")) {
		t.Errorf("subtotal: got %s, want 530", got.Subtotal)
	}
	if !got.TaxTotal.Equal(dec("26.50")) {
		t.Errorf("tax_total: got %s, want 26.50", got.TaxTotal)
	}
	if !got.DiscountTotal.Equal(dec("50")) {
		t.Errorf("discount_total: got %s, want 50", got.DiscountTotal)
	}
	if !got.ServiceCharge.Equal(dec("53")) {
		t.Errorf("service_charge: got %s, want 53", got.ServiceCharge)
	}
	// 530 + 26.50 + 53 - 50
	if !got.Total.Equal(dec("559.50")) {
		t.Errorf("total: got %s, want 559.50", got.Total)
	}
}

func TestPrice_TotalIdentityHolds(t *testing.T) {
	cases := []struct {
		name                   string
		lines                  []pricing.Line
		tax, discount, service string
	}{
		{"no scalars", []pricing.Line{{UnitPrice: dec("140"), Quantity: 1}}, "0", "0", "0"},
		{"all scalars", []pricing.Line{{UnitPrice: dec("220"), Quantity: 4, Discount: dec("20")}}, "43.80", "100", "87.60"},
		{"empty lines", nil, "0", "0", "0"},
		{"discount exceeds subtotal", []pricing.Line{{UnitPrice: dec("20"), Quantity: 1}}, "0", "100", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pricing.Price(tc.lines, dec(tc.tax), dec(tc.discount), dec(tc.service))
			want := got.Subtotal.Add(got.TaxTotal).Add(got.ServiceCharge).Sub(got.DiscountTotal)
			if !got.Total.Equal(want) {
				t.Errorf("total identity: got %s, want %s", got.Total, want)
			}
		})
	}
}

func TestPrice_EmptyLineSet(t *testing.T) {
	got := pricing.Price(nil, decimal.Zero, decimal.Zero, decimal.Zero)
	if !got.Subtotal.IsZero() || !got.Total.IsZero() {
		t.Errorf("empty line set: subtotal %s total %s, want both zero", got.Subtotal, got.Total)
	}
}
