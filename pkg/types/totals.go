package types

import "github.com/shopspring/decimal"

// Totals is the derived subtotal/discount/tax/grand tuple for a cart. It is
// always a projection recomputed from the line set, never stored as the
// source of truth.
type Totals struct {
	Sub   decimal.Decimal `json:"sub"`
	Disc  decimal.Decimal `json:"disc"`
	Tax   decimal.Decimal `json:"tax"`
	Grand decimal.Decimal `json:"grand"`
}

// ZeroTotals returns the all-zero projection used for empty carts.
func ZeroTotals() Totals {
	zero := decimal.Zero.Round(2)
	return Totals{Sub: zero, Disc: zero, Tax: zero, Grand: zero}
}

// Equal compares two projections field by field.
func (t Totals) Equal(other Totals) bool {
	return t.Sub.Equal(other.Sub) &&
		t.Disc.Equal(other.Disc) &&
		t.Tax.Equal(other.Tax) &&
		t.Grand.Equal(other.Grand)
}
