// Package totals computes the derived money projection for a cart. It is
// pure: no I/O, no hidden state, identical inputs always produce identical
// output, so callers can recompute on every mutation.
package totals

import (
	"github.com/shopspring/decimal"

	"github.com/storemate/terminal-backend/pkg/enums"
	"github.com/storemate/terminal-backend/pkg/types"
)

var oneHundred = decimal.NewFromInt(100)

// Line is the minimal slice of a cart line the engine needs.
type Line struct {
	Qty       int
	UnitPrice decimal.Decimal
	Discount  *types.LineDiscount
}

// Compute derives subtotal, discount, tax, and grand total from the line set.
//
// Each published field is rounded to 2 places independently per step, not
// compounded. The taxable base never goes negative: an over-discounted cart
// bottoms out at zero. Percent discount values are applied as given; clamping
// to [0,100] is the caller's responsibility.
func Compute(lines []Line, taxRate decimal.Decimal) types.Totals {
	if len(lines) == 0 {
		return types.ZeroTotals()
	}

	sub := decimal.Zero
	disc := decimal.Zero

	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Qty))
		lineTotal := qty.Mul(line.UnitPrice)
		sub = sub.Add(lineTotal)

		if line.Discount == nil {
			continue
		}
		switch line.Discount.Type {
		case enums.DiscountTypePercent:
			disc = disc.Add(lineTotal.Mul(line.Discount.Value).Div(oneHundred))
		case enums.DiscountTypeAmount:
			disc = disc.Add(line.Discount.Value.Mul(qty))
		}
	}

	base := sub.Sub(disc)
	if base.IsNegative() {
		base = decimal.Zero
	}

	tax := base.Mul(taxRate).Round(2)
	grand := base.Add(tax).Round(2)

	return types.Totals{
		Sub:   sub.Round(2),
		Disc:  disc.Round(2),
		Tax:   tax,
		Grand: grand,
	}
}
