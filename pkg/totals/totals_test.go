package totals

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/storemate/terminal-backend/pkg/enums"
	"github.com/storemate/terminal-backend/pkg/types"
)

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func assertTotals(t *testing.T, got types.Totals, sub, disc, tax, grand string) {
	t.Helper()
	if !got.Sub.Equal(dec(sub)) {
		t.Fatalf("sub: expected %s, got %s", sub, got.Sub)
	}
	if !got.Disc.Equal(dec(disc)) {
		t.Fatalf("disc: expected %s, got %s", disc, got.Disc)
	}
	if !got.Tax.Equal(dec(tax)) {
		t.Fatalf("tax: expected %s, got %s", tax, got.Tax)
	}
	if !got.Grand.Equal(dec(grand)) {
		t.Fatalf("grand: expected %s, got %s", grand, got.Grand)
	}
}

func TestComputeEmptyCart(t *testing.T) {
	t.Parallel()

	got := Compute(nil, dec("0.15"))
	assertTotals(t, got, "0", "0", "0", "0")
}

func TestComputePercentDiscount(t *testing.T) {
	t.Parallel()

	lines := []Line{
		{Qty: 2, UnitPrice: dec("100"), Discount: &types.LineDiscount{Type: enums.DiscountTypePercent, Value: dec("10")}},
	}

	got := Compute(lines, dec("0.15"))
	assertTotals(t, got, "200", "20", "27", "207")
}

func TestComputeAmountDiscountPerUnit(t *testing.T) {
	t.Parallel()

	lines := []Line{
		{Qty: 3, UnitPrice: dec("50"), Discount: &types.LineDiscount{Type: enums.DiscountTypeAmount, Value: dec("5")}},
	}

	// amount discounts apply per unit: 3 * 5 = 15 off 150
	got := Compute(lines, dec("0.10"))
	assertTotals(t, got, "150", "15", "13.5", "148.5")
}

func TestComputeMixedLines(t *testing.T) {
	t.Parallel()

	lines := []Line{
		{Qty: 1, UnitPrice: dec("999.99")},
		{Qty: 2, UnitPrice: dec("25"), Discount: &types.LineDiscount{Type: enums.DiscountTypePercent, Value: dec("50")}},
	}

	got := Compute(lines, dec("0.15"))
	// sub 1049.99, disc 25, base 1024.99, tax 153.75 (153.7485 rounded)
	assertTotals(t, got, "1049.99", "25", "153.75", "1178.74")
}

func TestComputeOverDiscountedBaseClampsAtZero(t *testing.T) {
	t.Parallel()

	lines := []Line{
		{Qty: 1, UnitPrice: dec("10"), Discount: &types.LineDiscount{Type: enums.DiscountTypeAmount, Value: dec("25")}},
	}

	got := Compute(lines, dec("0.15"))
	assertTotals(t, got, "10", "25", "0", "0")
}

func TestComputeZeroTaxRate(t *testing.T) {
	t.Parallel()

	lines := []Line{
		{Qty: 4, UnitPrice: dec("12.25")},
	}

	got := Compute(lines, decimal.Zero)
	assertTotals(t, got, "49", "0", "0", "49")
}

func TestComputeRoundsTaxHalfAwayFromZero(t *testing.T) {
	t.Parallel()

	lines := []Line{
		{Qty: 1, UnitPrice: dec("0.10")},
	}

	// 0.10 * 0.05 = 0.005 rounds to 0.01
	got := Compute(lines, dec("0.05"))
	assertTotals(t, got, "0.1", "0", "0.01", "0.11")
}
