package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storemate/terminal-backend/internal/cart"
	"github.com/storemate/terminal-backend/pkg/types"
)

// BuildRequest converts a session view into the upstream wire shape. The
// idempotency key is minted here, exactly once per logical checkout; queued
// replays reuse the stored request verbatim.
func BuildRequest(view *cart.SessionView, storeID, terminalID string, taxRate decimal.Decimal) types.CheckoutRequest {
	lines := make([]types.CheckoutLine, 0, len(view.Session.Lines))
	for _, line := range view.Session.Lines {
		wire := types.CheckoutLine{
			ProductID: line.ProductID,
			SKU:       line.SKU,
			Name:      line.Name,
			Kind:      line.Kind,
			IMEI:      line.IMEI,
			Qty:       line.Qty,
			UnitPrice: line.UnitPrice,
		}
		if line.Discount != nil {
			discount := *line.Discount
			wire.Discount = &discount
		}
		lines = append(lines, wire)
	}

	return types.CheckoutRequest{
		IdempotencyKey: uuid.NewString(),
		StoreID:        storeID,
		TerminalID:     terminalID,
		CustomerID:     view.Session.CustomerID,
		Lines:          lines,
		Payments:       view.Session.Payments,
		CouponCodes:    append([]string(nil), view.Session.CouponCodes...),
		DocType:        view.Session.DocType,
		Note:           view.Session.Note,
		Totals:         view.Totals,
		TaxRate:        taxRate,
	}
}
