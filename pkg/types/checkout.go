package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storemate/terminal-backend/pkg/enums"
)

// LineDiscount carries a raw discount value; interpretation depends on Type.
// Percent values are clamped to [0,100] and amounts to >= 0 at the API
// validation layer, not here.
type LineDiscount struct {
	Type  enums.DiscountType `json:"type"`
	Value decimal.Decimal    `json:"value"`
}

// CheckoutLine is the wire shape of one cart line inside a CheckoutRequest.
type CheckoutLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku,omitempty"`
	Name      string          `json:"name"`
	Kind      enums.LineKind  `json:"kind"`
	IMEI      string          `json:"imei,omitempty"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  *LineDiscount   `json:"discount,omitempty"`
}

// CheckoutRequest is what the terminal posts to the upstream sales API. The
// idempotency key is generated once when the request is built and preserved
// verbatim across offline replays, so a retried checkout can never double-sell.
type CheckoutRequest struct {
	IdempotencyKey string          `json:"idempotency_key"`
	StoreID        string          `json:"store_id"`
	TerminalID     string          `json:"terminal_id"`
	CustomerID     *uuid.UUID      `json:"customer_id,omitempty"`
	Lines          []CheckoutLine  `json:"lines"`
	Payments       PaymentInputs   `json:"payments"`
	CouponCodes    []string        `json:"coupon_codes,omitempty"`
	DocType        enums.DocType   `json:"doc_type"`
	Note           string          `json:"note,omitempty"`
	Totals         Totals          `json:"totals"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
}

// Receipt is the upstream's confirmation payload echoed back to the cashier.
type Receipt struct {
	SaleID     uuid.UUID `json:"sale_id"`
	DocNumber  string    `json:"doc_number"`
	IssuedAt   string    `json:"issued_at"`
	PrintLines []string  `json:"print_lines,omitempty"`
}
