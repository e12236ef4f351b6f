package types

import (
	"github.com/shopspring/decimal"

	"github.com/storemate/terminal-backend/pkg/enums"
)

// PaymentInput is one tender entry collected during checkout. Entries are
// forwarded to the upstream sales API verbatim; the terminal only verifies
// coverage of the grand total.
type PaymentInput struct {
	Type      enums.PaymentType `json:"type"`
	Amount    decimal.Decimal   `json:"amount"`
	Ref       string            `json:"ref,omitempty"`
	TipAmount decimal.Decimal   `json:"tip_amount,omitempty"`
}

// PaymentInputs is stored as a JSON column on the session row.
type PaymentInputs []PaymentInput

// Total sums payment amounts excluding tips.
func (p PaymentInputs) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, entry := range p {
		sum = sum.Add(entry.Amount)
	}
	return sum
}
