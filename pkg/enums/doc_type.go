package enums

import "fmt"

// DocType selects the fiscal document issued for a completed sale.
type DocType string

const (
	DocTypeReceipt    DocType = "receipt"
	DocTypeInvoice    DocType = "invoice"
	DocTypeCreditNote DocType = "credit_note"
)

var validDocTypes = []DocType{
	DocTypeReceipt,
	DocTypeInvoice,
	DocTypeCreditNote,
}

// String implements fmt.Stringer.
func (d DocType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DocType.
func (d DocType) IsValid() bool {
	for _, candidate := range validDocTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDocType converts raw input into a DocType.
func ParseDocType(value string) (DocType, error) {
	for _, candidate := range validDocTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid doc type %q", value)
}
