package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/storemate/terminal-backend/pkg/enums"
	"github.com/storemate/terminal-backend/pkg/types"
)

// TerminalSession is the single active transaction owned by one terminal.
// Totals are never stored here; they are recomputed from Lines on read.
type TerminalSession struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	StoreID         string              `gorm:"column:store_id;not null"`
	TerminalID      string              `gorm:"column:terminal_id;not null"`
	CustomerID      *uuid.UUID          `gorm:"column:customer_id;type:uuid"`
	Status          enums.SessionStatus `gorm:"column:status;not null;default:'empty'"`
	DocType         enums.DocType       `gorm:"column:doc_type;not null;default:'receipt'"`
	Note            string              `gorm:"column:note"`
	Payments        types.PaymentInputs `gorm:"column:payments;serializer:json"`
	CouponCodes     []string            `gorm:"column:coupon_codes;serializer:json"`
	QuoteSeq        int64               `gorm:"column:quote_seq;not null;default:0"`
	AppliedQuoteSeq int64               `gorm:"column:applied_quote_seq;not null;default:0"`
	Lines           []SessionLine       `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (TerminalSession) TableName() string {
	return "terminal_sessions"
}
