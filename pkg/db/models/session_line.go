package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storemate/terminal-backend/pkg/enums"
	"github.com/storemate/terminal-backend/pkg/types"
)

// SessionLine is one cart entry. Retained lines always carry Qty >= 1; a
// mutation that would drop Qty to zero deletes the row instead.
type SessionLine struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SessionID uuid.UUID           `gorm:"column:session_id;type:uuid;not null;index"`
	ProductID uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	SKU       string              `gorm:"column:sku"`
	Name      string              `gorm:"column:name;not null"`
	Kind      enums.LineKind      `gorm:"column:kind;not null;default:'generic'"`
	IMEI      string              `gorm:"column:imei"`
	Qty       int                 `gorm:"column:qty;not null"`
	UnitPrice decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Discount  *types.LineDiscount `gorm:"column:discount;serializer:json"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the GORM default.
func (SessionLine) TableName() string {
	return "session_lines"
}
