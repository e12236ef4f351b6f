package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// HoldOrder is a suspended transaction ("venta en espera"): the full session
// snapshot parked under its own id until the cashier resumes or deletes it.
// Holds never expire on their own.
type HoldOrder struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StoreID   string          `gorm:"column:store_id;not null;index"`
	Label     string          `gorm:"column:label"`
	Snapshot  json.RawMessage `gorm:"column:snapshot;serializer:json;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the GORM default.
func (HoldOrder) TableName() string {
	return "hold_orders"
}
