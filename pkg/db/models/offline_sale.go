package models

import (
	"encoding/json"
	"time"
)

// OfflineSale is one queued checkout attempt that failed to reach the
// upstream. TS (epoch millis) is the caller-visible unique key, matching the
// replay and purge surfaces; rows are append-only until replayed or purged.
type OfflineSale struct {
	TS           int64           `gorm:"column:ts;primaryKey;autoIncrement:false"`
	SessionID    string          `gorm:"column:session_id;not null"`
	Dto          json.RawMessage `gorm:"column:dto;serializer:json;not null"`
	Reason       string          `gorm:"column:reason;not null;default:''"`
	AttemptCount int             `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string         `gorm:"column:last_error"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the GORM default.
func (OfflineSale) TableName() string {
	return "offline_sales"
}
