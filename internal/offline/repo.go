package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	baserepo "github.com/storemate/terminal-backend/internal/repo"
	"github.com/storemate/terminal-backend/pkg/db"
	"github.com/storemate/terminal-backend/pkg/db/models"
	"github.com/storemate/terminal-backend/pkg/types"
	"github.com/storemate/terminal-backend/pkg/upstream"
)

// enqueueRetries bounds how many millisecond ticks we will probe for a free
// slot when two sales land on the same timestamp.
const enqueueRetries = 16

// Repository persists sales that could not reach the upstream at checkout
// time. Rows are keyed by the enqueue timestamp so replay preserves the
// order the cashier rang the sales up.
type Repository struct {
	baserepo.Base
}

func NewRepository(database *gorm.DB) *Repository {
	return &Repository{Base: baserepo.NewBase(database)}
}

// Enqueue stores the fully built checkout request and returns the timestamp
// key assigned to it. The audit reason travelling with the request context is
// persisted alongside the dto so a later replay can resend it.
func (r *Repository) Enqueue(ctx context.Context, sessionID uuid.UUID, dto types.CheckoutRequest) (int64, error) {
	raw, err := json.Marshal(dto)
	if err != nil {
		return 0, fmt.Errorf("encode queued sale: %w", err)
	}

	reason := upstream.ReasonFromContext(ctx)
	ts := time.Now().UnixMilli()
	for attempt := 0; attempt < enqueueRetries; attempt++ {
		row := models.OfflineSale{
			TS:        ts,
			SessionID: sessionID.String(),
			Dto:       raw,
			Reason:    reason,
		}
		err := r.DB(ctx).Create(&row).Error
		if err == nil {
			return ts, nil
		}
		if !db.IsUniqueViolation(err, "") {
			return 0, err
		}
		// same-millisecond collision, claim the next slot
		ts++
	}
	return 0, fmt.Errorf("no free queue slot near ts %d", ts)
}

// ListAll returns every queued sale in enqueue order.
func (r *Repository) ListAll(ctx context.Context) ([]models.OfflineSale, error) {
	var rows []models.OfflineSale
	err := r.DB(ctx).
		Order("ts ASC").
		Find(&rows).Error
	return rows, err
}

// Remove deletes a replayed sale from the queue.
func (r *Repository) Remove(ctx context.Context, ts int64) error {
	return r.DB(ctx).
		Where("ts = ?", ts).
		Delete(&models.OfflineSale{}).Error
}

// MarkFailed records a replay failure without removing the row.
func (r *Repository) MarkFailed(ctx context.Context, ts int64, cause error) error {
	return r.DB(ctx).Model(&models.OfflineSale{}).
		Where("ts = ?", ts).
		Updates(map[string]any{
			"last_error":    cause.Error(),
			"attempt_count": gorm.Expr("attempt_count + 1"),
		}).Error
}

// Purge drops the whole queue. Supervisor action for sales that will never
// replay cleanly.
func (r *Repository) Purge(ctx context.Context) (int64, error) {
	result := r.DB(ctx).
		Where("ts > 0").
		Delete(&models.OfflineSale{})
	return result.RowsAffected, result.Error
}

// Count reports the queue depth.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.OfflineSale{}).
		Count(&count).Error
	return count, err
}
