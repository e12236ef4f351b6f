package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	baserepo "github.com/storemate/terminal-backend/internal/repo"
	"github.com/storemate/terminal-backend/pkg/db/models"
	"github.com/storemate/terminal-backend/pkg/enums"
)

// Repository exposes persistence operations for terminal sessions.
type Repository struct {
	baserepo.Base
}

// NewRepository constructs a session repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: baserepo.NewBase(db)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) SessionRepository {
	if tx == nil {
		return r
	}
	return &Repository{Base: baserepo.NewBase(tx)}
}

// Create inserts a new TerminalSession.
func (r *Repository) Create(ctx context.Context, session *models.TerminalSession) (*models.TerminalSession, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.Status == "" {
		session.Status = enums.SessionStatusEmpty
	}
	if err := r.DB(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// Save persists the provided session row (lines excluded).
func (r *Repository) Save(ctx context.Context, session *models.TerminalSession) (*models.TerminalSession, error) {
	if err := r.DB(ctx).Omit("Lines").Save(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// FindByID loads a session with its lines in insertion order.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TerminalSession, error) {
	var session models.TerminalSession
	err := r.DB(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateStatus sets the lifecycle status of a session.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SessionStatus) error {
	return r.DB(ctx).
		Model(&models.TerminalSession{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// NextQuoteSeq advances the session's quote counter and returns the new
// value. The counter is strictly monotonic per session, so two quotes issued
// back to back can never collide the way wall-clock stamps can.
func (r *Repository) NextQuoteSeq(ctx context.Context, id uuid.UUID) (int64, error) {
	var seq int64
	err := r.DB(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.TerminalSession{}).
			Where("id = ?", id).
			Update("quote_seq", gorm.Expr("quote_seq + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.TerminalSession{}).
			Where("id = ?", id).
			Select("quote_seq").
			Scan(&seq).Error
	})
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// ApplyQuoteSeq records a pricing-sync sequence if and only if it is newer
// than the last applied one. Returns false when the sequence is stale.
func (r *Repository) ApplyQuoteSeq(ctx context.Context, id uuid.UUID, seq int64) (bool, error) {
	res := r.DB(ctx).
		Model(&models.TerminalSession{}).
		Where("id = ? AND applied_quote_seq < ?", id, seq).
		Update("applied_quote_seq", seq)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreateLine inserts one SessionLine.
func (r *Repository) CreateLine(ctx context.Context, line *models.SessionLine) (*models.SessionLine, error) {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(line).Error; err != nil {
		return nil, err
	}
	return line, nil
}

// SaveLine persists a mutated SessionLine.
func (r *Repository) SaveLine(ctx context.Context, line *models.SessionLine) (*models.SessionLine, error) {
	if err := r.DB(ctx).Save(line).Error; err != nil {
		return nil, err
	}
	return line, nil
}

// FindLine loads one line scoped to its session.
func (r *Repository) FindLine(ctx context.Context, sessionID, lineID uuid.UUID) (*models.SessionLine, error) {
	var line models.SessionLine
	err := r.DB(ctx).
		Where("id = ? AND session_id = ?", lineID, sessionID).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// FindMergeableLine returns the existing generic line for a product, if any.
// Serialized lines are never merge targets.
func (r *Repository) FindMergeableLine(ctx context.Context, sessionID, productID uuid.UUID) (*models.SessionLine, error) {
	var line models.SessionLine
	err := r.DB(ctx).
		Where("session_id = ? AND product_id = ? AND kind = ?", sessionID, productID, enums.LineKindGeneric).
		First(&line).Error
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// DeleteLine removes one line scoped to its session.
func (r *Repository) DeleteLine(ctx context.Context, sessionID, lineID uuid.UUID) error {
	return r.DB(ctx).
		Where("id = ? AND session_id = ?", lineID, sessionID).
		Delete(&models.SessionLine{}).Error
}

// DeleteLines removes every line belonging to a session.
func (r *Repository) DeleteLines(ctx context.Context, sessionID uuid.UUID) error {
	return r.DB(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.SessionLine{}).Error
}

// ReplaceLines atomically swaps the full line set of a session.
func (r *Repository) ReplaceLines(ctx context.Context, sessionID uuid.UUID, lines []models.SessionLine) error {
	tx := r.DB(ctx)
	if err := tx.Where("session_id = ?", sessionID).Delete(&models.SessionLine{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
		lines[i].SessionID = sessionID
	}
	return tx.Create(&lines).Error
}
