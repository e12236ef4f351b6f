package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storemate/terminal-backend/pkg/db/models"
	"github.com/storemate/terminal-backend/pkg/enums"
)

// SessionRepository abstracts session persistence for services and tests.
type SessionRepository interface {
	WithTx(tx *gorm.DB) SessionRepository
	Create(ctx context.Context, session *models.TerminalSession) (*models.TerminalSession, error)
	Save(ctx context.Context, session *models.TerminalSession) (*models.TerminalSession, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.TerminalSession, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.SessionStatus) error
	ApplyQuoteSeq(ctx context.Context, id uuid.UUID, seq int64) (bool, error)
	CreateLine(ctx context.Context, line *models.SessionLine) (*models.SessionLine, error)
	SaveLine(ctx context.Context, line *models.SessionLine) (*models.SessionLine, error)
	FindLine(ctx context.Context, sessionID, lineID uuid.UUID) (*models.SessionLine, error)
	FindMergeableLine(ctx context.Context, sessionID, productID uuid.UUID) (*models.SessionLine, error)
	DeleteLine(ctx context.Context, sessionID, lineID uuid.UUID) error
	DeleteLines(ctx context.Context, sessionID uuid.UUID) error
	ReplaceLines(ctx context.Context, sessionID uuid.UUID, lines []models.SessionLine) error
}
