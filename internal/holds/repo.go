package holds

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	baserepo "github.com/storemate/terminal-backend/internal/repo"
	"github.com/storemate/terminal-backend/pkg/db/models"
)

// Repository persists parked transactions.
type Repository struct {
	baserepo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: baserepo.NewBase(db)}
}

func (r *Repository) Create(ctx context.Context, hold *models.HoldOrder) (*models.HoldOrder, error) {
	if hold.ID == uuid.Nil {
		hold.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(hold).Error; err != nil {
		return nil, err
	}
	return hold, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.HoldOrder, error) {
	var hold models.HoldOrder
	err := r.DB(ctx).
		Where("id = ?", id).
		First(&hold).Error
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

func (r *Repository) ListByStore(ctx context.Context, storeID string) ([]models.HoldOrder, error) {
	var rows []models.HoldOrder
	err := r.DB(ctx).
		Where("store_id = ?", storeID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).
		Where("id = ?", id).
		Delete(&models.HoldOrder{}).Error
}
