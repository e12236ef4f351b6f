package holds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storemate/terminal-backend/internal/cart"
	"github.com/storemate/terminal-backend/pkg/db/models"
	"github.com/storemate/terminal-backend/pkg/enums"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/logger"
	"github.com/storemate/terminal-backend/pkg/types"
)

type holdRepository interface {
	Create(ctx context.Context, hold *models.HoldOrder) (*models.HoldOrder, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.HoldOrder, error)
	ListByStore(ctx context.Context, storeID string) ([]models.HoldOrder, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service parks and resumes in-flight transactions so the cashier can serve
// another customer mid-sale.
type Service interface {
	Hold(ctx context.Context, sessionID uuid.UUID, label string) (*HoldView, error)
	Resume(ctx context.Context, holdID, sessionID uuid.UUID) (*cart.SessionView, error)
	List(ctx context.Context) ([]HoldView, error)
	Delete(ctx context.Context, holdID uuid.UUID) error
}

// HoldView is the API shape of one parked transaction.
type HoldView struct {
	ID        uuid.UUID    `json:"id"`
	Label     string       `json:"label"`
	LineCount int          `json:"line_count"`
	Totals    types.Totals `json:"totals"`
	CreatedAt time.Time    `json:"created_at"`
}

type service struct {
	repo    holdRepository
	cart    cart.Service
	logg    *logger.Logger
	storeID string
}

// ServiceParams configure the hold service.
type ServiceParams struct {
	Repo    holdRepository
	Cart    cart.Service
	Logger  *logger.Logger
	StoreID string
}

// NewService builds the hold service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("hold repository required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.StoreID == "" {
		return nil, fmt.Errorf("store id required")
	}
	return &service{
		repo:    params.Repo,
		cart:    params.Cart,
		logg:    params.Logger,
		storeID: params.StoreID,
	}, nil
}

// Hold snapshots the session, stores it, and clears the terminal so the
// next customer can be served. The session parks in the held state until
// the next scan starts a new transaction.
func (s *service) Hold(ctx context.Context, sessionID uuid.UUID, label string) (*HoldView, error) {
	view, err := s.cart.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(view.Session.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot hold an empty cart")
	}
	if view.Session.Status == enums.SessionStatusCheckingOut {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout in progress")
	}

	snapshot := cart.SnapshotOf(view)
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode hold snapshot")
	}

	hold, err := s.repo.Create(ctx, &models.HoldOrder{
		StoreID:  s.storeID,
		Label:    label,
		Snapshot: raw,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create hold")
	}

	if err := s.cart.Reset(ctx, sessionID, enums.SessionStatusHeld); err != nil {
		// the hold row exists; a reset failure leaves the cart dirty but
		// nothing is lost
		s.logg.Error(ctx, "hold.reset_failed", err)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"hold_id":    hold.ID.String(),
		"session_id": sessionID.String(),
	}), "hold.created")

	return viewOf(hold, snapshot), nil
}

// Resume restores a parked transaction into an empty session and removes
// the hold. Resuming over a cart that already has lines is refused so a
// half-rung sale cannot be silently discarded.
func (s *service) Resume(ctx context.Context, holdID, sessionID uuid.UUID) (*cart.SessionView, error) {
	hold, err := s.repo.FindByID(ctx, holdID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "hold not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load hold")
	}

	current, err := s.cart.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(current.Session.Lines) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart must be empty before resuming a hold")
	}

	var snapshot cart.Snapshot
	if err := json.Unmarshal(hold.Snapshot, &snapshot); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode hold snapshot")
	}

	view, err := s.cart.Restore(ctx, sessionID, snapshot)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Delete(ctx, holdID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete hold")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"hold_id":    holdID.String(),
		"session_id": sessionID.String(),
	}), "hold.resumed")

	return view, nil
}

// List returns every parked transaction for this store.
func (s *service) List(ctx context.Context) ([]HoldView, error) {
	rows, err := s.repo.ListByStore(ctx, s.storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list holds")
	}
	out := make([]HoldView, 0, len(rows))
	for i := range rows {
		var snapshot cart.Snapshot
		if err := json.Unmarshal(rows[i].Snapshot, &snapshot); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "hold_id", rows[i].ID.String()), "hold.decode_failed", err)
			continue
		}
		out = append(out, *viewOf(&rows[i], snapshot))
	}
	return out, nil
}

// Delete discards a parked transaction without resuming it.
func (s *service) Delete(ctx context.Context, holdID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, holdID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "hold not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load hold")
	}
	if err := s.repo.Delete(ctx, holdID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete hold")
	}
	return nil
}

func viewOf(hold *models.HoldOrder, snapshot cart.Snapshot) *HoldView {
	return &HoldView{
		ID:        hold.ID,
		Label:     hold.Label,
		LineCount: len(snapshot.Lines),
		Totals:    snapshot.Totals,
		CreatedAt: hold.CreatedAt,
	}
}
