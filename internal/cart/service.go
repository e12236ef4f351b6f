package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storemate/terminal-backend/pkg/db/models"
	"github.com/storemate/terminal-backend/pkg/enums"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/totals"
	"github.com/storemate/terminal-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the mutable in-memory-of-record cart for active transactions.
type Service interface {
	Open(ctx context.Context) (*SessionView, error)
	Get(ctx context.Context, sessionID uuid.UUID) (*SessionView, error)
	AddLine(ctx context.Context, sessionID uuid.UUID, input AddLineInput) (*SessionView, error)
	UpdateLine(ctx context.Context, sessionID, lineID uuid.UUID, input UpdateLineInput) (*SessionView, error)
	RemoveLine(ctx context.Context, sessionID, lineID uuid.UUID) (*SessionView, error)
	ClearCart(ctx context.Context, sessionID uuid.UUID) (*SessionView, error)
	UpdateDetails(ctx context.Context, sessionID uuid.UUID, input DetailsInput) (*SessionView, error)
	SetPayments(ctx context.Context, sessionID uuid.UUID, payments types.PaymentInputs) (*SessionView, error)
	Reset(ctx context.Context, sessionID uuid.UUID, status enums.SessionStatus) error
	SetStatus(ctx context.Context, sessionID uuid.UUID, status enums.SessionStatus) error
	Restore(ctx context.Context, sessionID uuid.UUID, snapshot Snapshot) (*SessionView, error)
}

type service struct {
	repo       SessionRepository
	tx         txRunner
	storeID    string
	terminalID string
	taxRate    decimal.Decimal
}

// ServiceParams configure the cart service.
type ServiceParams struct {
	Repo       SessionRepository
	Tx         txRunner
	StoreID    string
	TerminalID string
	TaxRate    float64
}

// NewService builds the session service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.StoreID == "" {
		return nil, fmt.Errorf("store id required")
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		storeID:    params.StoreID,
		terminalID: params.TerminalID,
		taxRate:    decimal.NewFromFloat(params.TaxRate),
	}, nil
}

// SessionView pairs the persisted session with its derived totals.
type SessionView struct {
	Session *models.TerminalSession
	Totals  types.Totals
}

// AddLineInput captures the product data needed to add a cart line.
type AddLineInput struct {
	ProductID uuid.UUID
	SKU       string
	Name      string
	IMEI      string
	Qty       int
	UnitPrice decimal.Decimal
}

// UpdateLineInput mutates one line; nil fields are left untouched.
type UpdateLineInput struct {
	Qty           *int
	Discount      *types.LineDiscount
	ClearDiscount bool
	PriceOverride *decimal.Decimal
}

// DetailsInput updates the transaction metadata.
type DetailsInput struct {
	CustomerID    *uuid.UUID
	ClearCustomer bool
	DocType       *enums.DocType
	Note          *string
	CouponCodes   []string
}

// Snapshot is the portable image of a session used by hold/resume.
type Snapshot struct {
	CustomerID  *uuid.UUID           `json:"customer_id,omitempty"`
	DocType     enums.DocType        `json:"doc_type"`
	Note        string               `json:"note,omitempty"`
	Payments    types.PaymentInputs  `json:"payments,omitempty"`
	CouponCodes []string             `json:"coupon_codes,omitempty"`
	Lines       []models.SessionLine `json:"lines"`
	Totals      types.Totals         `json:"totals"`
}

func (s *service) Open(ctx context.Context) (*SessionView, error) {
	session, err := s.repo.Create(ctx, &models.TerminalSession{
		StoreID:    s.storeID,
		TerminalID: s.terminalID,
		DocType:    enums.DocTypeReceipt,
		Status:     enums.SessionStatusEmpty,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}
	return s.view(session), nil
}

func (s *service) Get(ctx context.Context, sessionID uuid.UUID) (*SessionView, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(session), nil
}

func (s *service) AddLine(ctx context.Context, sessionID uuid.UUID, input AddLineInput) (*SessionView, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	session, err := s.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		kind := enums.LineKindGeneric
		if input.IMEI != "" {
			kind = enums.LineKindSerialized
		}

		switch kind {
		case enums.LineKindGeneric:
			existing, findErr := repo.FindMergeableLine(ctx, session.ID, input.ProductID)
			if findErr == nil {
				existing.Qty += input.Qty
				_, saveErr := repo.SaveLine(ctx, existing)
				return saveErr
			}
			if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				return findErr
			}
		case enums.LineKindSerialized:
			// serialized units never merge
		}

		_, createErr := repo.CreateLine(ctx, &models.SessionLine{
			SessionID: session.ID,
			ProductID: input.ProductID,
			SKU:       input.SKU,
			Name:      input.Name,
			Kind:      kind,
			IMEI:      input.IMEI,
			Qty:       input.Qty,
			UnitPrice: input.UnitPrice,
		})
		if createErr != nil {
			return createErr
		}
		return repo.UpdateStatus(ctx, session.ID, enums.SessionStatusBuilding)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add line")
	}

	return s.Get(ctx, sessionID)
}

func (s *service) UpdateLine(ctx context.Context, sessionID, lineID uuid.UUID, input UpdateLineInput) (*SessionView, error) {
	session, err := s.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	line, err := s.repo.FindLine(ctx, session.ID, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load line")
	}

	if input.Qty != nil {
		// qty dropping to zero removes the line rather than keeping a dead row
		if *input.Qty <= 0 {
			return s.RemoveLine(ctx, sessionID, lineID)
		}
		line.Qty = *input.Qty
	}

	if input.ClearDiscount {
		line.Discount = nil
	} else if input.Discount != nil {
		if !input.Discount.Type.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount type")
		}
		if input.Discount.Value.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount value cannot be negative")
		}
		discount := *input.Discount
		line.Discount = &discount
	}

	if input.PriceOverride != nil {
		if input.PriceOverride.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price override cannot be negative")
		}
		line.UnitPrice = *input.PriceOverride
	}

	if _, err := s.repo.SaveLine(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save line")
	}

	return s.Get(ctx, sessionID)
}

func (s *service) RemoveLine(ctx context.Context, sessionID, lineID uuid.UUID) (*SessionView, error) {
	session, err := s.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteLine(ctx, session.ID, lineID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove line")
	}
	return s.Get(ctx, sessionID)
}

func (s *service) ClearCart(ctx context.Context, sessionID uuid.UUID) (*SessionView, error) {
	session, err := s.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteLines(ctx, session.ID); err != nil {
			return err
		}
		return repo.UpdateStatus(ctx, session.ID, enums.SessionStatusEmpty)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return s.Get(ctx, sessionID)
}

func (s *service) UpdateDetails(ctx context.Context, sessionID uuid.UUID, input DetailsInput) (*SessionView, error) {
	session, err := s.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if input.ClearCustomer {
		session.CustomerID = nil
	} else if input.CustomerID != nil {
		session.CustomerID = input.CustomerID
	}
	if input.DocType != nil {
		if !input.DocType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid doc type")
		}
		session.DocType = *input.DocType
	}
	if input.Note != nil {
		session.Note = *input.Note
	}
	if input.CouponCodes != nil {
		session.CouponCodes = input.CouponCodes
	}

	if _, err := s.repo.Save(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session")
	}
	return s.Get(ctx, sessionID)
}

func (s *service) SetPayments(ctx context.Context, sessionID uuid.UUID, payments types.PaymentInputs) (*SessionView, error) {
	session, err := s.loadMutable(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, payment := range payments {
		if !payment.Type.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment type")
		}
		if payment.Amount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount cannot be negative")
		}
	}
	session.Payments = payments
	if _, err := s.repo.Save(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save payments")
	}
	return s.Get(ctx, sessionID)
}

// SetStatus moves the session through its lifecycle without touching contents.
func (s *service) SetStatus(ctx context.Context, sessionID uuid.UUID, status enums.SessionStatus) error {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, session.ID, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update status")
	}
	return nil
}

// Reset clears the transaction so the terminal can start the next one. Used
// after a completed checkout and when a transaction is parked on hold.
func (s *service) Reset(ctx context.Context, sessionID uuid.UUID, status enums.SessionStatus) error {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteLines(ctx, session.ID); err != nil {
			return err
		}
		session.CustomerID = nil
		session.Note = ""
		session.Payments = nil
		session.CouponCodes = nil
		session.DocType = enums.DocTypeReceipt
		session.Status = status
		_, saveErr := repo.Save(ctx, session)
		return saveErr
	})
}

// Restore replaces the session contents with a held snapshot.
func (s *service) Restore(ctx context.Context, sessionID uuid.UUID, snapshot Snapshot) (*SessionView, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		lines := make([]models.SessionLine, len(snapshot.Lines))
		copy(lines, snapshot.Lines)
		for i := range lines {
			lines[i].ID = uuid.Nil // fresh ids, stale ones may collide
		}
		if err := repo.ReplaceLines(ctx, session.ID, lines); err != nil {
			return err
		}
		session.CustomerID = snapshot.CustomerID
		session.DocType = snapshot.DocType
		session.Note = snapshot.Note
		session.Payments = snapshot.Payments
		session.CouponCodes = snapshot.CouponCodes
		session.Status = enums.SessionStatusBuilding
		_, saveErr := repo.Save(ctx, session)
		return saveErr
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore session")
	}
	return s.Get(ctx, sessionID)
}

// SnapshotOf captures the portable image of the loaded session.
func SnapshotOf(view *SessionView) Snapshot {
	snapshot := Snapshot{
		CustomerID:  view.Session.CustomerID,
		DocType:     view.Session.DocType,
		Note:        view.Session.Note,
		Payments:    view.Session.Payments,
		CouponCodes: view.Session.CouponCodes,
		Lines:       view.Session.Lines,
		Totals:      view.Totals,
	}
	return snapshot
}

func (s *service) load(ctx context.Context, sessionID uuid.UUID) (*models.TerminalSession, error) {
	if sessionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	return session, nil
}

func (s *service) loadMutable(ctx context.Context, sessionID uuid.UUID) (*models.TerminalSession, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == enums.SessionStatusCheckingOut {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "session is checking out")
	}
	return session, nil
}

func (s *service) view(session *models.TerminalSession) *SessionView {
	return &SessionView{
		Session: session,
		Totals:  totals.Compute(EngineLines(session.Lines), s.taxRate),
	}
}

// EngineLines maps persisted lines into the totals engine's input shape.
func EngineLines(lines []models.SessionLine) []totals.Line {
	out := make([]totals.Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, totals.Line{
			Qty:       line.Qty,
			UnitPrice: line.UnitPrice,
			Discount:  line.Discount,
		})
	}
	return out
}
