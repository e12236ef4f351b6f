package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storemate/terminal-backend/internal/cart"
	"github.com/storemate/terminal-backend/pkg/enums"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/logger"
	"github.com/storemate/terminal-backend/pkg/metrics"
	"github.com/storemate/terminal-backend/pkg/types"
	"github.com/storemate/terminal-backend/pkg/upstream"
)

const (
	OutcomeCompleted     = "completed"
	OutcomeQueuedOffline = "queued_offline"
)

type saleCreator interface {
	CreateSale(ctx context.Context, req types.CheckoutRequest) (*types.Receipt, error)
}

type queueAppender interface {
	Enqueue(ctx context.Context, sessionID uuid.UUID, dto types.CheckoutRequest) (int64, error)
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, sessionID uuid.UUID) (*Result, error)
}

// Result reports what happened to a checkout attempt. A queued-offline
// outcome is not an error: the cashier keeps working and the queue replays
// the sale later.
type Result struct {
	Outcome  string         `json:"outcome"`
	Receipt  *types.Receipt `json:"receipt,omitempty"`
	QueuedTS *int64         `json:"queued_ts,omitempty"`
	Totals   types.Totals   `json:"totals"`
}

type service struct {
	cart       cart.Service
	upstream   saleCreator
	queue      queueAppender
	logg       *logger.Logger
	metrics    *metrics.POSMetrics
	storeID    string
	terminalID string
	taxRate    decimal.Decimal
}

// ServiceParams configure the checkout service.
type ServiceParams struct {
	Cart       cart.Service
	Upstream   saleCreator
	Queue      queueAppender
	Logger     *logger.Logger
	Metrics    *metrics.POSMetrics
	StoreID    string
	TerminalID string
	TaxRate    float64
}

// NewService builds the checkout orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Upstream == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	if params.Queue == nil {
		return nil, fmt.Errorf("offline queue required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.StoreID == "" {
		return nil, fmt.Errorf("store id required")
	}
	return &service{
		cart:       params.Cart,
		upstream:   params.Upstream,
		queue:      params.Queue,
		logg:       params.Logger,
		metrics:    params.Metrics,
		storeID:    params.StoreID,
		terminalID: params.TerminalID,
		taxRate:    decimal.NewFromFloat(params.TaxRate),
	}, nil
}

func (s *service) Execute(ctx context.Context, sessionID uuid.UUID) (*Result, error) {
	view, err := s.cart.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(view); err != nil {
		return nil, err
	}
	if upstream.ReasonFromContext(ctx) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeReasonMissing, "audit reason required for checkout")
	}

	request := BuildRequest(view, s.storeID, s.terminalID, s.taxRate)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"session_id":      sessionID.String(),
		"idempotency_key": request.IdempotencyKey,
		"grand":           view.Totals.Grand.String(),
	})

	if err := s.cart.SetStatus(ctx, sessionID, enums.SessionStatusCheckingOut); err != nil {
		return nil, err
	}

	started := time.Now()
	receipt, callErr := s.upstream.CreateSale(ctx, request)
	if callErr == nil {
		if err := s.cart.Reset(ctx, sessionID, enums.SessionStatusCompleted); err != nil {
			// the sale is committed upstream; a reset failure must not
			// resurface as a checkout failure
			s.logg.Error(ctx, "checkout.reset_failed", err)
		}
		s.metrics.ObserveCheckout(OutcomeCompleted, time.Since(started))
		s.logg.Info(ctx, "checkout.completed")
		return &Result{Outcome: OutcomeCompleted, Receipt: receipt, Totals: view.Totals}, nil
	}

	if typed := pkgerrors.As(callErr); typed != nil && typed.Code() == pkgerrors.CodeInternal {
		// the request never left the terminal; nothing worth queueing
		s.unlock(ctx, sessionID)
		return nil, callErr
	}

	ts, queueErr := s.queue.Enqueue(ctx, sessionID, request)
	if queueErr != nil {
		s.unlock(ctx, sessionID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, queueErr, "queue offline sale")
	}
	// the cart stays intact so the cashier can edit and retry by hand
	if err := s.cart.SetStatus(ctx, sessionID, enums.SessionStatusQueuedOffline); err != nil {
		s.logg.Error(ctx, "checkout.mark_queued_failed", err)
	}
	s.metrics.ObserveCheckout(OutcomeQueuedOffline, time.Since(started))
	s.logg.Warn(s.logg.WithField(ctx, "queued_ts", ts), "checkout.queued_offline")

	return &Result{Outcome: OutcomeQueuedOffline, QueuedTS: &ts, Totals: view.Totals}, nil
}

func (s *service) unlock(ctx context.Context, sessionID uuid.UUID) {
	if err := s.cart.SetStatus(ctx, sessionID, enums.SessionStatusBuilding); err != nil {
		s.logg.Error(ctx, "checkout.unlock_failed", err)
	}
}

func (s *service) validate(view *cart.SessionView) error {
	if len(view.Session.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart contains no lines")
	}
	if view.Session.Status == enums.SessionStatusCheckingOut {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already in progress")
	}
	if len(view.Session.Payments) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one payment is required")
	}
	if view.Session.Payments.Total().LessThan(view.Totals.Grand) {
		return pkgerrors.New(pkgerrors.CodeValidation, "payments do not cover the grand total").
			WithDetails(map[string]any{
				"grand": view.Totals.Grand.String(),
				"paid":  view.Session.Payments.Total().String(),
			})
	}
	return nil
}
