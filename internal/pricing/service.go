package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storemate/terminal-backend/internal/cart"
	"github.com/storemate/terminal-backend/internal/checkout"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/logger"
	"github.com/storemate/terminal-backend/pkg/types"
)

const (
	SourceLocal    = "local"
	SourceUpstream = "upstream"
)

type quoter interface {
	QuoteSale(ctx context.Context, req types.CheckoutRequest) (*types.Totals, error)
}

type quoteSequencer interface {
	NextQuoteSeq(ctx context.Context, sessionID uuid.UUID) (int64, error)
	ApplyQuoteSeq(ctx context.Context, sessionID uuid.UUID, seq int64) (bool, error)
}

// Service asks the upstream to re-price the cart. The locally computed
// totals always stand until a fresher upstream answer lands.
type Service interface {
	Quote(ctx context.Context, sessionID uuid.UUID) (*QuoteResult, error)
}

// QuoteResult reports which totals the terminal should display and where
// they came from.
type QuoteResult struct {
	Totals  types.Totals `json:"totals"`
	Source  string       `json:"source"`
	Applied bool         `json:"applied"`
}

type service struct {
	cart       cart.Service
	seq        quoteSequencer
	upstream   quoter
	logg       *logger.Logger
	storeID    string
	terminalID string
	taxRate    decimal.Decimal
}

// ServiceParams configure the pricing service.
type ServiceParams struct {
	Cart       cart.Service
	Sequencer  quoteSequencer
	Upstream   quoter
	Logger     *logger.Logger
	StoreID    string
	TerminalID string
	TaxRate    float64
}

// NewService builds the pricing service.
func NewService(params ServiceParams) (Service, error) {
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Sequencer == nil {
		return nil, fmt.Errorf("quote sequencer required")
	}
	if params.Upstream == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		cart:       params.Cart,
		seq:        params.Sequencer,
		upstream:   params.Upstream,
		logg:       params.Logger,
		storeID:    params.StoreID,
		terminalID: params.TerminalID,
		taxRate:    decimal.NewFromFloat(params.TaxRate),
	}, nil
}

// Quote re-prices the cart upstream. Each attempt draws the session's next
// quote sequence before the call; an answer only wins if no later attempt
// has already been applied, so a slow response can never overwrite a
// fresher one. Upstream trouble degrades to the local totals instead of
// failing the request.
func (s *service) Quote(ctx context.Context, sessionID uuid.UUID) (*QuoteResult, error) {
	view, err := s.cart.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(view.Session.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no lines")
	}

	seq, err := s.seq.NextQuoteSeq(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "next quote seq")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"session_id": sessionID.String(),
		"quote_seq":  seq,
	})

	request := checkout.BuildRequest(view, s.storeID, s.terminalID, s.taxRate)
	quoted, err := s.upstream.QuoteSale(ctx, request)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "quote.upstream_failed")
		return &QuoteResult{Totals: view.Totals, Source: SourceLocal}, nil
	}

	applied, err := s.seq.ApplyQuoteSeq(ctx, sessionID, seq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply quote seq")
	}
	if !applied {
		// a later quote already landed, this answer is stale
		s.logg.Info(ctx, "quote.superseded")
		return &QuoteResult{Totals: view.Totals, Source: SourceLocal}, nil
	}

	s.logg.Info(ctx, "quote.applied")
	return &QuoteResult{Totals: *quoted, Source: SourceUpstream, Applied: true}, nil
}
