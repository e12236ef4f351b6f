package pricing

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/storemate/terminal-backend/internal/cart"
	"github.com/storemate/terminal-backend/pkg/db/models"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/logger"
	"github.com/storemate/terminal-backend/pkg/types"
)

type stubQuoter struct {
	totals *types.Totals
	err    error
}

func (s *stubQuoter) QuoteSale(ctx context.Context, req types.CheckoutRequest) (*types.Totals, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.totals, nil
}

type testTxRunner struct {
	conn *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.conn.WithContext(ctx).Transaction(fn)
}

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func setupPricing(t *testing.T, quoter *stubQuoter) (cart.Service, *cart.Repository, Service) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.TerminalSession{}, &models.SessionLine{}))

	repo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:       repo,
		Tx:         testTxRunner{conn: conn},
		StoreID:    "store-1",
		TerminalID: "term-1",
		TaxRate:    0.15,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Cart:       cartSvc,
		Sequencer:  repo,
		Upstream:   quoter,
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		StoreID:    "store-1",
		TerminalID: "term-1",
		TaxRate:    0.15,
	})
	require.NoError(t, err)
	return cartSvc, repo, svc
}

func seedCart(t *testing.T, cartSvc cart.Service) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	view, err := cartSvc.Open(ctx)
	require.NoError(t, err)
	_, err = cartSvc.AddLine(ctx, view.Session.ID, cart.AddLineInput{
		ProductID: uuid.New(),
		Name:      "Desk lamp",
		Qty:       1,
		UnitPrice: dec("40"),
	})
	require.NoError(t, err)
	return view.Session.ID
}

func TestQuoteAppliesUpstreamTotals(t *testing.T) {
	upstreamTotals := types.Totals{Sub: dec("38"), Disc: dec("0"), Tax: dec("5.70"), Grand: dec("43.70")}
	cartSvc, _, svc := setupPricing(t, &stubQuoter{totals: &upstreamTotals})
	ctx := context.Background()

	sessionID := seedCart(t, cartSvc)

	result, err := svc.Quote(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, result.Applied)
	require.Equal(t, SourceUpstream, result.Source)
	require.True(t, result.Totals.Grand.Equal(dec("43.70")))
}

func TestQuoteStaleSequenceIsDiscarded(t *testing.T) {
	upstreamTotals := types.Totals{Sub: dec("38"), Grand: dec("43.70")}
	cartSvc, repo, svc := setupPricing(t, &stubQuoter{totals: &upstreamTotals})
	ctx := context.Background()

	sessionID := seedCart(t, cartSvc)

	// a quote from the far future already landed
	applied, err := repo.ApplyQuoteSeq(ctx, sessionID, 1<<62)
	require.NoError(t, err)
	require.True(t, applied)

	result, err := svc.Quote(ctx, sessionID)
	require.NoError(t, err)
	require.False(t, result.Applied)
	require.Equal(t, SourceLocal, result.Source)
	// local totals stand: 40 + 15% tax
	require.True(t, result.Totals.Grand.Equal(dec("46")), "grand %s", result.Totals.Grand)
}

func TestQuoteSequenceIsMonotonicPerSession(t *testing.T) {
	upstreamTotals := types.Totals{Sub: dec("40"), Grand: dec("46")}
	cartSvc, repo, svc := setupPricing(t, &stubQuoter{totals: &upstreamTotals})
	ctx := context.Background()

	sessionID := seedCart(t, cartSvc)

	first, err := repo.NextQuoteSeq(ctx, sessionID)
	require.NoError(t, err)
	require.EqualValues(t, 1, first)
	second, err := repo.NextQuoteSeq(ctx, sessionID)
	require.NoError(t, err)
	require.EqualValues(t, 2, second)

	// back-to-back quotes each draw a fresh sequence, so the later one
	// always wins even within the same instant
	result, err := svc.Quote(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, result.Applied)
	result, err = svc.Quote(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, result.Applied)

	_, err = repo.NextQuoteSeq(ctx, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestQuoteUpstreamFailureFallsBackToLocal(t *testing.T) {
	cartSvc, _, svc := setupPricing(t, &stubQuoter{err: pkgerrors.New(pkgerrors.CodeUpstream, "offline")})
	ctx := context.Background()

	sessionID := seedCart(t, cartSvc)

	result, err := svc.Quote(ctx, sessionID)
	require.NoError(t, err)
	require.False(t, result.Applied)
	require.Equal(t, SourceLocal, result.Source)
	require.True(t, result.Totals.Grand.Equal(dec("46")))
}

func TestQuoteRejectsEmptyCart(t *testing.T) {
	cartSvc, _, svc := setupPricing(t, &stubQuoter{})
	ctx := context.Background()

	view, err := cartSvc.Open(ctx)
	require.NoError(t, err)

	_, err = svc.Quote(ctx, view.Session.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
