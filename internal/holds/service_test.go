package holds

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
	"github.com/storemate/terminal-backend/pkg/enums"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/logger"
)

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

func setupHolds(t *testing.T) (cart.Service, Service) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.TerminalSession{}, &models.SessionLine{}, &models.HoldOrder{}))

	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:       cart.NewRepository(conn),
		Tx:         testTxRunner{conn: conn},
		StoreID:    "store-1",
		TerminalID: "term-1",
		TaxRate:    0.15,
	})
	require.NoError(t, err)

	holdSvc, err := NewService(ServiceParams{
		Repo:    NewRepository(conn),
		Cart:    cartSvc,
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		StoreID: "store-1",
	})
	require.NoError(t, err)
	return cartSvc, holdSvc
}

func TestHoldParksAndClearsCart(t *testing.T) {
	cartSvc, holdSvc := setupHolds(t)
	ctx := context.Background()

	view, err := cartSvc.Open(ctx)
	require.NoError(t, err)
	sessionID := view.Session.ID

	_, err = cartSvc.AddLine(ctx, sessionID, cart.AddLineInput{ProductID: uuid.New(), Name: "Headset", Qty: 2, UnitPrice: dec("45")})
	require.NoError(t, err)

	hold, err := holdSvc.Hold(ctx, sessionID, "customer at counter 2")
	require.NoError(t, err)
	require.Equal(t, "customer at counter 2", hold.Label)
	require.Equal(t, 1, hold.LineCount)
	require.True(t, hold.Totals.Sub.Equal(dec("90")))

	view, err = cartSvc.Get(ctx, sessionID)
	require.NoError(t, err)
	require.Empty(t, view.Session.Lines)
	require.Equal(t, enums.SessionStatusHeld, view.Session.Status)
}

func TestHoldRejectsEmptyCart(t *testing.T) {
	cartSvc, holdSvc := setupHolds(t)
	ctx := context.Background()

	view, err := cartSvc.Open(ctx)
	require.NoError(t, err)

	_, err = holdSvc.Hold(ctx, view.Session.ID, "nothing here")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestResumeRestoresExactState(t *testing.T) {
	cartSvc, holdSvc := setupHolds(t)
	ctx := context.Background()

	view, err := cartSvc.Open(ctx)
	require.NoError(t, err)
	sessionID := view.Session.ID

	customerID := uuid.New()
	note := "gift wrap"
	_, err = cartSvc.AddLine(ctx, sessionID, cart.AddLineInput{ProductID: uuid.New(), Name: "Mouse", Qty: 1, UnitPrice: dec("35")})
	require.NoError(t, err)
	_, err = cartSvc.UpdateDetails(ctx, sessionID, cart.DetailsInput{CustomerID: &customerID, Note: &note})
	require.NoError(t, err)

	hold, err := holdSvc.Hold(ctx, sessionID, "lunch break")
	require.NoError(t, err)

	view, err = holdSvc.Resume(ctx, hold.ID, sessionID)
	require.NoError(t, err)
	require.Len(t, view.Session.Lines, 1)
	require.Equal(t, "Mouse", view.Session.Lines[0].Name)
	require.NotNil(t, view.Session.CustomerID)
	require.Equal(t, customerID, *view.Session.CustomerID)
	require.Equal(t, "gift wrap", view.Session.Note)
	require.Equal(t, enums.SessionStatusBuilding, view.Session.Status)

	// the hold is consumed on resume
	list, err := holdSvc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestResumeRefusedOverNonEmptyCart(t *testing.T) {
	cartSvc, holdSvc := setupHolds(t)
	ctx := context.Background()

	view, err := cartSvc.Open(ctx)
	require.NoError(t, err)
	sessionID := view.Session.ID

	_, err = cartSvc.AddLine(ctx, sessionID, cart.AddLineInput{ProductID: uuid.New(), Name: "Webcam", Qty: 1, UnitPrice: dec("60")})
	require.NoError(t, err)
	hold, err := holdSvc.Hold(ctx, sessionID, "parked")
	require.NoError(t, err)

	_, err = cartSvc.AddLine(ctx, sessionID, cart.AddLineInput{ProductID: uuid.New(), Name: "Tripod", Qty: 1, UnitPrice: dec("25")})
	require.NoError(t, err)

	_, err = holdSvc.Resume(ctx, hold.ID, sessionID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	// the hold survives the refused resume
	list, err := holdSvc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestDeleteDiscardsHold(t *testing.T) {
	cartSvc, holdSvc := setupHolds(t)
	ctx := context.Background()

	view, err := cartSvc.Open(ctx)
	require.NoError(t, err)
	_, err = cartSvc.AddLine(ctx, view.Session.ID, cart.AddLineInput{ProductID: uuid.New(), Name: "Cable", Qty: 1, UnitPrice: dec("5")})
	require.NoError(t, err)

	hold, err := holdSvc.Hold(ctx, view.Session.ID, "abandoned")
	require.NoError(t, err)

	require.NoError(t, holdSvc.Delete(ctx, hold.ID))

	err = holdSvc.Delete(ctx, hold.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
