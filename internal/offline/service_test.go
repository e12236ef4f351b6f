package offline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/storemate/terminal-backend/pkg/db/models"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/logger"
	"github.com/storemate/terminal-backend/pkg/types"
	"github.com/storemate/terminal-backend/pkg/upstream"
)

type stubUpstream struct {
	errsByKey map[string]error
	calls     []types.CheckoutRequest
	reasons   []string
}

func (s *stubUpstream) CreateSale(ctx context.Context, req types.CheckoutRequest) (*types.Receipt, error) {
	s.calls = append(s.calls, req)
	s.reasons = append(s.reasons, upstream.ReasonFromContext(ctx))
	if err, ok := s.errsByKey[req.IdempotencyKey]; ok {
		return nil, err
	}
	return &types.Receipt{SaleID: uuid.New()}, nil
}

func setupQueue(t *testing.T) (*Repository, Service, *stubUpstream) {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.OfflineSale{}))

	repo := NewRepository(conn)
	sender := &stubUpstream{errsByKey: map[string]error{}}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Upstream: sender,
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
	})
	require.NoError(t, err)
	return repo, svc, sender
}

func queuedRequest(key string) types.CheckoutRequest {
	return types.CheckoutRequest{
		IdempotencyKey: key,
		StoreID:        "store-1",
		TerminalID:     "term-1",
		Lines: []types.CheckoutLine{
			{ProductID: uuid.New(), Name: "Keyboard", Qty: 1},
		},
	}
}

func TestEnqueuePreservesOrder(t *testing.T) {
	repo, _, _ := setupQueue(t)
	ctx := context.Background()

	first, err := repo.Enqueue(ctx, uuid.New(), queuedRequest("a"))
	require.NoError(t, err)
	second, err := repo.Enqueue(ctx, uuid.New(), queuedRequest("b"))
	require.NoError(t, err)
	require.Greater(t, second, first, "later enqueue must get a later ts")

	rows, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, first, rows[0].TS)
	require.Equal(t, second, rows[1].TS)
}

func TestReplayDrainsQueueInOrder(t *testing.T) {
	repo, svc, upstream := setupQueue(t)
	ctx := context.Background()

	_, err := repo.Enqueue(ctx, uuid.New(), queuedRequest("first"))
	require.NoError(t, err)
	_, err = repo.Enqueue(ctx, uuid.New(), queuedRequest("second"))
	require.NoError(t, err)

	result, err := svc.Replay(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, result.Replayed)
	require.Equal(t, 0, result.Left)

	require.Len(t, upstream.calls, 2)
	require.Equal(t, "first", upstream.calls[0].IdempotencyKey)
	require.Equal(t, "second", upstream.calls[1].IdempotencyKey)

	depth, err := svc.Depth(ctx)
	require.NoError(t, err)
	require.Zero(t, depth)
}

func TestReplayKeepsFailedSales(t *testing.T) {
	repo, svc, upstream := setupQueue(t)
	ctx := context.Background()
	upstream.errsByKey["poison"] = pkgerrors.New(pkgerrors.CodeUpstream, "still down")

	_, err := repo.Enqueue(ctx, uuid.New(), queuedRequest("poison"))
	require.NoError(t, err)
	_, err = repo.Enqueue(ctx, uuid.New(), queuedRequest("healthy"))
	require.NoError(t, err)

	result, err := svc.Replay(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Replayed)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, 1, result.Left)

	// one poisoned sale must not block the one behind it
	require.Len(t, upstream.calls, 2)

	rows, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
}

func TestReplaySkipsUndecodableRow(t *testing.T) {
	repo, svc, upstream := setupQueue(t)
	ctx := context.Background()

	_, err := repo.Enqueue(ctx, uuid.New(), queuedRequest("good"))
	require.NoError(t, err)

	rows, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.DB(ctx).Model(&models.OfflineSale{}).
		Where("ts = ?", rows[0].TS).
		Update("dto", "{not json").Error)

	result, err := svc.Replay(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, result.Replayed)
	require.Equal(t, 1, result.Failed)
	require.Empty(t, upstream.calls)
}

func TestPurgeDropsEverything(t *testing.T) {
	repo, svc, _ := setupQueue(t)
	ctx := context.Background()

	_, err := repo.Enqueue(ctx, uuid.New(), queuedRequest("a"))
	require.NoError(t, err)
	_, err = repo.Enqueue(ctx, uuid.New(), queuedRequest("b"))
	require.NoError(t, err)

	dropped, err := svc.Purge(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, dropped)

	depth, err := svc.Depth(ctx)
	require.NoError(t, err)
	require.Zero(t, depth)
}

func TestReplayResendsQueuedReason(t *testing.T) {
	repo, svc, sender := setupQueue(t)
	ctx := upstream.WithReason(context.Background(), "card reader offline, till 2")

	_, err := repo.Enqueue(ctx, uuid.New(), queuedRequest("queued"))
	require.NoError(t, err)

	rows, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, "card reader offline, till 2", rows[0].Reason)

	// the replay pass runs under a bare context; the sale still goes out
	// with the reason it was rung up with
	result, err := svc.Replay(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Replayed)
	require.Equal(t, []string{"card reader offline, till 2"}, sender.reasons)
}

func TestListDecodesQueuedRequests(t *testing.T) {
	repo, svc, _ := setupQueue(t)
	ctx := context.Background()

	sessionID := uuid.New()
	_, err := repo.Enqueue(ctx, sessionID, queuedRequest("visible"))
	require.NoError(t, err)

	out, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, sessionID.String(), out[0].SessionID)
	require.Equal(t, "visible", out[0].Request.IdempotencyKey)
}
