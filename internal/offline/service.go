package offline

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/multierr"

	"github.com/storemate/terminal-backend/pkg/db/models"
	pkgerrors "github.com/storemate/terminal-backend/pkg/errors"
	"github.com/storemate/terminal-backend/pkg/logger"
	"github.com/storemate/terminal-backend/pkg/metrics"
	"github.com/storemate/terminal-backend/pkg/types"
	"github.com/storemate/terminal-backend/pkg/upstream"
)

type saleSender interface {
	CreateSale(ctx context.Context, req types.CheckoutRequest) (*types.Receipt, error)
}

type queueRepository interface {
	ListAll(ctx context.Context) ([]models.OfflineSale, error)
	Remove(ctx context.Context, ts int64) error
	MarkFailed(ctx context.Context, ts int64, cause error) error
	Purge(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// Service drains the offline sale queue against the upstream.
type Service interface {
	Replay(ctx context.Context) (*ReplayResult, error)
	List(ctx context.Context) ([]QueuedSale, error)
	Purge(ctx context.Context) (int64, error)
	Depth(ctx context.Context) (int64, error)
}

// ReplayResult summarizes one replay pass.
type ReplayResult struct {
	Replayed int `json:"replayed"`
	Failed   int `json:"failed"`
	Left     int `json:"left"`
}

// QueuedSale is the API view of one queue row.
type QueuedSale struct {
	TS           int64                 `json:"ts"`
	SessionID    string                `json:"session_id"`
	Request      types.CheckoutRequest `json:"request"`
	Reason       string                `json:"reason,omitempty"`
	AttemptCount int                   `json:"attempt_count"`
	LastError    *string               `json:"last_error,omitempty"`
}

type service struct {
	repo     queueRepository
	upstream saleSender
	logg     *logger.Logger
	metrics  *metrics.POSMetrics
}

// ServiceParams configure the offline queue service.
type ServiceParams struct {
	Repo     queueRepository
	Upstream saleSender
	Logger   *logger.Logger
	Metrics  *metrics.POSMetrics
}

// NewService builds the replay service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("queue repository required")
	}
	if params.Upstream == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		upstream: params.Upstream,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// Replay walks the queue oldest first and posts each sale upstream. Rows
// that succeed are removed; rows that fail stay queued with their attempt
// count bumped, and the pass keeps going so one poisoned sale cannot block
// the rest.
func (s *service) Replay(ctx context.Context) (*ReplayResult, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list offline queue")
	}

	result := &ReplayResult{}
	var errs error
	for _, row := range rows {
		rowCtx := s.logg.WithFields(ctx, map[string]any{
			"queued_ts":  row.TS,
			"session_id": row.SessionID,
		})
		if row.Reason != "" {
			// the sale carries the reason it was rung up with, not the
			// reason the replay was triggered
			rowCtx = upstream.WithReason(rowCtx, row.Reason)
		}

		var request types.CheckoutRequest
		if err := json.Unmarshal(row.Dto, &request); err != nil {
			// undecodable rows stay in the queue for a supervisor to purge
			s.logg.Error(rowCtx, "replay.decode_failed", err)
			if markErr := s.repo.MarkFailed(ctx, row.TS, err); markErr != nil {
				errs = multierr.Append(errs, markErr)
			}
			result.Failed++
			continue
		}

		if _, err := s.upstream.CreateSale(rowCtx, request); err != nil {
			s.logg.Warn(s.logg.WithField(rowCtx, "error", err.Error()), "replay.sale_failed")
			s.metrics.IncReplayed("failed")
			if markErr := s.repo.MarkFailed(ctx, row.TS, err); markErr != nil {
				errs = multierr.Append(errs, markErr)
			}
			result.Failed++
			continue
		}

		if err := s.repo.Remove(ctx, row.TS); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("remove replayed sale %d: %w", row.TS, err))
			result.Failed++
			continue
		}
		s.metrics.IncReplayed("ok")
		s.logg.Info(rowCtx, "replay.sale_completed")
		result.Replayed++
	}

	result.Left = len(rows) - result.Replayed
	s.observeDepth(ctx)
	return result, errs
}

// List exposes the queue contents for the terminal UI.
func (s *service) List(ctx context.Context) ([]QueuedSale, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list offline queue")
	}
	out := make([]QueuedSale, 0, len(rows))
	for _, row := range rows {
		item := QueuedSale{
			TS:           row.TS,
			SessionID:    row.SessionID,
			Reason:       row.Reason,
			AttemptCount: row.AttemptCount,
			LastError:    row.LastError,
		}
		if err := json.Unmarshal(row.Dto, &item.Request); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "queued_ts", row.TS), "queue.decode_failed", err)
		}
		out = append(out, item)
	}
	return out, nil
}

// Purge drops every queued sale and reports how many were discarded.
func (s *service) Purge(ctx context.Context) (int64, error) {
	dropped, err := s.repo.Purge(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge offline queue")
	}
	s.logg.Warn(s.logg.WithField(ctx, "dropped", dropped), "queue.purged")
	s.observeDepth(ctx)
	return dropped, nil
}

// Depth reports the number of queued sales.
func (s *service) Depth(ctx context.Context) (int64, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count offline queue")
	}
	return count, nil
}

func (s *service) observeDepth(ctx context.Context) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		s.logg.Error(ctx, "queue.depth_failed", err)
		return
	}
	s.metrics.SetQueueDepth(count)
}
