package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/storemate/terminal-backend/internal/offline"
	"github.com/storemate/terminal-backend/pkg/config"
	"github.com/storemate/terminal-backend/pkg/logger"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultLockTTL      = 2 * time.Minute
	maxBackoff          = 5 * time.Minute
	jitterWindow        = 500 * time.Millisecond
	replayLockName      = "offline-replay"
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type lockClient interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
	Ping(ctx context.Context) error
}

type ServiceParams struct {
	Config *config.Config
	Logger *logger.Logger
	Locks  lockClient
	Queue  offline.Service
}

// Service drives periodic replay of the offline sale queue. A redis lock
// keeps concurrent workers from replaying the same sales twice.
type Service struct {
	cfg            *config.Config
	logg           *logger.Logger
	locks          lockClient
	queue          offline.Service
	pollInterval   time.Duration
	lockTTL        time.Duration
	requestTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Locks == nil {
		return nil, errors.New("lock client is required")
	}
	if params.Queue == nil {
		return nil, errors.New("queue service is required")
	}

	poll := params.Config.Replay.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	lockTTL := params.Config.Replay.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}

	return &Service{
		cfg:            params.Config,
		logg:           params.Logger,
		locks:          params.Locks,
		queue:          params.Queue,
		pollInterval:   poll,
		lockTTL:        lockTTL,
		requestTimeout: params.Config.Replay.RequestTimeout,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.locks.Ping(ctx); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	backoff := s.pollInterval
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "replay worker context canceled")
			return ctx.Err()
		default:
		}

		if err := s.runOnce(ctx); err != nil {
			s.logg.Error(ctx, "replay pass error", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = s.pollInterval
		if err := s.sleep(ctx, withJitter(s.pollInterval)); err != nil {
			return err
		}
	}
}

func (s *Service) runOnce(ctx context.Context) error {
	lockKey := s.locks.LockKey(replayLockName)
	acquired, err := s.locks.SetNX(ctx, lockKey, time.Now().UnixMilli(), s.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire replay lock: %w", err)
	}
	if !acquired {
		// another worker holds the queue
		return nil
	}
	defer func() {
		if err := s.locks.Del(context.WithoutCancel(ctx), lockKey); err != nil {
			s.logg.Error(ctx, "release replay lock", err)
		}
	}()

	depth, err := s.queue.Depth(ctx)
	if err != nil {
		return err
	}
	if depth == 0 {
		return nil
	}

	passCtx := ctx
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		passCtx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	result, err := s.queue.Replay(passCtx)
	if result != nil {
		fields := map[string]any{
			"replayed": result.Replayed,
			"failed":   result.Failed,
			"left":     result.Left,
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "replay pass complete")
	}
	return err
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
