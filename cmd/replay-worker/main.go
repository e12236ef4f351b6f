package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/storemate/terminal-backend/internal/offline"
	"github.com/storemate/terminal-backend/pkg/config"
	"github.com/storemate/terminal-backend/pkg/db"
	"github.com/storemate/terminal-backend/pkg/logger"
	"github.com/storemate/terminal-backend/pkg/metrics"
	"github.com/storemate/terminal-backend/pkg/migrate"
	"github.com/storemate/terminal-backend/pkg/redis"
	"github.com/storemate/terminal-backend/pkg/upstream"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "replay-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "replay-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	upstreamClient, err := upstream.NewClient(cfg.Upstream)
	if err != nil {
		logg.Error(context.Background(), "failed to create upstream client", err)
		os.Exit(1)
	}

	posMetrics := metrics.NewPOSMetrics(prometheus.NewRegistry())

	queueService, err := offline.NewService(offline.ServiceParams{
		Repo:     offline.NewRepository(dbClient.DB()),
		Upstream: upstreamClient,
		Logger:   logg,
		Metrics:  posMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create offline service", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config: cfg,
		Logger: logg,
		Locks:  redisClient,
		Queue:  queueService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create replay worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"store_id": cfg.App.StoreID,
	})
	logg.Info(ctx, "starting replay worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "replay worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "replay worker shutting down gracefully")
}
