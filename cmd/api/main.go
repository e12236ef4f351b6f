package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/storemate/terminal-backend/api/routes"
	"github.com/storemate/terminal-backend/internal/cart"
	"github.com/storemate/terminal-backend/internal/checkout"
	"github.com/storemate/terminal-backend/internal/holds"
	"github.com/storemate/terminal-backend/internal/offline"
	"github.com/storemate/terminal-backend/internal/pricing"
	"github.com/storemate/terminal-backend/pkg/config"
	"github.com/storemate/terminal-backend/pkg/db"
	"github.com/storemate/terminal-backend/pkg/logger"
	"github.com/storemate/terminal-backend/pkg/metrics"
	"github.com/storemate/terminal-backend/pkg/migrate"
	"github.com/storemate/terminal-backend/pkg/redis"
	"github.com/storemate/terminal-backend/pkg/upstream"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	posMetrics := metrics.NewPOSMetrics(registry)

	upstreamClient, err := upstream.NewClient(cfg.Upstream)
	if err != nil {
		logg.Error(context.Background(), "failed to create upstream client", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:       cart.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		StoreID:    cfg.App.StoreID,
		TerminalID: cfg.App.TerminalID,
		TaxRate:    cfg.POS.TaxRate,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	offlineRepo := offline.NewRepository(dbClient.DB())
	offlineService, err := offline.NewService(offline.ServiceParams{
		Repo:     offlineRepo,
		Upstream: upstreamClient,
		Logger:   logg,
		Metrics:  posMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create offline service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Cart:       cartService,
		Upstream:   upstreamClient,
		Queue:      offlineRepo,
		Logger:     logg,
		Metrics:    posMetrics,
		StoreID:    cfg.App.StoreID,
		TerminalID: cfg.App.TerminalID,
		TaxRate:    cfg.POS.TaxRate,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	pricingService, err := pricing.NewService(pricing.ServiceParams{
		Cart:       cartService,
		Sequencer:  cart.NewRepository(dbClient.DB()),
		Upstream:   upstreamClient,
		Logger:     logg,
		StoreID:    cfg.App.StoreID,
		TerminalID: cfg.App.TerminalID,
		TaxRate:    cfg.POS.TaxRate,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	holdService, err := holds.NewService(holds.ServiceParams{
		Repo:    holds.NewRepository(dbClient.DB()),
		Cart:    cartService,
		Logger:  logg,
		StoreID: cfg.App.StoreID,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create hold service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"store_id": cfg.App.StoreID,
		"terminal": cfg.App.TerminalID,
	})
	logg.Info(ctx, "starting terminal api")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Cart:     cartService,
			Checkout: checkoutService,
			Pricing:  pricingService,
			Holds:    holdService,
			Offline:  offlineService,
			Registry: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "terminal api stopped unexpectedly", err)
		os.Exit(1)
	}
}
