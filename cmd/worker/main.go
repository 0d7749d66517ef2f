package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/emberline/storefront-backend/internal/adminsync"
	"github.com/emberline/storefront-backend/internal/orders"
	"github.com/emberline/storefront-backend/pkg/config"
	"github.com/emberline/storefront-backend/pkg/db"
	"github.com/emberline/storefront-backend/pkg/logger"
	"github.com/emberline/storefront-backend/pkg/metrics"
	"github.com/emberline/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	elevatedClient, err := db.NewElevated(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap elevated database", err)
		os.Exit(1)
	}
	defer func() {
		if err := elevatedClient.Close(); err != nil {
			logg.Error(ctx, "error closing elevated database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	syncMetrics := metrics.NewSyncJobMetrics(registry)

	cache, err := adminsync.NewCache(redisClient, 0)
	if err != nil {
		logg.Error(ctx, "failed to create override cache", err)
		os.Exit(1)
	}

	worker, err := adminsync.NewWorker(
		cache,
		orders.NewRepository(elevatedClient.DB()),
		cfg.Sync.Interval,
		logg,
		syncMetrics,
	)
	if err != nil {
		logg.Error(ctx, "failed to create sync worker", err)
		os.Exit(1)
	}

	worker.Run(ctx)
}
