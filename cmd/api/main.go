package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/emberline/storefront-backend/api/routes"
	"github.com/emberline/storefront-backend/internal/adminsync"
	checkoutsvc "github.com/emberline/storefront-backend/internal/checkout"
	"github.com/emberline/storefront-backend/internal/discounts"
	"github.com/emberline/storefront-backend/internal/orders"
	product "github.com/emberline/storefront-backend/internal/products"
	"github.com/emberline/storefront-backend/internal/shipping"
	stripewebhook "github.com/emberline/storefront-backend/internal/webhooks/stripe"
	"github.com/emberline/storefront-backend/pkg/config"
	"github.com/emberline/storefront-backend/pkg/db"
	"github.com/emberline/storefront-backend/pkg/logger"
	"github.com/emberline/storefront-backend/pkg/metrics"
	"github.com/emberline/storefront-backend/pkg/migrate"
	"github.com/emberline/storefront-backend/pkg/redis"
	"github.com/emberline/storefront-backend/pkg/stripe"
)

const webhookGuardTTL = 24 * time.Hour

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

	elevatedClient, err := db.NewElevated(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap elevated database", err)
		os.Exit(1)
	}
	defer func() {
		if err := elevatedClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing elevated database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, elevatedClient); err != nil {
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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reconcileMetrics := metrics.NewReconcileMetrics(registry)

	taxRate, err := cfg.Checkout.Rate()
	if err != nil {
		logg.Error(context.Background(), "invalid checkout tax rate", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	elevatedOrdersRepo := orders.NewRepository(elevatedClient.DB())
	productsRepo := product.NewRepository(dbClient.DB())

	productSvc, err := product.NewService(productsRepo)
	exitOnErr(logg, "product service", err)
	shippingSvc, err := shipping.NewService(shipping.NewRepository(dbClient.DB()))
	exitOnErr(logg, "shipping service", err)
	discountSvc, err := discounts.NewService(discounts.NewRemote(elevatedClient), logg)
	exitOnErr(logg, "discount service", err)

	checkoutSvc, err := checkoutsvc.NewService(
		dbClient,
		ordersRepo,
		productsRepo,
		shippingSvc,
		discountSvc,
		stripeClient,
		checkoutsvc.Config{
			TaxRate:    taxRate,
			Currency:   cfg.Checkout.Currency,
			SuccessURL: cfg.Checkout.SuccessURL,
			CancelURL:  cfg.Checkout.CancelURL,
		},
		logg,
	)
	exitOnErr(logg, "checkout service", err)

	overrideCache, err := adminsync.NewCache(redisClient, 0)
	exitOnErr(logg, "override cache", err)
	ordersSvc, err := orders.NewService(ordersRepo, overrideCache, logg)
	exitOnErr(logg, "orders service", err)
	adminSyncSvc, err := adminsync.NewService(overrideCache, elevatedOrdersRepo, logg)
	exitOnErr(logg, "admin sync service", err)

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		OrdersRepo: elevatedOrdersRepo,
		Products:   productsRepo,
		Logger:     logg,
		Metrics:    reconcileMetrics,
	})
	exitOnErr(logg, "stripe webhook service", err)
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookGuardTTL, "stripe_event")
	exitOnErr(logg, "webhook idempotency guard", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Registry:      registry,
			Products:      productSvc,
			Shipping:      shippingSvc,
			Discounts:     discountSvc,
			Checkout:      checkoutSvc,
			Orders:        ordersSvc,
			AdminSync:     adminSyncSvc,
			StripeClient:  stripeClient,
			StripeWebhook: webhookSvc,
			WebhookGuard:  webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func exitOnErr(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
