package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emberline/storefront-backend/api/controllers"
	webhookcontrollers "github.com/emberline/storefront-backend/api/controllers/webhooks"
	"github.com/emberline/storefront-backend/api/middleware"
	"github.com/emberline/storefront-backend/internal/adminsync"
	checkoutsvc "github.com/emberline/storefront-backend/internal/checkout"
	"github.com/emberline/storefront-backend/internal/discounts"
	"github.com/emberline/storefront-backend/internal/orders"
	product "github.com/emberline/storefront-backend/internal/products"
	"github.com/emberline/storefront-backend/internal/shipping"
	stripewebhook "github.com/emberline/storefront-backend/internal/webhooks/stripe"
	"github.com/emberline/storefront-backend/pkg/config"
	"github.com/emberline/storefront-backend/pkg/db"
	"github.com/emberline/storefront-backend/pkg/enums"
	"github.com/emberline/storefront-backend/pkg/logger"
	"github.com/emberline/storefront-backend/pkg/redis"
	"github.com/emberline/storefront-backend/pkg/stripe"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry

	Products  product.Reader
	Shipping  shipping.Reader
	Discounts discounts.Service
	Checkout  checkoutsvc.Service
	Orders    orders.Service
	AdminSync adminsync.Service

	StripeClient  *stripe.Client
	StripeWebhook *stripewebhook.Service
	WebhookGuard  *stripewebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ListProducts(deps.Products, logg))
		r.Get("/products/{id}", controllers.GetProduct(deps.Products, logg))
		r.Get("/shipping-rates", controllers.ListShippingRates(deps.Shipping, logg))
		r.Post("/discounts/apply", controllers.ApplyDiscount(deps.Discounts, logg))

		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeClient, deps.WebhookGuard, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
			r.Get("/orders", controllers.ListOrders(deps.Orders, logg))
			r.Get("/orders/{id}", controllers.GetOrder(deps.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

		r.Get("/orders", controllers.AdminListOrders(deps.Orders, logg))
		r.Patch("/orders/{id}/status", controllers.AdminUpdateStatus(deps.AdminSync, logg))
		r.Patch("/orders/{id}/tracking", controllers.AdminUpdateTracking(deps.AdminSync, logg))
	})

	return r
}
