package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emberline/storefront-backend/internal/adminsync"
	"github.com/emberline/storefront-backend/internal/discounts"
	"github.com/emberline/storefront-backend/internal/orders"
	product "github.com/emberline/storefront-backend/internal/products"
	"github.com/emberline/storefront-backend/internal/shipping"
	stripewebhook "github.com/emberline/storefront-backend/internal/webhooks/stripe"
	pkgAuth "github.com/emberline/storefront-backend/pkg/auth"
	"github.com/emberline/storefront-backend/pkg/config"
	"github.com/emberline/storefront-backend/pkg/db/dbtest"
	"github.com/emberline/storefront-backend/pkg/db/models"
	"github.com/emberline/storefront-backend/pkg/enums"
	"github.com/emberline/storefront-backend/pkg/logger"
	"github.com/emberline/storefront-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubRemote struct{}

func (stubRemote) Apply(ctx context.Context, code string, subtotal decimal.Decimal) (*discounts.RemoteResult, error) {
	return &discounts.RemoteResult{Valid: false, Message: "Invalid discount code"}, nil
}

func (stubRemote) FindCodeID(ctx context.Context, code string) (*uuid.UUID, error) {
	return nil, nil
}

func routerTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "storefront-test",
			ExpirationMinutes: 15,
		},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	conn := dbtest.Open(t)

	mini := miniredis.RunT(t)
	redisClient, err := redis.New(context.Background(), config.RedisConfig{Address: mini.Addr()}, logg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisClient.Close() })

	productSvc, err := product.NewService(product.NewRepository(conn))
	require.NoError(t, err)
	shippingSvc, err := shipping.NewService(shipping.NewRepository(conn))
	require.NoError(t, err)
	discountSvc, err := discounts.NewService(stubRemote{}, logg)
	require.NoError(t, err)

	ordersRepo := orders.NewRepository(conn)
	cache, err := adminsync.NewCache(redisClient, time.Hour)
	require.NoError(t, err)
	ordersSvc, err := orders.NewService(ordersRepo, cache, logg)
	require.NoError(t, err)
	adminSvc, err := adminsync.NewService(cache, ordersRepo, logg)
	require.NoError(t, err)

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		OrdersRepo: ordersRepo,
		Products:   product.NewRepository(conn),
		Logger:     logg,
	})
	require.NoError(t, err)
	guard, err := stripewebhook.NewIdempotencyGuard(redisClient, time.Hour, "stripe_event")
	require.NoError(t, err)

	router := NewRouter(Deps{
		Config:        routerTestConfig(),
		Logger:        logg,
		DB:            stubPinger{},
		Redis:         redisClient,
		Products:      productSvc,
		Shipping:      shippingSvc,
		Discounts:     discountSvc,
		Orders:        ordersSvc,
		AdminSync:     adminSvc,
		StripeWebhook: webhookSvc,
		WebhookGuard:  guard,
	})
	return router, conn
}

func mintToken(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(routerTestConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	require.NoError(t, err)
	return token
}

func TestRouterHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouterPublicCatalog(t *testing.T) {
	router, conn := newTestRouter(t)
	prod := &models.Product{
		ID:    uuid.New(),
		Name:  "Widget",
		Price: decimal.RequireFromString("9.99"),
	}
	require.NoError(t, conn.Create(prod).Error)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products/"+prod.ID.String(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterOrdersRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterAdminRequiresAdminRole(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.UserRoleCustomer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.UserRoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
