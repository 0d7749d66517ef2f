package adminsync

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emberline/storefront-backend/internal/orders"
	"github.com/emberline/storefront-backend/pkg/config"
	"github.com/emberline/storefront-backend/pkg/db/dbtest"
	"github.com/emberline/storefront-backend/pkg/db/models"
	"github.com/emberline/storefront-backend/pkg/enums"
	pkgerrors "github.com/emberline/storefront-backend/pkg/errors"
	"github.com/emberline/storefront-backend/pkg/logger"
	"github.com/emberline/storefront-backend/pkg/redis"
	"github.com/emberline/storefront-backend/pkg/types"
)

type syncFixture struct {
	db    *gorm.DB
	redis *redis.Client
	cache *Cache
	svc   Service
	repo  orders.Repository
	order *models.Order
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	mini := miniredis.RunT(t)
	store, err := redis.New(context.Background(), config.RedisConfig{Address: mini.Addr()}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	conn := dbtest.Open(t)

	order := &models.Order{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Items: types.OrderItemSnapshots{
			{ProductID: uuid.New(), Quantity: 1, Price: decimal.RequireFromString("10.00")},
		},
		Subtotal: decimal.RequireFromString("10.00"),
		Total:    decimal.RequireFromString("10.00"),
		ShippingAddress: types.ShippingAddress{
			FullName: "Jordan Doe",
			Email:    "jordan@example.com",
			Address:  "1 Main St",
			City:     "Tulsa",
			State:    "OK",
			ZipCode:  "74104",
			Country:  "US",
		},
	}
	require.NoError(t, conn.Create(order).Error)

	cache, err := NewCache(store, time.Hour)
	require.NoError(t, err)
	repo := orders.NewRepository(conn)
	svc, err := NewService(cache, repo, testLogger())
	require.NoError(t, err)

	return &syncFixture{db: conn, redis: store, cache: cache, svc: svc, repo: repo, order: order}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestSetStatusWritesThroughAndDequeues(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SetStatus(ctx, f.order.ID, enums.OrderStatusShipped))

	var row models.Order
	require.NoError(t, f.db.First(&row, "id = ?", f.order.ID).Error)
	require.Equal(t, enums.OrderStatusShipped, row.Status)

	// Inline write succeeded, so nothing is left for the worker.
	pending, err := f.cache.Pending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	f := newSyncFixture(t)

	err := f.svc.SetStatus(context.Background(), f.order.ID, enums.OrderStatus("misplaced"))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestSetStatusUnknownOrder(t *testing.T) {
	f := newSyncFixture(t)

	err := f.svc.SetStatus(context.Background(), uuid.New(), enums.OrderStatusShipped)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestSetTrackingValidatesInput(t *testing.T) {
	f := newSyncFixture(t)

	err := f.svc.SetTracking(context.Background(), f.order.ID, "   ")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestOverrideVisibleBeforeDatabaseSync(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	status := enums.OrderStatusProcessing
	tracking := "1Z999AA10123456784"
	require.NoError(t, f.cache.Put(ctx, f.order.ID, orders.Override{Status: &status}))
	require.NoError(t, f.cache.Put(ctx, f.order.ID, orders.Override{TrackingNumber: &tracking}))

	// The second Put keeps the earlier status; writes merge field by field.
	override, err := f.cache.Get(ctx, f.order.ID)
	require.NoError(t, err)
	require.NotNil(t, override)
	require.NotNil(t, override.Status)
	require.Equal(t, status, *override.Status)
	require.NotNil(t, override.TrackingNumber)
	require.Equal(t, tracking, *override.TrackingNumber)

	readSvc, err := orders.NewService(f.repo, f.cache, testLogger())
	require.NoError(t, err)
	merged, err := readSvc.GetOrder(ctx, f.order.ID, f.order.UserID)
	require.NoError(t, err)
	require.Equal(t, status, merged.Status)
	require.NotNil(t, merged.TrackingNumber)
	require.Equal(t, tracking, *merged.TrackingNumber)

	// The database row is still untouched.
	var row models.Order
	require.NoError(t, f.db.First(&row, "id = ?", f.order.ID).Error)
	require.Equal(t, enums.OrderStatusPending, row.Status)
	require.Nil(t, row.TrackingNumber)
}

// downRepo answers every call with a connection error, as when the database
// is unreachable.
type downRepo struct{}

var errStoreDown = errors.New("dial tcp: connection refused")

func (downRepo) WithTx(*gorm.DB) orders.Repository { return downRepo{} }
func (downRepo) CreateOrder(context.Context, *models.Order) (*models.Order, error) {
	return nil, errStoreDown
}
func (downRepo) CreatePayment(context.Context, *models.Payment) (*models.Payment, error) {
	return nil, errStoreDown
}
func (downRepo) FindOrderByID(context.Context, uuid.UUID) (*models.Order, error) {
	return nil, errStoreDown
}
func (downRepo) FindOrdersByUser(context.Context, uuid.UUID) ([]models.Order, error) {
	return nil, errStoreDown
}
func (downRepo) ListAll(context.Context) ([]models.Order, error)           { return nil, errStoreDown }
func (downRepo) CountOrderItems(context.Context, uuid.UUID) (int64, error) { return 0, errStoreDown }
func (downRepo) CreateOrderItems(context.Context, []models.OrderItem) error {
	return errStoreDown
}
func (downRepo) ConfirmOrder(context.Context, uuid.UUID) error { return errStoreDown }
func (downRepo) CompletePayment(context.Context, uuid.UUID, string) error {
	return errStoreDown
}
func (downRepo) FailPaymentByOrder(context.Context, uuid.UUID, string) error {
	return errStoreDown
}
func (downRepo) UpdatePaymentMetadata(context.Context, uuid.UUID, types.JSONMap) error {
	return errStoreDown
}
func (downRepo) UpdateOrderStatus(context.Context, uuid.UUID, enums.OrderStatus) error {
	return errStoreDown
}
func (downRepo) UpdateTracking(context.Context, uuid.UUID, string) error { return errStoreDown }

func TestSetStatusSucceedsWhileStoreUnreachable(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	svc, err := NewService(f.cache, downRepo{}, testLogger())
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(ctx, f.order.ID, enums.OrderStatusShipped))

	// The caller saw success and the write is parked in the cache.
	override, err := f.cache.Get(ctx, f.order.ID)
	require.NoError(t, err)
	require.NotNil(t, override)
	require.NotNil(t, override.Status)
	require.Equal(t, enums.OrderStatusShipped, *override.Status)

	pending, err := f.cache.Pending(ctx)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{f.order.ID}, pending)

	// Reads report the override before the database recovers.
	readSvc, err := orders.NewService(f.repo, f.cache, testLogger())
	require.NoError(t, err)
	merged, err := readSvc.GetOrder(ctx, f.order.ID, f.order.UserID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusShipped, merged.Status)

	// Once the store is back the worker settles the backlog.
	worker, err := NewWorker(f.cache, f.repo, time.Second, testLogger(), nil)
	require.NoError(t, err)
	require.NoError(t, worker.Drain(ctx))

	var row models.Order
	require.NoError(t, f.db.First(&row, "id = ?", f.order.ID).Error)
	require.Equal(t, enums.OrderStatusShipped, row.Status)

	pending, err = f.cache.Pending(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestGetMissingOverrideReturnsNil(t *testing.T) {
	f := newSyncFixture(t)

	override, err := f.cache.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, override)
}
