package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/emberline/storefront-backend/internal/orders"
	product "github.com/emberline/storefront-backend/internal/products"
	"github.com/emberline/storefront-backend/pkg/db/dbtest"
	"github.com/emberline/storefront-backend/pkg/db/models"
	"github.com/emberline/storefront-backend/pkg/enums"
	"github.com/emberline/storefront-backend/pkg/logger"
	"github.com/emberline/storefront-backend/pkg/types"
)

type reconcileFixture struct {
	db      *gorm.DB
	svc     *Service
	product *models.Product
	order   *models.Order
	payment *models.Payment
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	conn := dbtest.Open(t)

	prod := &models.Product{
		ID:    uuid.New(),
		Name:  "Widget",
		Price: decimal.RequireFromString("54.99"),
		Stock: 5,
	}
	require.NoError(t, conn.Create(prod).Error)

	userID := uuid.New()
	order := &models.Order{
		ID:     uuid.New(),
		UserID: userID,
		Items: types.OrderItemSnapshots{
			{ProductID: prod.ID, Quantity: 2, Price: prod.Price},
		},
		Subtotal: decimal.RequireFromString("109.98"),
		Total:    decimal.RequireFromString("109.98"),
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

	payment := &models.Payment{
		ID:       uuid.New(),
		OrderID:  order.ID,
		UserID:   userID,
		Amount:   order.Total,
		Currency: "usd",
		Metadata: types.JSONMap{"session_id": "cs_test_123"},
	}
	require.NoError(t, conn.Create(payment).Error)

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(ServiceParams{
		OrdersRepo: orders.NewRepository(conn),
		Products:   product.NewRepository(conn),
		Logger:     logg,
	})
	require.NoError(t, err)

	return &reconcileFixture{db: conn, svc: svc, product: prod, order: order, payment: payment}
}

func (f *reconcileFixture) completedEvent(t *testing.T, metadata map[string]string) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":             "cs_test_123",
		"payment_intent": map[string]any{"id": "pi_test_456"},
		"metadata":       metadata,
	})
	require.NoError(t, err)
	return &stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	}
}

func (f *reconcileFixture) sessionMetadata() map[string]string {
	return map[string]string{
		"order_id":   f.order.ID.String(),
		"user_id":    f.order.UserID.String(),
		"payment_id": f.payment.ID.String(),
	}
}

func TestHandleEventCompletedSessionReconciles(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleEvent(ctx, f.completedEvent(t, f.sessionMetadata())))

	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", f.order.ID).Error)
	require.Equal(t, enums.OrderStatusConfirmed, order.Status)
	require.Equal(t, enums.PaymentStatusCompleted, order.PaymentStatus)

	var payment models.Payment
	require.NoError(t, f.db.First(&payment, "id = ?", f.payment.ID).Error)
	require.Equal(t, enums.PaymentStatusCompleted, payment.Status)
	require.NotNil(t, payment.PaymentIntentID)
	require.Equal(t, "pi_test_456", *payment.PaymentIntentID)

	var items []models.OrderItem
	require.NoError(t, f.db.Find(&items, "order_id = ?", f.order.ID).Error)
	require.Len(t, items, 1)
	require.Equal(t, f.product.ID, items[0].ProductID)
	require.Equal(t, "Widget", items[0].ProductName)
	require.Equal(t, 2, items[0].Quantity)
	require.True(t, items[0].Price.Equal(f.product.Price))
}

func TestHandleEventIsIdempotentOnRedelivery(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleEvent(ctx, f.completedEvent(t, f.sessionMetadata())))
	require.NoError(t, f.svc.HandleEvent(ctx, f.completedEvent(t, f.sessionMetadata())))

	var count int64
	require.NoError(t, f.db.Model(&models.OrderItem{}).Where("order_id = ?", f.order.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", f.order.ID).Error)
	require.Equal(t, enums.OrderStatusConfirmed, order.Status)
}

func TestHandleEventBackfillUsesCurrentCatalogRow(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()

	// The product changed between checkout and webhook delivery; the
	// denormalized row reflects the catalog as it is now.
	require.NoError(t, f.db.Model(&models.Product{}).
		Where("id = ?", f.product.ID).
		Updates(map[string]any{"name": "Widget v2", "price": "59.99"}).Error)

	require.NoError(t, f.svc.HandleEvent(ctx, f.completedEvent(t, f.sessionMetadata())))

	var item models.OrderItem
	require.NoError(t, f.db.First(&item, "order_id = ?", f.order.ID).Error)
	require.Equal(t, "Widget v2", item.ProductName)
	require.True(t, item.Price.Equal(decimal.RequireFromString("59.99")))
}

func TestHandleEventContinuesPastFailedBackfill(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()

	// Snapshot points at a product that no longer exists; the backfill skips
	// it but the order and payment are still reconciled.
	require.NoError(t, f.db.Delete(&models.Product{}, "id = ?", f.product.ID).Error)

	require.NoError(t, f.svc.HandleEvent(ctx, f.completedEvent(t, f.sessionMetadata())))

	var itemCount int64
	require.NoError(t, f.db.Model(&models.OrderItem{}).Where("order_id = ?", f.order.ID).Count(&itemCount).Error)
	require.Zero(t, itemCount)

	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", f.order.ID).Error)
	require.Equal(t, enums.OrderStatusConfirmed, order.Status)

	var payment models.Payment
	require.NoError(t, f.db.First(&payment, "id = ?", f.payment.ID).Error)
	require.Equal(t, enums.PaymentStatusCompleted, payment.Status)
}

func TestHandleEventAbsorbsBadMetadata(t *testing.T) {
	f := newReconcileFixture(t)

	// Sessions created outside this backend carry no usable metadata. The
	// event is still acknowledged so the provider stops redelivering it.
	for _, metadata := range []map[string]string{
		{},
		{"order_id": f.order.ID.String()},
		{"order_id": "not-a-uuid", "payment_id": f.payment.ID.String()},
	} {
		err := f.svc.HandleEvent(context.Background(), f.completedEvent(t, metadata))
		require.NoError(t, err, fmt.Sprintf("metadata %v", metadata))
	}

	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", f.order.ID).Error)
	require.Equal(t, enums.OrderStatusPending, order.Status)
}

func TestHandleEventPaymentFailed(t *testing.T) {
	f := newReconcileFixture(t)
	ctx := context.Background()

	raw, err := json.Marshal(map[string]any{
		"id":       "pi_test_456",
		"metadata": map[string]string{"order_id": f.order.ID.String(), "payment_id": f.payment.ID.String()},
	})
	require.NoError(t, err)
	event := &stripe.Event{
		ID:   "evt_2",
		Type: stripe.EventTypePaymentIntentPaymentFailed,
		Data: &stripe.EventData{Raw: raw},
	}

	require.NoError(t, f.svc.HandleEvent(ctx, event))

	var payment models.Payment
	require.NoError(t, f.db.First(&payment, "id = ?", f.payment.ID).Error)
	require.Equal(t, enums.PaymentStatusFailed, payment.Status)
	require.NotNil(t, payment.PaymentIntentID)
	require.Equal(t, "pi_test_456", *payment.PaymentIntentID)

	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", f.order.ID).Error)
	require.Equal(t, enums.PaymentStatusFailed, order.PaymentStatus)
	require.Equal(t, enums.OrderStatusPending, order.Status)
}

func TestHandleEventIgnoresUnknownTypes(t *testing.T) {
	f := newReconcileFixture(t)
	event := &stripe.Event{
		ID:   "evt_3",
		Type: "customer.created",
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	require.NoError(t, f.svc.HandleEvent(context.Background(), event))
}
