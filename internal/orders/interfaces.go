package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emberline/storefront-backend/pkg/db/models"
	"github.com/emberline/storefront-backend/pkg/enums"
	"github.com/emberline/storefront-backend/pkg/types"
)

// Repository defines order/payment persistence shared by checkout, the
// webhook reconciler, and the admin sync worker.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)

	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)

	CountOrderItems(ctx context.Context, orderID uuid.UUID) (int64, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error

	ConfirmOrder(ctx context.Context, orderID uuid.UUID) error
	CompletePayment(ctx context.Context, paymentID uuid.UUID, intentID string) error
	FailPaymentByOrder(ctx context.Context, orderID uuid.UUID, intentID string) error
	UpdatePaymentMetadata(ctx context.Context, paymentID uuid.UUID, metadata types.JSONMap) error

	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	UpdateTracking(ctx context.Context, orderID uuid.UUID, trackingNumber string) error
}
