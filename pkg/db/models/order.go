package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emberline/storefront-backend/pkg/enums"
	"github.com/emberline/storefront-backend/pkg/types"
)

// Order is the customer purchase record. Items carries the denormalized
// checkout-time snapshot; normalized OrderItems rows are backfilled by the
// webhook reconciler after payment completes.
type Order struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID                `gorm:"column:user_id;type:uuid;not null"`
	Status          enums.OrderStatus        `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus      `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	Items           types.OrderItemSnapshots `gorm:"column:items;type:jsonb;serializer:json;not null"`
	Subtotal        decimal.Decimal          `gorm:"column:subtotal;type:numeric(10,2);not null"`
	Tax             decimal.Decimal          `gorm:"column:tax;type:numeric(10,2);not null"`
	ShippingCost    decimal.Decimal          `gorm:"column:shipping_cost;type:numeric(10,2);not null"`
	DiscountAmount  decimal.Decimal          `gorm:"column:discount_amount;type:numeric(10,2);not null;default:0"`
	Total           decimal.Decimal          `gorm:"column:total;type:numeric(10,2);not null"`
	ShippingAddress types.ShippingAddress    `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	ShippingRateID  *uuid.UUID               `gorm:"column:shipping_rate_id;type:uuid"`
	DiscountCodeID  *uuid.UUID               `gorm:"column:discount_code_id;type:uuid"`
	TrackingNumber  *string                  `gorm:"column:tracking_number"`
	OrderItems      []OrderItem              `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
