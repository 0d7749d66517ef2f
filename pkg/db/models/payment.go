package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emberline/storefront-backend/pkg/enums"
	"github.com/emberline/storefront-backend/pkg/types"
)

// Payment tracks one payment attempt for an order. Metadata carries the
// Stripe session id, discount details, and the serialized cart.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency        string              `gorm:"column:currency;not null;default:'usd'"`
	PaymentMethod   string              `gorm:"column:payment_method;not null;default:'stripe'"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	PaymentIntentID *string             `gorm:"column:payment_intent_id"`
	Metadata        types.JSONMap       `gorm:"column:metadata;type:jsonb"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
