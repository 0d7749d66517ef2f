package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emberline/storefront-backend/pkg/enums"
)

// DiscountCode is one promotional code row. Code is stored upper-cased.
type DiscountCode struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code              string             `gorm:"column:code;not null;uniqueIndex:idx_discount_codes_code"`
	Description       *string            `gorm:"column:description"`
	Type              enums.DiscountType `gorm:"column:type;type:discount_type;not null"`
	Value             decimal.Decimal    `gorm:"column:value;type:numeric(10,2);not null"`
	MinPurchase       *decimal.Decimal   `gorm:"column:min_purchase;type:numeric(10,2)"`
	MaxDiscountAmount *decimal.Decimal   `gorm:"column:max_discount_amount;type:numeric(10,2)"`
	StartsAt          *time.Time         `gorm:"column:starts_at"`
	EndsAt            *time.Time         `gorm:"column:ends_at"`
	UsageLimit        *int               `gorm:"column:usage_limit"`
	UsageCount        int                `gorm:"column:usage_count;not null;default:0"`
	IsActive          bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
