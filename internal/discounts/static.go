package discounts

import (
	"github.com/shopspring/decimal"

	"github.com/emberline/storefront-backend/pkg/enums"
)

// staticCode is a promotion that ships with the service and is evaluated
// without touching the database. The persisted discount_codes table is only
// consulted when the code is not in this table.
type staticCode struct {
	Code        string
	Type        enums.DiscountType
	Value       decimal.Decimal
	MinPurchase decimal.Decimal
	MaxDiscount decimal.Decimal
}

var staticCodes = map[string]staticCode{
	"WELCOME10": {
		Code:        "WELCOME10",
		Type:        enums.DiscountTypePercentage,
		Value:       decimal.NewFromInt(10),
		MaxDiscount: decimal.NewFromInt(100),
	},
	"SUMMER25": {
		Code:        "SUMMER25",
		Type:        enums.DiscountTypePercentage,
		Value:       decimal.NewFromInt(25),
		MinPurchase: decimal.NewFromInt(50),
		MaxDiscount: decimal.NewFromInt(200),
	},
	"FREESHIP": {
		Code:  "FREESHIP",
		Type:  enums.DiscountTypeFixedAmount,
		Value: decimal.NewFromInt(15),
	},
}
