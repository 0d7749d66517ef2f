package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItemSnapshot is one entry of the denormalized item list embedded in an
// order at checkout time. Only the identity, quantity, and price at purchase
// are captured; the rest of the product data is backfilled later into
// normalized order_items rows.
type OrderItemSnapshot struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderItemSnapshots is the JSONB-serialized collection on the orders table.
type OrderItemSnapshots []OrderItemSnapshot
