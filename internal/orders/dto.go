package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/emberline/storefront-backend/pkg/db/models"
	"github.com/emberline/storefront-backend/pkg/enums"
	"github.com/emberline/storefront-backend/pkg/types"
)

// OrderItemResponse is the wire shape of one normalized line.
type OrderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Quantity    int       `json:"quantity"`
	Price       string    `json:"price"`
}

// OrderResponse is the wire shape of an order.
type OrderResponse struct {
	ID              uuid.UUID                `json:"id"`
	UserID          uuid.UUID                `json:"user_id"`
	Status          enums.OrderStatus        `json:"status"`
	PaymentStatus   enums.PaymentStatus      `json:"payment_status"`
	Items           types.OrderItemSnapshots `json:"items"`
	OrderItems      []OrderItemResponse      `json:"order_items"`
	Subtotal        string                   `json:"subtotal"`
	Tax             string                   `json:"tax"`
	ShippingCost    string                   `json:"shipping_cost"`
	DiscountAmount  string                   `json:"discount_amount"`
	Total           string                   `json:"total"`
	ShippingAddress types.ShippingAddress    `json:"shipping_address"`
	TrackingNumber  *string                  `json:"tracking_number,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// ToOrderResponse maps a model onto the wire shape.
func ToOrderResponse(order *models.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		items = append(items, OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ImageURL:    item.ImageURL,
			Category:    item.Category,
			Quantity:    item.Quantity,
			Price:       item.Price.StringFixed(2),
		})
	}
	return OrderResponse{
		ID:              order.ID,
		UserID:          order.UserID,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		Items:           order.Items,
		OrderItems:      items,
		Subtotal:        order.Subtotal.StringFixed(2),
		Tax:             order.Tax.StringFixed(2),
		ShippingCost:    order.ShippingCost.StringFixed(2),
		DiscountAmount:  order.DiscountAmount.StringFixed(2),
		Total:           order.Total.StringFixed(2),
		ShippingAddress: order.ShippingAddress,
		TrackingNumber:  order.TrackingNumber,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

// ToOrderResponses maps a slice of orders.
func ToOrderResponses(rows []models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(rows))
	for i := range rows {
		out = append(out, ToOrderResponse(&rows[i]))
	}
	return out
}
