package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/emberline/storefront-backend/api/middleware"
	"github.com/emberline/storefront-backend/api/responses"
	"github.com/emberline/storefront-backend/api/validators"
	"github.com/emberline/storefront-backend/internal/checkout"
	pkgerrors "github.com/emberline/storefront-backend/pkg/errors"
	"github.com/emberline/storefront-backend/pkg/logger"
	"github.com/emberline/storefront-backend/pkg/types"
)

type checkoutItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type checkoutRequest struct {
	Items           []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.ShippingAddress `json:"shipping_address" validate:"required"`
	ShippingRateID  *string               `json:"shipping_rate_id,omitempty"`
	DiscountCode    string                `json:"discount_code,omitempty"`
}

func (r checkoutRequest) toInput(userID uuid.UUID) (checkout.Input, error) {
	items := make([]checkout.CartItem, 0, len(r.Items))
	for _, item := range r.Items {
		productID, err := uuid.Parse(strings.TrimSpace(item.ProductID))
		if err != nil {
			return checkout.Input{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		items = append(items, checkout.CartItem{ProductID: productID, Quantity: item.Quantity})
	}

	var rateID *uuid.UUID
	if r.ShippingRateID != nil && strings.TrimSpace(*r.ShippingRateID) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(*r.ShippingRateID))
		if err != nil {
			return checkout.Input{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping rate id")
		}
		rateID = &parsed
	}

	return checkout.Input{
		UserID:          userID,
		Items:           items,
		ShippingAddress: r.ShippingAddress,
		ShippingRateID:  rateID,
		DiscountCode:    strings.TrimSpace(r.DiscountCode),
	}, nil
}

// Checkout creates the pending order and payment and returns the Stripe
// session the storefront should redirect to.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
