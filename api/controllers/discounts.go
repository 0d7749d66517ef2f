package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/emberline/storefront-backend/api/responses"
	"github.com/emberline/storefront-backend/api/validators"
	"github.com/emberline/storefront-backend/internal/discounts"
	pkgerrors "github.com/emberline/storefront-backend/pkg/errors"
	"github.com/emberline/storefront-backend/pkg/logger"
)

type applyDiscountRequest struct {
	Code     string `json:"code" validate:"required"`
	Subtotal string `json:"subtotal" validate:"required"`
}

type applyDiscountResponse struct {
	Code           string `json:"code"`
	Type           string `json:"type,omitempty"`
	DiscountAmount string `json:"discount_amount"`
}

// ApplyDiscount evaluates a code against a subtotal without creating an order.
func ApplyDiscount(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
			return
		}

		var payload applyDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subtotal, err := decimal.NewFromString(payload.Subtotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid subtotal"))
			return
		}

		applied, err := svc.Evaluate(r.Context(), payload.Code, subtotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, applyDiscountResponse{
			Code:           applied.Code,
			Type:           applied.Type.String(),
			DiscountAmount: applied.Amount.StringFixed(2),
		})
	}
}
