package discounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emberline/storefront-backend/pkg/enums"
	pkgerrors "github.com/emberline/storefront-backend/pkg/errors"
	"github.com/emberline/storefront-backend/pkg/logger"
)

// Applied is the outcome of a successful discount evaluation.
type Applied struct {
	Code   string
	Type   enums.DiscountType
	Amount decimal.Decimal
	// CodeID is set only when the code resolves to a persisted row.
	CodeID *uuid.UUID
}

// Service evaluates discount codes against a cart subtotal.
type Service interface {
	Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*Applied, error)
}

type service struct {
	remote Remote
	logg   *logger.Logger
}

// NewService builds the discount evaluator.
func NewService(remote Remote, logg *logger.Logger) (Service, error) {
	if remote == nil {
		return nil, fmt.Errorf("remote discount evaluator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{remote: remote, logg: logg}, nil
}

// Evaluate normalizes the code, consults the static table first, and falls
// back to the persisted apply_discount function. The static path has no
// usage-count side effects.
func (s *service) Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*Applied, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code required")
	}
	if subtotal.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must not be negative")
	}

	if static, ok := staticCodes[normalized]; ok {
		return evaluateStatic(static, subtotal)
	}

	result, err := s.remote.Apply(ctx, normalized, subtotal)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply discount")
	}
	if !result.Valid {
		if strings.Contains(result.Message, "Minimum purchase") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, result.Message)
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, result.Message)
	}

	applied := &Applied{
		Code:   normalized,
		Amount: result.DiscountAmount,
	}
	codeID, err := s.remote.FindCodeID(ctx, normalized)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("resolve discount code id for %s: %v", normalized, err))
	} else {
		applied.CodeID = codeID
	}
	return applied, nil
}

func evaluateStatic(code staticCode, subtotal decimal.Decimal) (*Applied, error) {
	if code.MinPurchase.IsPositive() && subtotal.LessThan(code.MinPurchase) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("Minimum purchase of $%s required", code.MinPurchase.StringFixed(2)))
	}

	var amount decimal.Decimal
	switch code.Type {
	case enums.DiscountTypePercentage:
		amount = subtotal.Mul(code.Value).Div(decimal.NewFromInt(100)).Round(2)
		if code.MaxDiscount.IsPositive() && amount.GreaterThan(code.MaxDiscount) {
			amount = code.MaxDiscount
		}
	default:
		amount = code.Value
	}

	return &Applied{
		Code:   code.Code,
		Type:   code.Type,
		Amount: amount,
	}, nil
}
