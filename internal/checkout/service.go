package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/emberline/storefront-backend/internal/discounts"
	"github.com/emberline/storefront-backend/internal/orders"
	"github.com/emberline/storefront-backend/pkg/db/models"
	pkgerrors "github.com/emberline/storefront-backend/pkg/errors"
	"github.com/emberline/storefront-backend/pkg/logger"
	"github.com/emberline/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type rateLoader interface {
	DefaultRate(ctx context.Context) (*models.ShippingRate, error)
	RateByID(ctx context.Context, id uuid.UUID) (*models.ShippingRate, error)
}

type sessionCreator interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

// CartItem is one line of the submitted cart.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// Input carries everything needed to execute a checkout.
type Input struct {
	UserID          uuid.UUID
	Items           []CartItem
	ShippingAddress types.ShippingAddress
	ShippingRateID  *uuid.UUID
	DiscountCode    string
}

// Result is returned to the caller so the storefront can redirect to Stripe.
type Result struct {
	OrderID   uuid.UUID `json:"order_id"`
	PaymentID uuid.UUID `json:"payment_id"`
	SessionID string    `json:"session_id"`
	URL       string    `json:"url"`
}

// Config carries the checkout knobs resolved from the environment.
type Config struct {
	TaxRate    decimal.Decimal
	Currency   string
	SuccessURL string
	CancelURL  string
}

// Service executes the checkout orchestration.
type Service interface {
	Execute(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	tx        txRunner
	orders    orders.Repository
	products  productLoader
	rates     rateLoader
	discounts discounts.Service
	sessions  sessionCreator
	cfg       Config
	logg      *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	ordersRepo orders.Repository,
	products productLoader,
	rates rateLoader,
	discountSvc discounts.Service,
	sessions sessionCreator,
	cfg Config,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if rates == nil {
		return nil, fmt.Errorf("rate loader required")
	}
	if discountSvc == nil {
		return nil, fmt.Errorf("discount service required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session creator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:        tx,
		orders:    ordersRepo,
		products:  products,
		rates:     rates,
		discounts: discountSvc,
		sessions:  sessions,
		cfg:       cfg,
		logg:      logg,
	}, nil
}

func (s *service) Execute(ctx context.Context, input Input) (*Result, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains no items")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart items require a product id and a positive quantity")
		}
	}
	if input.ShippingAddress.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.ProductID)
	}
	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}

	snapshots := make(types.OrderItemSnapshots, 0, len(input.Items))
	lines := make([]cartLine, 0, len(input.Items))
	subtotal := decimal.Zero
	for _, item := range input.Items {
		product, ok := catalog[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("product %s not found", item.ProductID))
		}
		snapshots = append(snapshots, types.OrderItemSnapshot{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
		lines = append(lines, cartLine{
			Name:            product.Name,
			Quantity:        int64(item.Quantity),
			UnitAmountCents: toCents(product.Price),
		})
		subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	var applied *discounts.Applied
	if input.DiscountCode != "" {
		applied, err = s.discounts.Evaluate(ctx, input.DiscountCode, subtotal)
		if err != nil {
			return nil, err
		}
	}

	rate, err := s.resolveRate(ctx, input.ShippingRateID)
	if err != nil {
		return nil, err
	}

	tax := subtotal.Mul(s.cfg.TaxRate).Round(2)
	discountAmount := decimal.Zero
	var discountCode string
	var discountCodeID *uuid.UUID
	if applied != nil {
		discountAmount = applied.Amount
		discountCode = applied.Code
		discountCodeID = applied.CodeID
	}
	total := subtotal.Add(tax).Add(rate.Cost).Sub(discountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	order := &models.Order{
		UserID:          input.UserID,
		Items:           snapshots,
		Subtotal:        subtotal,
		Tax:             tax,
		ShippingCost:    rate.Cost,
		DiscountAmount:  discountAmount,
		Total:           total,
		ShippingAddress: input.ShippingAddress,
		ShippingRateID:  &rate.ID,
		DiscountCodeID:  discountCodeID,
	}
	payment := &models.Payment{
		UserID:   input.UserID,
		Amount:   total,
		Currency: s.cfg.Currency,
		Metadata: types.JSONMap{
			"discount_code":   discountCode,
			"discount_amount": discountAmount.StringFixed(2),
			"order_items":     snapshots,
		},
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		created, err := repo.CreateOrder(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		payment.OrderID = created.ID
		if _, err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session, err := s.createSession(ctx, order, payment, lines, discountAmount, discountCode, tax, rate.Cost)
	if err != nil {
		// Order and payment stay pending; nothing to roll back.
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	payment.Metadata["session_id"] = session.ID
	if err := s.orders.UpdatePaymentMetadata(ctx, payment.ID, payment.Metadata); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("write session id to payment %s: %v", payment.ID, err))
	}

	return &Result{
		OrderID:   order.ID,
		PaymentID: payment.ID,
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}

func (s *service) resolveRate(ctx context.Context, rateID *uuid.UUID) (*models.ShippingRate, error) {
	if rateID != nil {
		return s.rates.RateByID(ctx, *rateID)
	}
	return s.rates.DefaultRate(ctx)
}

func (s *service) createSession(
	ctx context.Context,
	order *models.Order,
	payment *models.Payment,
	lines []cartLine,
	discountAmount decimal.Decimal,
	discountCode string,
	tax decimal.Decimal,
	shippingCost decimal.Decimal,
) (*stripe.CheckoutSession, error) {
	items := buildSessionLineItems(lines, toCents(discountAmount), discountCode, tax, shippingCost, s.cfg.Currency)

	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  items,
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
		Metadata: map[string]string{
			"order_id":        order.ID.String(),
			"user_id":         order.UserID.String(),
			"payment_id":      payment.ID.String(),
			"discount_code":   discountCode,
			"discount_amount": discountAmount.StringFixed(2),
		},
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: map[string]string{
				"order_id":   order.ID.String(),
				"payment_id": payment.ID.String(),
			},
		},
	}
	return s.sessions.CreateCheckoutSession(ctx, params)
}
