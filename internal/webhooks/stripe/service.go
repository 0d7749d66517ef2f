package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/emberline/storefront-backend/internal/orders"
	"github.com/emberline/storefront-backend/pkg/db/models"
	pkgerrors "github.com/emberline/storefront-backend/pkg/errors"
	"github.com/emberline/storefront-backend/pkg/logger"
	"github.com/emberline/storefront-backend/pkg/metrics"
)

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type ServiceParams struct {
	// OrdersRepo must be bound to the elevated database tier; reconciliation
	// writes bypass row-level security.
	OrdersRepo orders.Repository
	Products   productLoader
	Logger     *logger.Logger
	Metrics    *metrics.ReconcileMetrics
}

// Service reconciles Stripe events against orders and payments.
type Service struct {
	orders   orders.Repository
	products productLoader
	logg     *logger.Logger
	metrics  *metrics.ReconcileMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product loader required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders:   params.OrdersRepo,
		products: params.Products,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// HandleEvent processes one verified Stripe event. Once the signature has
// checked out every outcome acknowledges the delivery: events that cannot be
// decoded or carry unusable metadata are logged and counted, never bounced,
// otherwise Stripe would redeliver them forever.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			s.skipEvent(ctx, event, fmt.Errorf("decode checkout session: %w", err))
			return nil
		}
		return s.reconcileCompletedSession(ctx, event, &session)
	case stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			s.skipEvent(ctx, event, fmt.Errorf("decode payment intent: %w", err))
			return nil
		}
		return s.reconcileFailedPayment(ctx, event, &intent)
	default:
		return nil
	}
}

// skipEvent records an event that passed signature verification but cannot be
// acted on, e.g. a session created outside this backend.
func (s *Service) skipEvent(ctx context.Context, event *stripe.Event, reason error) {
	s.metrics.IncStep("parse_event", "failure")
	s.logg.Warn(ctx, fmt.Sprintf("skipping stripe event %s (%s): %v", event.ID, event.Type, reason))
}

// reconcileCompletedSession runs the four reconciliation sub-steps. Each step
// can fail independently; failures are collected and logged but never
// short-circuit the others that can still run.
func (s *Service) reconcileCompletedSession(ctx context.Context, event *stripe.Event, session *stripe.CheckoutSession) error {
	orderID, paymentID, err := idsFromMetadata(session.Metadata)
	if err != nil {
		s.skipEvent(ctx, event, err)
		return nil
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	var stepErrs error

	itemCount, err := s.orders.CountOrderItems(ctx, orderID)
	if err != nil {
		stepErrs = multierr.Append(stepErrs, fmt.Errorf("count order items: %w", err))
		s.metrics.IncStep("count_items", "failure")
		// Backfilling without the count risks duplicate rows, so skip it.
		itemCount = -1
	} else {
		s.metrics.IncStep("count_items", "success")
	}

	if itemCount == 0 {
		if err := s.backfillItems(ctx, orderID); err != nil {
			stepErrs = multierr.Append(stepErrs, fmt.Errorf("backfill order items: %w", err))
			s.metrics.IncStep("backfill_items", "failure")
		} else {
			s.metrics.IncStep("backfill_items", "success")
		}
	}

	if err := s.orders.ConfirmOrder(ctx, orderID); err != nil {
		stepErrs = multierr.Append(stepErrs, fmt.Errorf("confirm order: %w", err))
		s.metrics.IncStep("confirm_order", "failure")
	} else {
		s.metrics.IncStep("confirm_order", "success")
	}

	var intentID string
	if session.PaymentIntent != nil {
		intentID = session.PaymentIntent.ID
	}
	if err := s.orders.CompletePayment(ctx, paymentID, intentID); err != nil {
		stepErrs = multierr.Append(stepErrs, fmt.Errorf("complete payment: %w", err))
		s.metrics.IncStep("complete_payment", "failure")
	} else {
		s.metrics.IncStep("complete_payment", "success")
	}

	if stepErrs != nil {
		s.logg.Error(ctx, fmt.Sprintf("reconciliation for order %s finished with errors", orderID), stepErrs)
	}
	return nil
}

// backfillItems materializes order_items rows from the order's snapshot,
// denormalizing each product's current catalog row. Snapshot entries whose
// product no longer exists are skipped.
func (s *Service) backfillItems(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orders.FindOrderByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if len(order.Items) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, snap := range order.Items {
		ids = append(ids, snap.ProductID)
	}
	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	items := make([]models.OrderItem, 0, len(order.Items))
	for _, snap := range order.Items {
		product, ok := catalog[snap.ProductID]
		if !ok {
			s.logg.Warn(ctx, fmt.Sprintf("snapshot product %s missing from catalog, skipping", snap.ProductID))
			continue
		}
		items = append(items, models.OrderItem{
			OrderID:            orderID,
			ProductID:          product.ID,
			ProductName:        product.Name,
			ProductDescription: product.Description,
			ImageURL:           product.ImageURL,
			Category:           product.Category,
			Quantity:           snap.Quantity,
			Price:              product.Price,
		})
	}
	return s.orders.CreateOrderItems(ctx, items)
}

func (s *Service) reconcileFailedPayment(ctx context.Context, event *stripe.Event, intent *stripe.PaymentIntent) error {
	raw, ok := intent.Metadata["order_id"]
	if !ok || raw == "" {
		s.skipEvent(ctx, event, pkgerrors.New(pkgerrors.CodeValidation, "order_id missing from payment intent metadata"))
		return nil
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		s.skipEvent(ctx, event, fmt.Errorf("parse order_id from payment intent metadata: %w", err))
		return nil
	}

	if err := s.orders.FailPaymentByOrder(ctx, orderID, intent.ID); err != nil {
		s.metrics.IncStep("fail_payment", "failure")
		s.logg.Error(ctx, fmt.Sprintf("mark payment failed for order %s", orderID), err)
		return nil
	}
	s.metrics.IncStep("fail_payment", "success")
	return nil
}

func idsFromMetadata(metadata map[string]string) (orderID, paymentID uuid.UUID, err error) {
	rawOrder, ok := metadata["order_id"]
	if !ok || rawOrder == "" {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id missing from session metadata")
	}
	rawPayment, ok := metadata["payment_id"]
	if !ok || rawPayment == "" {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_id missing from session metadata")
	}
	orderID, err = uuid.Parse(rawOrder)
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse order_id from session metadata")
	}
	paymentID, err = uuid.Parse(rawPayment)
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse payment_id from session metadata")
	}
	return orderID, paymentID, nil
}
