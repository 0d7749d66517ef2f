package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emberline/storefront-backend/pkg/db/models"
	"github.com/emberline/storefront-backend/pkg/enums"
	pkgerrors "github.com/emberline/storefront-backend/pkg/errors"
	"github.com/emberline/storefront-backend/pkg/logger"
)

// Override is a locally-written admin change that has not necessarily reached
// the database yet. Reads prefer it over the persisted row.
type Override struct {
	Status         *enums.OrderStatus
	TrackingNumber *string
}

// OverrideSource looks up pending admin overrides by order id.
type OverrideSource interface {
	Get(ctx context.Context, orderID uuid.UUID) (*Override, error)
}

// Service exposes override-merged order reads.
type Service interface {
	GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListAllOrders(ctx context.Context) ([]models.Order, error)
}

type service struct {
	repo      Repository
	overrides OverrideSource
	logg      *logger.Logger
}

// NewService builds the order read service.
func NewService(repo Repository, overrides OverrideSource, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if overrides == nil {
		return nil, fmt.Errorf("override source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, overrides: overrides, logg: logg}, nil
}

func (s *service) GetOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	s.merge(ctx, order)
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.FindOrdersByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	for i := range rows {
		s.merge(ctx, &rows[i])
	}
	return rows, nil
}

func (s *service) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list all orders")
	}
	for i := range rows {
		s.merge(ctx, &rows[i])
	}
	return rows, nil
}

// merge applies any pending admin override on top of the persisted row. A
// failing override lookup degrades to the persisted state.
func (s *service) merge(ctx context.Context, order *models.Order) {
	override, err := s.overrides.Get(ctx, order.ID)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("override lookup for order %s: %v", order.ID, err))
		return
	}
	if override == nil {
		return
	}
	if override.Status != nil {
		order.Status = *override.Status
	}
	if override.TrackingNumber != nil {
		order.TrackingNumber = override.TrackingNumber
	}
}
