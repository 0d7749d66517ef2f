package adminsync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emberline/storefront-backend/internal/orders"
	"github.com/emberline/storefront-backend/pkg/enums"
	pkgerrors "github.com/emberline/storefront-backend/pkg/errors"
	"github.com/emberline/storefront-backend/pkg/logger"
)

// Service accepts admin order mutations. Changes are written ahead to the
// override cache so reads reflect them immediately; the database write is
// attempted inline but a failure only delays durability until the sync worker
// catches up.
type Service interface {
	SetStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	SetTracking(ctx context.Context, orderID uuid.UUID, trackingNumber string) error
}

type service struct {
	cache *Cache
	repo  orders.Repository
	logg  *logger.Logger
}

// NewService builds the admin sync service. The repository must be bound to
// the elevated database tier.
func NewService(cache *Cache, repo orders.Repository, logg *logger.Logger) (Service, error) {
	if cache == nil {
		return nil, fmt.Errorf("override cache required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{cache: cache, repo: repo, logg: logg}, nil
}

func (s *service) SetStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", status))
	}
	if err := s.ensureOrderExists(ctx, orderID); err != nil {
		return err
	}
	if err := s.cache.Put(ctx, orderID, orders.Override{Status: &status}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache status override")
	}

	if err := s.repo.UpdateOrderStatus(ctx, orderID, status); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("inline status sync for order %s failed, left for worker: %v", orderID, err))
		return nil
	}
	s.dequeue(ctx, orderID)
	return nil
}

func (s *service) SetTracking(ctx context.Context, orderID uuid.UUID, trackingNumber string) error {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tracking number required")
	}
	if err := s.ensureOrderExists(ctx, orderID); err != nil {
		return err
	}
	if err := s.cache.Put(ctx, orderID, orders.Override{TrackingNumber: &trackingNumber}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache tracking override")
	}

	if err := s.repo.UpdateTracking(ctx, orderID, trackingNumber); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("inline tracking sync for order %s failed, left for worker: %v", orderID, err))
		return nil
	}
	s.dequeue(ctx, orderID)
	return nil
}

// ensureOrderExists rejects writes against orders the store definitively does
// not have. When the store cannot answer at all the write still proceeds: the
// override lands in the cache and the sync worker settles it later.
func (s *service) ensureOrderExists(ctx context.Context, orderID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	_, err := s.repo.FindOrderByID(ctx, orderID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	default:
		s.logg.Warn(ctx, fmt.Sprintf("existence check for order %s skipped, store unreachable: %v", orderID, err))
		return nil
	}
}

// dequeue clears the override after a successful inline write. The database
// now holds the value, so losing the cache entry changes nothing for readers.
func (s *service) dequeue(ctx context.Context, orderID uuid.UUID) {
	if err := s.cache.Dequeue(ctx, orderID); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("dequeue order %s after inline sync: %v", orderID, err))
	}
}
