package shipping

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emberline/storefront-backend/pkg/db/models"
	pkgerrors "github.com/emberline/storefront-backend/pkg/errors"
)

// Reader exposes the shipping rate read surface.
type Reader interface {
	ListRates(ctx context.Context) ([]models.ShippingRate, error)
	DefaultRate(ctx context.Context) (*models.ShippingRate, error)
	RateByID(ctx context.Context, id uuid.UUID) (*models.ShippingRate, error)
}

type service struct {
	repo *Repository
}

// NewService builds the shipping rate service.
func NewService(repo *Repository) (Reader, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipping repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListRates(ctx context.Context) ([]models.ShippingRate, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipping rates")
	}
	return rows, nil
}

func (s *service) DefaultRate(ctx context.Context) (*models.ShippingRate, error) {
	rate, err := s.repo.Default(ctx)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no default shipping rate configured")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load default shipping rate")
	}
	return rate, nil
}

func (s *service) RateByID(ctx context.Context, id uuid.UUID) (*models.ShippingRate, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping rate id required")
	}
	rate, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipping rate not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping rate")
	}
	return rate, nil
}
