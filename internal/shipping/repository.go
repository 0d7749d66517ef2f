package shipping

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emberline/storefront-backend/pkg/db/models"
)

// Repository wires shipping rate persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns every shipping rate, cheapest first.
func (r *Repository) List(ctx context.Context) ([]models.ShippingRate, error) {
	var rows []models.ShippingRate
	err := r.db.WithContext(ctx).
		Order("cost ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByID loads a single shipping rate.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ShippingRate, error) {
	var rate models.ShippingRate
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// Default returns the rate flagged as default. When several rows carry the
// flag the cheapest one wins.
func (r *Repository) Default(ctx context.Context) (*models.ShippingRate, error) {
	var rate models.ShippingRate
	err := r.db.WithContext(ctx).
		Where("is_default = ?", true).
		Order("cost ASC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}
