package discounts

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emberline/storefront-backend/pkg/db"
)

// RemoteResult is the row returned by the apply_discount database function.
type RemoteResult struct {
	Valid          bool            `gorm:"column:valid"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount"`
	Message        string          `gorm:"column:message"`
}

// Remote evaluates persisted discount codes.
type Remote interface {
	Apply(ctx context.Context, code string, subtotal decimal.Decimal) (*RemoteResult, error)
	FindCodeID(ctx context.Context, code string) (*uuid.UUID, error)
}

type remoteRPC struct {
	db *db.Client
}

// NewRemote builds the remote evaluator on the elevated database tier. The
// apply_discount function increments usage counts, which the restricted tier
// is not allowed to do.
func NewRemote(client *db.Client) Remote {
	return &remoteRPC{db: client}
}

func (r *remoteRPC) Apply(ctx context.Context, code string, subtotal decimal.Decimal) (*RemoteResult, error) {
	var result RemoteResult
	err := r.db.Raw(ctx, "SELECT * FROM apply_discount(?, ?)", code, subtotal).
		Scan(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *remoteRPC) FindCodeID(ctx context.Context, code string) (*uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.Raw(ctx, "SELECT id FROM discount_codes WHERE code = ?", code).
		Scan(&id).Error
	if err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, nil
	}
	return &id, nil
}
