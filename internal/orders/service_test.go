package orders

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/emberline/storefront-backend/pkg/enums"
	pkgerrors "github.com/emberline/storefront-backend/pkg/errors"
	"github.com/emberline/storefront-backend/pkg/logger"
)

type stubOverrides struct {
	byOrder map[uuid.UUID]*Override
	err     error
}

func (s *stubOverrides) Get(ctx context.Context, orderID uuid.UUID) (*Override, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byOrder[orderID], nil
}

func newTestService(t *testing.T, repo Repository, overrides OverrideSource) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(repo, overrides, logg)
	require.NoError(t, err)
	return svc
}

func TestGetOrderEnforcesOwnership(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc := newTestService(t, repo, &stubOverrides{})
	ctx := context.Background()

	userID := uuid.New()
	order := mustCreateOrder(t, db, userID)

	found, err := svc.GetOrder(ctx, order.ID, userID)
	require.NoError(t, err)
	require.Equal(t, order.ID, found.ID)

	_, err = svc.GetOrder(ctx, order.ID, uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	_, err = svc.GetOrder(ctx, uuid.New(), userID)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestReadsPreferOverrides(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	order := mustCreateOrder(t, db, userID)

	shipped := enums.OrderStatusShipped
	tracking := "TRACK-99"
	overrides := &stubOverrides{byOrder: map[uuid.UUID]*Override{
		order.ID: {Status: &shipped, TrackingNumber: &tracking},
	}}
	svc := newTestService(t, repo, overrides)

	found, err := svc.GetOrder(ctx, order.ID, userID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusShipped, found.Status)
	require.NotNil(t, found.TrackingNumber)
	require.Equal(t, "TRACK-99", *found.TrackingNumber)

	rows, err := svc.ListOrders(ctx, userID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, enums.OrderStatusShipped, rows[0].Status)
}

func TestOverrideLookupFailureDegradesToPersisted(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	svc := newTestService(t, repo, &stubOverrides{err: errors.New("redis down")})
	ctx := context.Background()

	userID := uuid.New()
	order := mustCreateOrder(t, db, userID)

	found, err := svc.GetOrder(ctx, order.ID, userID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPending, found.Status)
}

func TestListAllOrdersMerges(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	a := mustCreateOrder(t, db, uuid.New())
	mustCreateOrder(t, db, uuid.New())

	cancelled := enums.OrderStatusCancelled
	svc := newTestService(t, repo, &stubOverrides{byOrder: map[uuid.UUID]*Override{
		a.ID: {Status: &cancelled},
	}})

	rows, err := svc.ListAllOrders(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		if row.ID == a.ID {
			require.Equal(t, enums.OrderStatusCancelled, row.Status)
		} else {
			require.Equal(t, enums.OrderStatusPending, row.Status)
		}
	}
}
