package adminsync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/emberline/storefront-backend/internal/orders"
	"github.com/emberline/storefront-backend/pkg/logger"
	"github.com/emberline/storefront-backend/pkg/metrics"
)

const syncJobName = "admin_order_sync"

// Worker periodically flushes cached admin overrides into the database.
type Worker struct {
	cache    *Cache
	repo     orders.Repository
	logg     *logger.Logger
	metrics  *metrics.SyncJobMetrics
	interval time.Duration
}

// NewWorker builds the sync worker. The repository must be bound to the
// elevated database tier.
func NewWorker(
	cache *Cache,
	repo orders.Repository,
	interval time.Duration,
	logg *logger.Logger,
	syncMetrics *metrics.SyncJobMetrics,
) (*Worker, error) {
	if cache == nil {
		return nil, fmt.Errorf("override cache required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Worker{
		cache:    cache,
		repo:     repo,
		logg:     logg,
		metrics:  syncMetrics,
		interval: interval,
	}, nil
}

// Run drains the pending set on every tick until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logg.Info(ctx, fmt.Sprintf("admin sync worker started, interval %s", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "admin sync worker stopped")
			return
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.logg.Error(ctx, "admin sync drain finished with errors", err)
			}
		}
	}
}

// Drain flushes every pending override to the database. Orders that fail stay
// in the pending set for the next pass.
func (w *Worker) Drain(ctx context.Context) error {
	started := time.Now()
	defer func() {
		w.metrics.ObserveDuration(syncJobName, time.Since(started))
	}()

	pending, err := w.cache.Pending(ctx)
	if err != nil {
		w.metrics.IncFailure(syncJobName)
		return err
	}
	if len(pending) == 0 {
		w.metrics.IncSuccess(syncJobName)
		return nil
	}

	var drainErrs error
	for _, orderID := range pending {
		if err := w.flush(ctx, orderID); err != nil {
			drainErrs = multierr.Append(drainErrs, fmt.Errorf("order %s: %w", orderID, err))
		}
	}
	if drainErrs != nil {
		w.metrics.IncFailure(syncJobName)
		return drainErrs
	}
	w.metrics.IncSuccess(syncJobName)
	return nil
}

func (w *Worker) flush(ctx context.Context, orderID uuid.UUID) error {
	override, err := w.cache.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if override == nil {
		// Entry expired or was already flushed; drop the queue member.
		return w.cache.Dequeue(ctx, orderID)
	}

	if override.Status != nil {
		if err := w.repo.UpdateOrderStatus(ctx, orderID, *override.Status); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
	}
	if override.TrackingNumber != nil {
		if err := w.repo.UpdateTracking(ctx, orderID, *override.TrackingNumber); err != nil {
			return fmt.Errorf("update tracking: %w", err)
		}
	}
	return w.cache.Dequeue(ctx, orderID)
}
