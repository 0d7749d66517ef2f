package adminsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/emberline/storefront-backend/internal/orders"
	"github.com/emberline/storefront-backend/pkg/enums"
)

// overrideStore is the slice of the redis client the cache depends on.
type overrideStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, members ...any) error
	SRem(ctx context.Context, key string, members ...any) error
	SMembers(ctx context.Context, key string) ([]string, error)
	OrderOverrideKey(orderID string) string
	PendingSyncKey() string
}

// storedOverride is the JSON shape persisted per order.
type storedOverride struct {
	Status         *enums.OrderStatus `json:"status,omitempty"`
	TrackingNumber *string            `json:"tracking_number,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Cache is the write-ahead store for admin order changes. Writes land here
// first and are flushed to the database by the sync worker; reads through
// orders.Service see them immediately.
type Cache struct {
	store overrideStore
	ttl   time.Duration
}

func NewCache(store overrideStore, ttl time.Duration) (*Cache, error) {
	if store == nil {
		return nil, errors.New("override store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Cache{store: store, ttl: ttl}, nil
}

// Put merges the given override into any existing entry for the order and
// enqueues the order for database sync. Later writes win field by field.
func (c *Cache) Put(ctx context.Context, orderID uuid.UUID, override orders.Override) error {
	existing, err := c.load(ctx, orderID)
	if err != nil {
		return err
	}
	merged := storedOverride{UpdatedAt: time.Now().UTC()}
	if existing != nil {
		merged.Status = existing.Status
		merged.TrackingNumber = existing.TrackingNumber
	}
	if override.Status != nil {
		merged.Status = override.Status
	}
	if override.TrackingNumber != nil {
		merged.TrackingNumber = override.TrackingNumber
	}

	payload, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal override: %w", err)
	}
	key := c.store.OrderOverrideKey(orderID.String())
	if err := c.store.Set(ctx, key, payload, c.ttl); err != nil {
		return fmt.Errorf("write override: %w", err)
	}
	if err := c.store.SAdd(ctx, c.store.PendingSyncKey(), orderID.String()); err != nil {
		return fmt.Errorf("enqueue order for sync: %w", err)
	}
	return nil
}

// Get implements orders.OverrideSource. A missing entry returns (nil, nil).
func (c *Cache) Get(ctx context.Context, orderID uuid.UUID) (*orders.Override, error) {
	stored, err := c.load(ctx, orderID)
	if err != nil || stored == nil {
		return nil, err
	}
	return &orders.Override{
		Status:         stored.Status,
		TrackingNumber: stored.TrackingNumber,
	}, nil
}

// Pending returns the order ids whose overrides still await a database flush.
// Unparseable members are dropped.
func (c *Cache) Pending(ctx context.Context) ([]uuid.UUID, error) {
	members, err := c.store.SMembers(ctx, c.store.PendingSyncKey())
	if err != nil {
		return nil, fmt.Errorf("read pending sync set: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Dequeue drops the order from the pending set and removes its override. Used
// after the database write succeeds.
func (c *Cache) Dequeue(ctx context.Context, orderID uuid.UUID) error {
	if err := c.store.SRem(ctx, c.store.PendingSyncKey(), orderID.String()); err != nil {
		return fmt.Errorf("remove order from sync set: %w", err)
	}
	return c.store.Del(ctx, c.store.OrderOverrideKey(orderID.String()))
}

func (c *Cache) load(ctx context.Context, orderID uuid.UUID) (*storedOverride, error) {
	raw, err := c.store.Get(ctx, c.store.OrderOverrideKey(orderID.String()))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read override: %w", err)
	}
	var stored storedOverride
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("decode override: %w", err)
	}
	return &stored, nil
}
