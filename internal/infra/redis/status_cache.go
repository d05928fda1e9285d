package redis

import (
	"context"
	"time"
)

// StatusCache keeps terminal session statuses keyed by tracking id, so a poll
// that lands after resolution answers without a DB round trip. Only terminal
// statuses are cached; PENDING would go stale the moment a callback arrives.
type StatusCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewStatusCache(client RedisClient, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

func (c *StatusCache) StoreTerminal(ctx context.Context, trackingID, status string) error {
	return c.client.Set(ctx, "payment_status:"+trackingID, status, c.ttl)
}

// GetTerminal returns ("", nil) on a cache miss.
func (c *StatusCache) GetTerminal(ctx context.Context, trackingID string) (string, error) {
	v, err := c.client.Get(ctx, "payment_status:"+trackingID)
	if err != nil {
		if IsNil(err) {
			return "", nil
		}
		return "", err
	}
	return v, nil
}
