package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through JSON cache for record detail views. Review
// transitions invalidate the record's key so readers never see a stale
// stage. A nil Cache is a valid no-op cache.
type Cache struct {
	client *Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewCache builds a cache over the client. Returns nil when the client is
// nil so callers can wire it unconditionally.
func NewCache(client *Client, logger *slog.Logger, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, logger: logger, ttl: ttl}
}

// Key builds the cache key for one record.
func Key(kind string, id string) string {
	return fmt.Sprintf("saccoflow:%s:%s", kind, id)
}

// Get unmarshals a cached value into dest, reporting whether it was found.
// Redis faults degrade to a miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.WarnContext(ctx, "cache entry corrupt, dropping", "key", key, "error", err)
		c.Invalidate(ctx, key)
		return false
	}
	return true
}

// Set stores a value under the key. Failures are logged, never surfaced.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}

// Invalidate removes the key.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache invalidation failed", "key", key, "error", err)
	}
}
