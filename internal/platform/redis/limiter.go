package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Limiter is a fixed-window request counter over Redis. A nil Limiter allows
// everything, so callers need no nil checks when rate limiting is off.
type Limiter struct {
	client *Client
	logger *slog.Logger
	limit  int
	window time.Duration
}

// NewLimiter returns a Limiter, or nil when the client is absent or the
// limit is zero.
func NewLimiter(client *Client, logger *slog.Logger, limit int, window time.Duration) *Limiter {
	if client == nil || limit <= 0 {
		return nil
	}
	return &Limiter{client: client, logger: logger, limit: limit, window: window}
}

// Allow reports whether the caller identified by key may proceed. Redis
// failures fail open: a degraded cache must not take request traffic down.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l == nil {
		return true
	}
	bucket := fmt.Sprintf("saccoflow:ratelimit:%s:%d", key, time.Now().Unix()/int64(l.window.Seconds()))
	count, err := l.client.Incr(ctx, bucket).Result()
	if err != nil {
		l.logger.WarnContext(ctx, "rate limit check failed", "key", key, "error", err)
		return true
	}
	if count == 1 {
		l.client.Expire(ctx, bucket, l.window)
	}
	return count <= int64(l.limit)
}
