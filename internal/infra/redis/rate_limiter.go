package redis

import (
	"context"
	"strings"
	"time"

	"netaccess-billing/internal/infra/metrics"
)

// RateLimiter is a fixed-window counter.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		metrics.IncRateLimited(scopeOf(key))
		return false, nil
	}
	return true, nil
}

// NotifyKey scopes the gateway notification limit to a source address.
func NotifyKey(remoteIP string) string {
	return "rate_limit:notify:" + remoteIP
}

func scopeOf(key string) string {
	scope, _, _ := strings.Cut(strings.TrimPrefix(key, "rate_limit:"), ":")
	return scope
}
