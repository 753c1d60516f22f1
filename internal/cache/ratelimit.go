package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts hits per key in fixed windows.
type RateLimiter struct {
	client *redis.Client
	prefix string
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client, prefix: "rl:"}
}

// Allow records a hit for key and reports whether it is still within limit.
// The returned duration is how long until the current window resets.
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if limit <= 0 {
		return true, 0, nil
	}

	redisKey := l.prefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}

	reset, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return true, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if reset < 0 {
		// First hit in the window, or a key left without expiry.
		if err := l.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return true, 0, fmt.Errorf("rate limit %s: %w", key, err)
		}
		reset = window
	}
	return count <= int64(limit), reset, nil
}
