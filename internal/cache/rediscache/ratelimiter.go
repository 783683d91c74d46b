package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// keyTTL outlives the one-minute window so a late INCR never resets a full bucket.
const keyTTL = 70 * time.Second

// RateLimiter counts calls per scope in fixed one-minute windows.
type RateLimiter struct {
	c *redis.Client
}

func NewRateLimiter(addr string) *RateLimiter {
	return &RateLimiter{
		c: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func windowKey(scope string, now time.Time) string {
	return fmt.Sprintf("rl:%s:%s", scope, now.UTC().Format("200601021504"))
}

// Allow increments the counter of scope for the minute containing now.
// Returns (allowed, currentCount).
func (rl *RateLimiter) Allow(ctx context.Context, scope string, limit int64, now time.Time) (bool, int64, error) {
	key := windowKey(scope, now)
	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, errors.Wrap(err, "redis ratelimit")
	}
	n := incr.Val()
	return n <= limit, n, nil
}

func (rl *RateLimiter) Close() error {
	return rl.c.Close()
}
