package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "streamrand:ratelimit"

// RedisLimiter shares limiter windows between server instances. Each admitted
// key is written with SET NX and a TTL equal to the window.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	window time.Duration
}

// NewRedisLimiter wires a Redis client into a limiter.
func NewRedisLimiter(client redis.Cmdable, keyPrefix string, window time.Duration) *RedisLimiter {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisLimiter{client: client, prefix: prefix, window: window}
}

// Reserve implements Limiter.
func (l *RedisLimiter) Reserve(ctx context.Context, key string) error {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	// Two attempts cover a key that expires between SETNX and PTTL.
	for attempt := 0; attempt < 2; attempt++ {
		admitted, err := l.client.SetNX(ctx, redisKey, 1, l.window).Result()
		if err != nil {
			return fmt.Errorf("redis reserve: %w", err)
		}
		if admitted {
			return nil
		}

		ttl, err := l.client.PTTL(ctx, redisKey).Result()
		if err != nil {
			return fmt.Errorf("redis ttl: %w", err)
		}
		switch {
		case ttl > 0:
			return &RateLimitError{RetryAfter: ttl}
		case ttl == -1:
			// Key without expiry; restore the window rather than block forever.
			if err := l.client.PExpire(ctx, redisKey, l.window).Err(); err != nil {
				return fmt.Errorf("redis expire: %w", err)
			}
			return &RateLimitError{RetryAfter: l.window}
		}
	}

	return &RateLimitError{RetryAfter: l.window}
}
