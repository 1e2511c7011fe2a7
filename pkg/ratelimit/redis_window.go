package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiterConfig holds configuration for the shared fixed-window counter.
type RedisLimiterConfig struct {
	// MaxRequests allowed per client per window.
	MaxRequests int

	// Window is the fixed bucket length. Counters reset fully at bucket
	// boundaries.
	Window time.Duration

	// KeyPrefix namespaces the counter keys in Redis.
	KeyPrefix string
}

// DefaultRedisLimiterConfig returns the reference limits: 15 requests per
// 5 minutes per client.
func DefaultRedisLimiterConfig() RedisLimiterConfig {
	return RedisLimiterConfig{
		MaxRequests: 15,
		Window:      5 * time.Minute,
		KeyPrefix:   "ratelimit",
	}
}

// RedisLimiter implements the fixed-window algorithm on a shared Redis
// counter, so every gateway instance sees the same per-client quota.
type RedisLimiter struct {
	client redis.Cmdable
	config RedisLimiterConfig
	logger *slog.Logger

	// now is the clock used for window bucketing; replaced in tests.
	now func() time.Time
}

// NewRedisLimiter creates a limiter on top of an existing Redis client.
func NewRedisLimiter(client redis.Cmdable, config RedisLimiterConfig, logger *slog.Logger) *RedisLimiter {
	if config.MaxRequests <= 0 {
		config.MaxRequests = DefaultRedisLimiterConfig().MaxRequests
	}
	if config.Window <= 0 {
		config.Window = DefaultRedisLimiterConfig().Window
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultRedisLimiterConfig().KeyPrefix
	}
	return &RedisLimiter{
		client: client,
		config: config,
		logger: logger.With(slog.String("component", "redis_limiter")),
		now:    time.Now,
	}
}

// Limit counts this request against the client's current window and returns
// the resulting decision. The counter key carries the window start so stale
// buckets age out naturally; PEXPIRE is set on every increment, which is
// idempotent for a fixed bucket.
func (rl *RedisLimiter) Limit(ctx context.Context, clientID string) (Decision, error) {
	windowStart := rl.now().Truncate(rl.config.Window)
	resetAt := windowStart.Add(rl.config.Window)
	key := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, clientID, windowStart.Unix())

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.PExpire(ctx, key, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit counter update failed: %w", err)
	}

	count := int(incr.Val())
	remaining := rl.config.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= rl.config.MaxRequests,
		Limit:     rl.config.MaxRequests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
