package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window limiter shared by every process that
// talks to the same provider account.
// ⭐ SSOT: 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Key    string        // Unique identifier, e.g. "provider"
	Limit  int           // Maximum requests per window
	Window time.Duration // Window length
}

// ProviderRateLimit builds the market data provider limit from a per-minute budget
func ProviderRateLimit(perMinute int) RateLimitConfig {
	return RateLimitConfig{
		Key:    "provider",
		Limit:  perMinute,
		Window: time.Minute,
	}
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix}
}

// Allow consumes one slot in the current window.
// Returns (allowed, remaining, error).
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() || cfg.Limit <= 0 {
		return true, cfg.Limit, nil
	}

	window := time.Now().UnixMilli() / cfg.Window.Milliseconds()
	key := fmt.Sprintf("%s:ratelimit:%s:%d", r.prefix, cfg.Key, window)

	pipe := r.client.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.PExpire(ctx, key, cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit update failed: %w", err)
	}

	count := int(incr.Val())
	if count > cfg.Limit {
		return false, 0, nil
	}
	return true, cfg.Limit - count, nil
}

// Wait blocks until a request is allowed or context is cancelled
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		allowed, _, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}
