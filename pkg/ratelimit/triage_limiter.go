// Package ratelimit provides a Redis-backed request limiter shared across
// server instances.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript counts a hit and returns {count, ttl_ms}. The first hit
// in a window starts its expiry.
var fixedWindowScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	return {count, ttl}
`)

// Result describes one limiter decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// FixedWindowLimiter allows Limit hits per key per Window.
type FixedWindowLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewFixedWindowLimiter(redisClient *redis.Client, limit int, window time.Duration) *FixedWindowLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &FixedWindowLimiter{
		redis:  redisClient,
		limit:  limit,
		window: window,
		prefix: "triage:ratelimit",
	}
}

// Allow records a hit for key. Without Redis, or when Redis fails, requests
// are allowed.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (Result, error) {
	res := Result{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetIn: l.window}
	if l.redis == nil || l.limit <= 0 {
		return res, nil
	}

	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	vals, err := fixedWindowScript.Run(ctx, l.redis, []string{redisKey}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return res, fmt.Errorf("rate limit check: %w", err)
	}
	if len(vals) != 2 {
		return res, fmt.Errorf("rate limit check: unexpected reply %v", vals)
	}

	count, ttl := int(vals[0]), vals[1]
	if ttl > 0 {
		res.ResetIn = time.Duration(ttl) * time.Millisecond
	}
	res.Remaining = max(l.limit-count, 0)
	res.Allowed = count <= l.limit
	return res, nil
}
