package middleware

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"triage_server/pkg/apperr"
	"triage_server/pkg/logger"
	"triage_server/pkg/ratelimit"
)

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

// RateLimit limits requests per client IP. Limiter errors let the request
// through.
func RateLimit(l Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := l.Allow(c.UserContext(), c.IP())
		if err != nil {
			logger.WithField("ip", c.IP()).WithError(err).Warn("rate limiter unavailable")
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Set("X-RateLimit-Reset", strconv.Itoa(int(res.ResetIn.Seconds())))

		if !res.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(res.ResetIn.Seconds())+1))
			return apperr.RateLimited()
		}
		return c.Next()
	}
}
