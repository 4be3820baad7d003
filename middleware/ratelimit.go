// middleware/ratelimit.go
package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig sizes a fixed window limiter keyed by client IP.
type RateLimitConfig struct {
	Max     int
	Window  time.Duration
	Message string
}

func newLimiter(cfg RateLimitConfig, skip func(*fiber.Ctx) bool) fiber.Handler {
	if cfg.Max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Window,
		Next:       skip,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   cfg.Message,
			})
		},
	})
}

// RateLimit applies the general limit. Health checks are not counted.
// A Max of zero disables limiting.
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	if cfg.Message == "" {
		cfg.Message = "Rate limit exceeded. Please try again later."
	}
	return newLimiter(cfg, func(c *fiber.Ctx) bool {
		path := c.Path()
		return path == "/health" || path == "/api/health"
	})
}

// AuthRateLimit applies the stricter limit for login and registration.
func AuthRateLimit(cfg RateLimitConfig) fiber.Handler {
	if cfg.Message == "" {
		cfg.Message = "Too many authentication attempts. Please try again later."
	}
	return newLimiter(cfg, nil)
}
