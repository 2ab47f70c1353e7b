package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletgate/internal/metrics"
)

// Metrics records every request against its matched route. It must run
// outside Audit so the final status is known.
func Metrics(m *metrics.HTTP) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		m.Observe(c.Method(), c.Route().Path, c.Response().StatusCode(), time.Since(start))
		return err
	}
}
