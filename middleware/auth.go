package middleware

import (
	"crypto/subtle"
	"log"

	"github.com/gofiber/fiber/v2"
)

// AdminAuthMiddleware guards the analytics API with a shared token. Every
// request must carry X-Admin-Token; there are no public routes on this
// surface.
func AdminAuthMiddleware(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			log.Printf("[AUTH] admin API disabled (no token configured), rejecting %s", c.Path())
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "admin API is not configured",
			})
		}

		got := c.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			log.Printf("[AUTH] bad admin token on %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid X-Admin-Token",
			})
		}
		return c.Next()
	}
}
