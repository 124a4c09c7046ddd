package middlewares

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/utils"

	reqLogger "academy_backend/internals/middlewares/logger"
)

// RequestID sets X-Request-ID and bounds the request context.
func RequestID(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = utils.UUID()
		}
		c.Set("X-Request-ID", id)
		c.Locals("reqid", id)

		ctx, cancel := context.WithTimeout(c.Context(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func SetupMiddlewares(app *fiber.App, corsOrigins, timezone string) {
	app.Use(RecoveryMiddleware())
	app.Use(RequestID(60 * time.Second))
	app.Use(reqLogger.LoggerMiddleware(timezone))
	app.Use(CorsMiddleware(corsOrigins))
	app.Use(GlobalRateLimiter())
}
