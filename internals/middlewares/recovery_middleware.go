package middlewares

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"academy_backend/internals/helpers/logger"
)

var panicLog = logger.New("PANIC")

// RecoveryMiddleware menangkap panic, melaporkannya (Rollbar bila aktif), lalu mengembalikan 500
func RecoveryMiddleware() fiber.Handler {
	return recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e any) {
			panicLog.Errorf(fmt.Errorf("panic: %v", e), "%s %s", c.Method(), c.OriginalURL())
		},
	})
}
