package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	database "academy_backend/internals/databases"
)

func BaseRoutes(app *fiber.App, deps Deps) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("academy quiz scheduler")
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		dbStatus := "skipped"
		serverStatus := "ok"
		httpStatus := fiber.StatusOK

		if deps.DB != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			dbStatus = "connected"
			if err := database.Ping(ctx, deps.DB); err != nil {
				dbStatus = "database connection error"
				serverStatus = "down"
				httpStatus = fiber.StatusServiceUnavailable
			}
		}

		body := fiber.Map{
			"status":         serverStatus,
			"database":       dbStatus,
			"server_time":    time.Now().UTC().Format(time.RFC3339),
			"uptime_seconds": int(time.Since(startTime).Seconds()),
			"environment":    deps.Env,
		}
		if deps.Scheduler != nil {
			st := deps.Scheduler.Status()
			body["scheduler_active"] = st.Active
			if st.LastTickAt != nil {
				body["scheduler_last_tick_at"] = st.LastTickAt.Format(time.RFC3339)
			}
		}
		return c.Status(httpStatus).JSON(body)
	})
}
