// file: internals/route/index.go
package routes

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	quizcontroller "academy_backend/internals/features/school/submissions_assesments/quizzes/controller"
	quizroute "academy_backend/internals/features/school/submissions_assesments/quizzes/route"
	authMiddleware "academy_backend/internals/middlewares/auth"
)

type Deps struct {
	DB        *gorm.DB // nil skips the database check in /health
	Scheduler quizcontroller.SchedulerRunner
	JWTSecret string
	Env       string
}

var startTime time.Time

func SetupRoutes(app *fiber.App, deps Deps) {
	startTime = time.Now()

	log.Println("[INFO] Setting up BaseRoutes...")
	BaseRoutes(app, deps)

	// ===================== ADMIN =====================
	log.Println("[INFO] Setting up ADMIN group (Auth + RoleCheck)...")
	admin := app.Group("/api/a", authMiddleware.AdminOnly(deps.JWTSecret))
	quizroute.QuizSchedulerAdminRoutes(admin, deps.Scheduler)
}
