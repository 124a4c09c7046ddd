package route

import (
	"github.com/gofiber/fiber/v2"

	quizcontroller "academy_backend/internals/features/school/submissions_assesments/quizzes/controller"
	"academy_backend/internals/middlewares"
)

/*
Catatan:
- Mount parent router dengan prefix /api/a dan middleware AdminOnly.
- Base group di sini: /api/a/quiz-scheduler
*/

func QuizSchedulerAdminRoutes(r fiber.Router, runner quizcontroller.SchedulerRunner) {
	ctrl := quizcontroller.NewSchedulerController(runner)
	g := r.Group("/quiz-scheduler") // -> /api/a/quiz-scheduler

	g.Get("/status", ctrl.GetStatus)                                   // GET  /api/a/quiz-scheduler/status
	g.Post("/trigger", middlewares.TriggerRateLimiter(), ctrl.Trigger) // POST /api/a/quiz-scheduler/trigger
}
