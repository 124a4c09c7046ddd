// file: internals/features/school/submissions_assesments/quizzes/controller/scheduler_controller.go
package controller

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"academy_backend/internals/features/school/submissions_assesments/quizzes/scheduler"
	helper "academy_backend/internals/helpers"
)

// SchedulerRunner is the part of scheduler.Driver the admin endpoints use.
type SchedulerRunner interface {
	Status() scheduler.Status
	ManualTrigger(ctx context.Context) (scheduler.TickReport, error)
}

type SchedulerController struct {
	Runner SchedulerRunner
}

func NewSchedulerController(runner SchedulerRunner) *SchedulerController {
	return &SchedulerController{Runner: runner}
}

// GET /api/a/quiz-scheduler/status
func (ctl *SchedulerController) GetStatus(c *fiber.Ctx) error {
	return helper.JsonOK(c, "scheduler status", ctl.Runner.Status())
}

// POST /api/a/quiz-scheduler/trigger
func (ctl *SchedulerController) Trigger(c *fiber.Ctx) error {
	report, err := ctl.Runner.ManualTrigger(c.UserContext())
	switch {
	case errors.Is(err, scheduler.ErrTickInProgress):
		return helper.JsonError(c, fiber.StatusConflict, "a tick is already running")
	case errors.Is(err, scheduler.ErrLockNotAcquired):
		return helper.JsonError(c, fiber.StatusConflict, "another instance is running a tick")
	case errors.Is(err, scheduler.ErrStopped):
		return helper.JsonError(c, fiber.StatusServiceUnavailable, "scheduler is shutting down")
	case err != nil:
		return helper.JsonError(c, fiber.StatusInternalServerError, "tick failed: "+err.Error())
	}

	if failed := report.FailedPasses(); len(failed) > 0 {
		return helper.JsonOK(c, "tick finished with failures", report)
	}
	return helper.JsonOK(c, "tick finished", report)
}
