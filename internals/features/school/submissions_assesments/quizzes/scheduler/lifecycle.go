// file: internals/features/school/submissions_assesments/quizzes/scheduler/lifecycle.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	nmodel "academy_backend/internals/features/home/notifications/model"
	nservice "academy_backend/internals/features/home/notifications/service"
	qmodel "academy_backend/internals/features/school/submissions_assesments/quizzes/model"
	"academy_backend/internals/features/school/submissions_assesments/quizzes/repository"
	qservice "academy_backend/internals/features/school/submissions_assesments/quizzes/service"
	"academy_backend/internals/helpers/dbtime"
	"academy_backend/internals/helpers/logger"
)

// Notifier fans out a quiz event to users.
type Notifier interface {
	Notify(ctx context.Context, userIDs []uuid.UUID, ev nservice.QuizEvent) (int, error)
}

// Lifecycle holds the quiz passes of a tick. Every pass queries the store directly,
// there is no quiz cache shared between passes.
type Lifecycle struct {
	Store       repository.QuizStore
	Eligibility *qservice.EligibilityService
	Scores      *qservice.ScoreService
	Notifier    Notifier

	// AttendanceWindow bounds the unattended pass to quizzes closed in [now-window, now].
	AttendanceWindow time.Duration

	Log *logger.Logger
	Loc *time.Location // display only
}

func NewLifecycle(store repository.QuizStore, notifier Notifier, attendanceWindow time.Duration, log *logger.Logger, loc *time.Location) *Lifecycle {
	if log == nil {
		log = logger.New("QUIZ-SCHED")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Lifecycle{
		Store:            store,
		Eligibility:      qservice.NewEligibilityService(store),
		Scores:           qservice.NewScoreService(),
		Notifier:         notifier,
		AttendanceWindow: attendanceWindow,
		Log:              log,
		Loc:              loc,
	}
}

/* =========================================================
   START PASS: not_started → in_progress
========================================================= */

func (l *Lifecycle) StartDueQuizzes(ctx context.Context, now time.Time) (int, error) {
	due, err := l.Store.ListQuizzesDueToStart(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list quizzes due to start: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	started, err := l.Store.TransitionQuizzes(ctx, quizIDs(due), qmodel.QuizNotStarted, qmodel.QuizInProgress)
	if err != nil {
		return 0, fmt.Errorf("start %d quizzes: %w", len(due), err)
	}

	var errs []error
	for _, q := range started {
		l.Log.Infof("quiz %s %q started (start_time=%s)", q.QuizID, q.QuizTitle, dbtime.Render(q.QuizStartTime, l.Loc))

		users, err := l.Eligibility.EligibleUserIDs(ctx, q)
		if err != nil {
			l.Log.Errorf(err, "resolve eligible students of quiz %s", q.QuizID)
			errs = append(errs, err)
			continue
		}
		if err := l.notify(ctx, users, q, nmodel.EventTestStarted); err != nil {
			errs = append(errs, err)
		}
	}
	return len(started), errors.Join(errs...)
}

/* =========================================================
   END PASS: in_progress → completed, auto-submit at now
========================================================= */

func (l *Lifecycle) EndDueQuizzes(ctx context.Context, now time.Time) (int, error) {
	due, err := l.Store.ListQuizzesDueToEnd(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list quizzes due to end: %w", err)
	}

	ended := 0
	var errs []error
	for _, q := range due {
		submitted, done, err := l.closeQuiz(ctx, q, now, true)
		if err != nil {
			errs = append(errs, err)
		}
		if !done {
			continue
		}
		ended++
		l.Log.Infof("quiz %s %q ended (end_time=%s) auto_submitted=%d",
			q.QuizID, q.QuizTitle, dbtime.RenderPtr(q.QuizEndTimeScheduled, l.Loc), submitted)

		users, err := l.Store.ListAttemptUserIDs(ctx, q.QuizID)
		if err != nil {
			l.Log.Errorf(err, "list attempt users of quiz %s", q.QuizID)
			errs = append(errs, fmt.Errorf("list attempt users of quiz %s: %w", q.QuizID, err))
			continue
		}
		if err := l.notify(ctx, users, q, nmodel.EventTestEnded); err != nil {
			errs = append(errs, err)
		}
	}
	return ended, errors.Join(errs...)
}

/* =========================================================
   GRACE PASS: force-complete after end + grace
========================================================= */

func (l *Lifecycle) EnforceGracePeriods(ctx context.Context, now time.Time) (int, error) {
	open, err := l.Store.ListQuizzesInGrace(ctx)
	if err != nil {
		return 0, fmt.Errorf("list quizzes in grace: %w", err)
	}

	closed := 0
	var errs []error
	for _, q := range open {
		graceEnd, ok := q.GraceEnd()
		if !ok || now.Before(graceEnd) {
			continue
		}

		n, done, err := l.closeQuiz(ctx, q, graceEnd, false)
		if err != nil {
			errs = append(errs, err)
		}
		if done {
			closed++
			l.Log.Infof("quiz %s %q closed after grace (grace_end=%s) force_completed=%d",
				q.QuizID, q.QuizTitle, dbtime.Render(graceEnd, l.Loc), n)
		}
	}
	return closed, errors.Join(errs...)
}

/* =========================================================
   ATTENDANCE PASS: unattended attempts for no-shows
========================================================= */

func (l *Lifecycle) AuditAttendance(ctx context.Context, now time.Time) (int, error) {
	from := now.Add(-l.AttendanceWindow)
	quizzes, err := l.Store.ListQuizzesClosedBetween(ctx, from, now)
	if err != nil {
		return 0, fmt.Errorf("list recently closed quizzes: %w", err)
	}

	created := 0
	var errs []error
	for _, q := range quizzes {
		n, err := l.auditQuiz(ctx, q)
		created += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return created, errors.Join(errs...)
}

func (l *Lifecycle) auditQuiz(ctx context.Context, q qmodel.QuizModel) (int, error) {
	eligible, err := l.Eligibility.EligibleUserIDs(ctx, q)
	if err != nil {
		l.Log.Errorf(err, "resolve eligible students of quiz %s", q.QuizID)
		return 0, err
	}
	if len(eligible) == 0 {
		return 0, nil
	}
	attempted, err := l.Store.ListAttemptUserIDs(ctx, q.QuizID)
	if err != nil {
		l.Log.Errorf(err, "list attempt users of quiz %s", q.QuizID)
		return 0, fmt.Errorf("list attempt users of quiz %s: %w", q.QuizID, err)
	}
	missing := qservice.Difference(eligible, attempted)
	if len(missing) == 0 {
		return 0, nil
	}

	created := 0
	var errs []error
	txErr := l.Store.Transaction(ctx, func(tx repository.QuizStore) error {
		for _, uid := range missing {
			row, ok := qmodel.NewUnattendedAttempt(q, uid)
			if !ok {
				return fmt.Errorf("quiz %s has no scheduled end", q.QuizID)
			}
			err := tx.Transaction(ctx, func(sp repository.QuizStore) error {
				ok, err := sp.CreateUnattendedAttempt(ctx, &row)
				if ok {
					created++
				}
				return err
			})
			if err != nil {
				l.Log.Errorf(err, "create unattended attempt quiz=%s user=%s", q.QuizID, uid)
				errs = append(errs, fmt.Errorf("unattended attempt quiz=%s user=%s: %w", q.QuizID, uid, err))
			}
		}
		return nil
	})
	if txErr != nil {
		l.Log.Errorf(txErr, "attendance transaction of quiz %s", q.QuizID)
		return 0, txErr
	}
	if created > 0 {
		l.Log.Infof("quiz %s %q: %d unattended attempts recorded", q.QuizID, q.QuizTitle, created)
	}
	return created, errors.Join(errs...)
}

/* =========================================================
   PUBLISH PASS: show_correct_answers false → true, once
========================================================= */

func (l *Lifecycle) PublishResults(ctx context.Context, now time.Time) (int, error) {
	due, err := l.Store.ListQuizzesDueForRelease(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list quizzes due for release: %w", err)
	}

	published := 0
	var errs []error
	for _, q := range due {
		if q.QuizEndTimeScheduled == nil {
			l.Log.Warnf("quiz %s has result_release_time but no end_time_scheduled, skipped", q.QuizID)
			continue
		}

		flipped, err := l.Store.PublishQuizResults(ctx, q.QuizID)
		if err != nil {
			l.Log.Errorf(err, "publish results of quiz %s", q.QuizID)
			errs = append(errs, fmt.Errorf("publish results of quiz %s: %w", q.QuizID, err))
			continue
		}
		if !flipped {
			continue
		}
		published++
		l.Log.Infof("quiz %s %q results published (release_time=%s)",
			q.QuizID, q.QuizTitle, dbtime.RenderPtr(q.QuizResultReleaseTime, l.Loc))

		users, err := l.Store.ListAttemptUserIDs(ctx, q.QuizID)
		if err != nil {
			l.Log.Errorf(err, "list attempt users of quiz %s", q.QuizID)
			errs = append(errs, fmt.Errorf("list attempt users of quiz %s: %w", q.QuizID, err))
			continue
		}
		if err := l.notify(ctx, users, q, nmodel.EventResultsPublished); err != nil {
			errs = append(errs, err)
		}
	}
	return published, errors.Join(errs...)
}

/* =========================================================
   HELPERS
========================================================= */

// closeQuiz completes every open attempt of q at cutoff and then moves q from
// in_progress to completed, in one transaction with one savepoint per attempt.
// grade=true recomputes the score from recorded answers.
// If an attempt fails, the attempts already closed are kept but q stays in_progress,
// so the next tick retries the rest. done reports whether this call completed q.
func (l *Lifecycle) closeQuiz(ctx context.Context, q qmodel.QuizModel, cutoff time.Time, grade bool) (closed int, done bool, err error) {
	var errs []error
	txErr := l.Store.Transaction(ctx, func(tx repository.QuizStore) error {
		open, err := tx.ListIncompleteAttempts(ctx, q.QuizID)
		if err != nil {
			return fmt.Errorf("list open attempts of quiz %s: %w", q.QuizID, err)
		}

		for _, a := range open {
			err := tx.Transaction(ctx, func(sp repository.QuizStore) error {
				var (
					ok  bool
					err error
				)
				if grade {
					ok, err = l.Scores.AutoSubmit(ctx, sp, a, cutoff)
				} else {
					ok, err = sp.CompleteAttempt(ctx, a.QuizAttemptID, qmodel.AttemptCompletion{SubmitTime: cutoff})
				}
				if ok {
					closed++
				}
				return err
			})
			if err != nil {
				l.Log.Errorf(err, "close attempt %s of quiz %s", a.QuizAttemptID, q.QuizID)
				errs = append(errs, fmt.Errorf("close attempt %s: %w", a.QuizAttemptID, err))
			}
		}
		if len(errs) > 0 {
			return nil
		}

		changed, err := tx.TransitionQuizzes(ctx, []uuid.UUID{q.QuizID}, qmodel.QuizInProgress, qmodel.QuizCompleted)
		if err != nil {
			return fmt.Errorf("complete quiz %s: %w", q.QuizID, err)
		}
		done = len(changed) == 1
		return nil
	})
	if txErr != nil {
		l.Log.Errorf(txErr, "close quiz %s", q.QuizID)
		return 0, false, txErr
	}
	return closed, done, errors.Join(errs...)
}

func (l *Lifecycle) notify(ctx context.Context, users []uuid.UUID, q qmodel.QuizModel, kind nmodel.QuizEventKind) error {
	if len(users) == 0 || l.Notifier == nil {
		return nil
	}
	_, err := l.Notifier.Notify(ctx, users, nservice.QuizEvent{
		Kind:      kind,
		QuizID:    q.QuizID,
		QuizTitle: q.QuizTitle,
	})
	if err != nil {
		l.Log.Errorf(err, "dispatch %s for quiz %s", kind, q.QuizID)
	}
	return err
}

func quizIDs(qs []qmodel.QuizModel) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.QuizID)
	}
	return ids
}
