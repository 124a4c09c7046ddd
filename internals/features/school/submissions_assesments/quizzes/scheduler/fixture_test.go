package scheduler

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"academy_backend/internals/databases/inmem"
	nmodel "academy_backend/internals/features/home/notifications/model"
	nservice "academy_backend/internals/features/home/notifications/service"
	smodel "academy_backend/internals/features/school/students/model"
	qmodel "academy_backend/internals/features/school/submissions_assesments/quizzes/model"
	"academy_backend/internals/helpers/logger"
)

// 2025-03-01 09:00 UTC
var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func at(hhmm string) time.Time {
	d, err := time.ParseDuration(hhmm)
	if err != nil {
		panic(err)
	}
	return t0.Add(d)
}

func tp(t time.Time) *time.Time { return &t }

type fixture struct {
	store *inmem.Store
	lc    *Lifecycle
	batch uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := inmem.New()
	lc := NewLifecycle(store, nservice.NewDispatcher(store, logger.Discard()), 5*time.Minute, logger.Discard(), time.UTC)
	return &fixture{store: store, lc: lc, batch: uuid.New()}
}

// students adds n active students to the fixture batch.
func (f *fixture) students(n int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		b := f.batch
		st := f.store.AddStudent(smodel.StudentModel{StudentBatchID: &b, StudentIsActive: true})
		ids = append(ids, st.StudentUserID)
	}
	return ids
}

// quiz is 09:00-10:00 with 5 minutes of grace and results at 10:30, assigned to the fixture batch.
func (f *fixture) quiz(edit ...func(q *qmodel.QuizModel)) qmodel.QuizModel {
	q := qmodel.QuizModel{
		QuizTitle:              "Weekly test",
		QuizStatus:             qmodel.QuizNotStarted,
		QuizStartTime:          t0,
		QuizEndTimeScheduled:   tp(at("1h")),
		QuizGracePeriodMinutes: 5,
		QuizAutoStart:          true,
		QuizAutoEnd:            true,
		QuizResultReleaseTime:  tp(at("1h30m")),
		QuizIsActive:           true,
	}
	for _, fn := range edit {
		fn(&q)
	}
	return f.store.AddQuiz(q, f.batch)
}

func (f *fixture) attempt(quiz qmodel.QuizModel, user uuid.UUID, start time.Time) qmodel.QuizAttemptModel {
	return f.store.AddAttempt(qmodel.QuizAttemptModel{
		QuizAttemptQuizID:    quiz.QuizID,
		QuizAttemptUserID:    user,
		QuizAttemptStartTime: start,
	})
}

func (f *fixture) status(q qmodel.QuizModel) qmodel.QuizStatus {
	got, _ := f.store.Quiz(q.QuizID)
	return got.QuizStatus
}

// recipients lists the users notified of kind, in insertion order.
func (f *fixture) recipients(kind nmodel.QuizEventKind) []uuid.UUID {
	var out []uuid.UUID
	for _, n := range f.store.Notifications() {
		for _, tag := range n.NotificationTags {
			if tag == string(kind) {
				out = append(out, n.NotificationUserID)
				break
			}
		}
	}
	return out
}
