package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nmodel "academy_backend/internals/features/home/notifications/model"
	qmodel "academy_backend/internals/features/school/submissions_assesments/quizzes/model"
)

func TestStartDueQuizzes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := f.students(2)

	due := f.quiz()
	manual := f.quiz(func(q *qmodel.QuizModel) { q.QuizAutoStart = false })
	inactive := f.quiz(func(q *qmodel.QuizModel) { q.QuizIsActive = false })
	later := f.quiz(func(q *qmodel.QuizModel) { q.QuizStartTime = at("10m") })

	n, err := f.lc.StartDueQuizzes(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, qmodel.QuizInProgress, f.status(due))
	assert.Equal(t, qmodel.QuizNotStarted, f.status(manual))
	assert.Equal(t, qmodel.QuizNotStarted, f.status(inactive))
	assert.Equal(t, qmodel.QuizNotStarted, f.status(later))
	assert.ElementsMatch(t, users, f.recipients(nmodel.EventTestStarted))

	// second run: nothing left to start, nothing sent twice
	n, err = f.lc.StartDueQuizzes(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.recipients(nmodel.EventTestStarted), 2)
}

func TestStartSkipsQuizChangedUnderneath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.students(1)
	q := f.quiz()

	// an operator archives the quiz between the select and the update
	f.store.SetQuizStatus(q.QuizID, qmodel.QuizArchived)
	changed, err := f.store.TransitionQuizzes(ctx, []uuid.UUID{q.QuizID}, qmodel.QuizNotStarted, qmodel.QuizInProgress)
	require.NoError(t, err)
	assert.Empty(t, changed)

	n, err := f.lc.StartDueQuizzes(ctx, t0)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, qmodel.QuizArchived, f.status(q))
	assert.Empty(t, f.store.Notifications())
}

func TestEndDueQuizzesAutoSubmits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := f.students(3)
	q := f.quiz(func(q *qmodel.QuizModel) { q.QuizStatus = qmodel.QuizInProgress })

	open := f.attempt(q, users[0], at("10m"))
	f.store.AddAnswer(qmodel.QuizAttemptAnswerModel{QuizAttemptAnswerAttemptID: open.QuizAttemptID, QuizAttemptAnswerMarksObtained: 4, QuizAttemptAnswerIsCorrect: true})
	f.store.AddAnswer(qmodel.QuizAttemptAnswerModel{QuizAttemptAnswerAttemptID: open.QuizAttemptID, QuizAttemptAnswerMarksObtained: 0})

	done := f.store.AddAttempt(qmodel.QuizAttemptModel{
		QuizAttemptQuizID: q.QuizID, QuizAttemptUserID: users[1], QuizAttemptStartTime: at("5m"),
		QuizAttemptSubmitTime: tp(at("40m")), QuizAttemptIsCompleted: true, QuizAttemptScore: 9,
	})

	// not due yet
	n, err := f.lc.EndDueQuizzes(ctx, at("59m"))
	require.NoError(t, err)
	assert.Zero(t, n)

	now := at("1h")
	n, err = f.lc.EndDueQuizzes(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, qmodel.QuizCompleted, f.status(q))

	got, _ := f.store.Attempt(open.QuizAttemptID)
	assert.True(t, got.QuizAttemptIsCompleted)
	assert.Equal(t, now, *got.QuizAttemptSubmitTime)
	assert.Equal(t, 4.0, got.QuizAttemptScore)
	assert.Equal(t, 1, got.QuizAttemptCorrectAnswers)
	assert.Equal(t, 1, got.QuizAttemptWrongAnswers)
	assert.Equal(t, int64(50*60), got.QuizAttemptTimeTaken)

	untouched, _ := f.store.Attempt(done.QuizAttemptID)
	assert.Equal(t, at("40m"), *untouched.QuizAttemptSubmitTime)
	assert.Equal(t, 9.0, untouched.QuizAttemptScore)

	// only students with an attempt hear that the test ended
	assert.ElementsMatch(t, users[:2], f.recipients(nmodel.EventTestEnded))

	n, err = f.lc.EndDueQuizzes(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.recipients(nmodel.EventTestEnded), 2)
}

func TestEndRespectsAutoEnd(t *testing.T) {
	f := newFixture(t)
	q := f.quiz(func(q *qmodel.QuizModel) {
		q.QuizStatus = qmodel.QuizInProgress
		q.QuizAutoEnd = false
	})

	n, err := f.lc.EndDueQuizzes(context.Background(), at("1h"))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, qmodel.QuizInProgress, f.status(q))
}

func TestEndPassRetriesFailedSteps(t *testing.T) {
	boom := errors.New("conn reset")
	tests := []struct {
		name string
		fail func(f *fixture, q qmodel.QuizModel, second qmodel.QuizAttemptModel)
		// attempts completed by the failed run
		closed int
	}{
		{
			name: "listing open attempts",
			fail: func(f *fixture, q qmodel.QuizModel, _ qmodel.QuizAttemptModel) {
				f.store.Fail("ListIncompleteAttempts", q.QuizID, boom)
			},
			closed: 0,
		},
		{
			name: "opening the transaction",
			fail: func(f *fixture, _ qmodel.QuizModel, _ qmodel.QuizAttemptModel) {
				f.store.Fail("Transaction", uuid.Nil, boom)
			},
			closed: 0,
		},
		{
			name: "one attempt",
			fail: func(f *fixture, _ qmodel.QuizModel, second qmodel.QuizAttemptModel) {
				f.store.Fail("CompleteAttempt", second.QuizAttemptID, boom)
			},
			closed: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			users := f.students(2)
			q := f.quiz(func(q *qmodel.QuizModel) { q.QuizStatus = qmodel.QuizInProgress })
			f.attempt(q, users[0], at("10m"))
			second := f.attempt(q, users[1], at("20m"))

			tt.fail(f, q, second)
			n, err := f.lc.EndDueQuizzes(ctx, at("1h"))
			require.ErrorIs(t, err, boom)
			assert.Zero(t, n)
			assert.Equal(t, qmodel.QuizInProgress, f.status(q), "quiz stays open so the next tick retries")
			assert.Empty(t, f.recipients(nmodel.EventTestEnded))

			closed := 0
			for _, a := range f.store.Attempts(q.QuizID) {
				if a.QuizAttemptIsCompleted {
					closed++
				}
			}
			assert.Equal(t, tt.closed, closed)

			f.store.ClearFaults()
			n, err = f.lc.EndDueQuizzes(ctx, at("1h1m"))
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			assert.Equal(t, qmodel.QuizCompleted, f.status(q))
			for _, a := range f.store.Attempts(q.QuizID) {
				assert.True(t, a.QuizAttemptIsCompleted, "attempt %s", a.QuizAttemptID)
			}
			got, _ := f.store.Attempt(second.QuizAttemptID)
			assert.Equal(t, at("1h1m"), *got.QuizAttemptSubmitTime)
			assert.ElementsMatch(t, users, f.recipients(nmodel.EventTestEnded))

			// later passes have nothing left to close
			for _, now := range []time.Time{at("1h2m"), at("1h10m"), at("2h")} {
				_, err := f.lc.EnforceGracePeriods(ctx, now)
				require.NoError(t, err)
			}
			assert.Len(t, f.recipients(nmodel.EventTestEnded), 2)
		})
	}
}

func TestEndPassKeepsCompletionWhenNotifyFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := f.students(1)
	q := f.quiz(func(q *qmodel.QuizModel) { q.QuizStatus = qmodel.QuizInProgress })
	a := f.attempt(q, users[0], at("10m"))

	boom := errors.New("notifications table locked")
	f.store.Fail("InsertNotifications", uuid.Nil, boom)

	n, err := f.lc.EndDueQuizzes(ctx, at("1h"))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
	assert.Equal(t, qmodel.QuizCompleted, f.status(q))
	got, _ := f.store.Attempt(a.QuizAttemptID)
	assert.True(t, got.QuizAttemptIsCompleted)
	assert.Empty(t, f.store.Notifications())

	// no retry of the lost notification, and no second transition
	f.store.ClearFaults()
	n, err = f.lc.EndDueQuizzes(ctx, at("1h1m"))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.store.Notifications())
}

func TestGracePeriodForceCompletes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := f.students(2)
	q := f.quiz(func(q *qmodel.QuizModel) {
		q.QuizStatus = qmodel.QuizInProgress
		q.QuizAutoEnd = false
	})
	a1 := f.attempt(q, users[0], at("20m"))
	a2 := f.store.AddAttempt(qmodel.QuizAttemptModel{
		QuizAttemptQuizID: q.QuizID, QuizAttemptUserID: users[1], QuizAttemptStartTime: at("30m"), QuizAttemptScore: 7,
	})

	n, err := f.lc.EnforceGracePeriods(ctx, at("1h4m"))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, qmodel.QuizInProgress, f.status(q))

	n, err = f.lc.EnforceGracePeriods(ctx, at("1h5m"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, qmodel.QuizCompleted, f.status(q))

	for _, id := range []uuid.UUID{a1.QuizAttemptID, a2.QuizAttemptID} {
		got, _ := f.store.Attempt(id)
		assert.True(t, got.QuizAttemptIsCompleted)
		assert.Equal(t, at("1h5m"), *got.QuizAttemptSubmitTime)
	}
	got, _ := f.store.Attempt(a2.QuizAttemptID)
	assert.Equal(t, 7.0, got.QuizAttemptScore, "force completion keeps the recorded score")

	assert.Empty(t, f.recipients(nmodel.EventTestEnded))
}

func TestGracePeriodSkipsQuizzesWithoutGrace(t *testing.T) {
	f := newFixture(t)
	q := f.quiz(func(q *qmodel.QuizModel) {
		q.QuizStatus = qmodel.QuizInProgress
		q.QuizAutoEnd = false
		q.QuizGracePeriodMinutes = 0
	})

	n, err := f.lc.EnforceGracePeriods(context.Background(), at("3h"))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, qmodel.QuizInProgress, f.status(q))
}

func TestGracePeriodIgnoresActiveFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := f.students(1)
	q := f.quiz(func(q *qmodel.QuizModel) {
		q.QuizStatus = qmodel.QuizInProgress
		q.QuizAutoEnd = false
		q.QuizIsActive = false
	})
	a := f.attempt(q, users[0], at("10m"))

	n, err := f.lc.EnforceGracePeriods(ctx, at("2h"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, qmodel.QuizCompleted, f.status(q))
	got, _ := f.store.Attempt(a.QuizAttemptID)
	assert.True(t, got.QuizAttemptIsCompleted)
	assert.Equal(t, at("1h5m"), *got.QuizAttemptSubmitTime)
}

func TestGracePeriodRetriesFailedAttempts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := f.students(2)
	q := f.quiz(func(q *qmodel.QuizModel) {
		q.QuizStatus = qmodel.QuizInProgress
		q.QuizAutoEnd = false
	})
	ok := f.attempt(q, users[0], at("10m"))
	stuck := f.attempt(q, users[1], at("15m"))

	boom := errors.New("deadlock detected")
	f.store.Fail("CompleteAttempt", stuck.QuizAttemptID, boom)

	n, err := f.lc.EnforceGracePeriods(ctx, at("1h10m"))
	require.ErrorIs(t, err, boom)
	assert.Zero(t, n)
	assert.Equal(t, qmodel.QuizInProgress, f.status(q), "quiz stays open while attempts remain")

	got, _ := f.store.Attempt(ok.QuizAttemptID)
	assert.True(t, got.QuizAttemptIsCompleted)
	got, _ = f.store.Attempt(stuck.QuizAttemptID)
	assert.False(t, got.QuizAttemptIsCompleted)

	f.store.ClearFaults()
	n, err = f.lc.EnforceGracePeriods(ctx, at("1h11m"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, _ = f.store.Attempt(stuck.QuizAttemptID)
	assert.True(t, got.QuizAttemptIsCompleted)
	assert.Equal(t, at("1h5m"), *got.QuizAttemptSubmitTime)
}

func TestAuditAttendance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := f.students(3)
	q := f.quiz(func(q *qmodel.QuizModel) { q.QuizStatus = qmodel.QuizCompleted })
	f.store.AddAttempt(qmodel.QuizAttemptModel{
		QuizAttemptQuizID: q.QuizID, QuizAttemptUserID: users[0], QuizAttemptStartTime: at("10m"),
		QuizAttemptIsCompleted: true, QuizAttemptSubmitTime: tp(at("50m")),
	})

	// grace ends 10:05, not inside [09:55, 10:00]
	n, err := f.lc.AuditAttendance(ctx, at("1h"))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.lc.AuditAttendance(ctx, at("1h6m"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var unattended []uuid.UUID
	for _, a := range f.store.Attempts(q.QuizID) {
		if !a.QuizAttemptIsUnattended {
			continue
		}
		unattended = append(unattended, a.QuizAttemptUserID)
		assert.True(t, a.QuizAttemptIsCompleted)
		assert.Equal(t, at("1h"), a.QuizAttemptStartTime)
		assert.Equal(t, at("1h5m"), *a.QuizAttemptSubmitTime)
		assert.Zero(t, a.QuizAttemptScore)
		assert.Zero(t, a.QuizAttemptTimeTaken)
	}
	assert.ElementsMatch(t, users[1:], unattended)

	n, err = f.lc.AuditAttendance(ctx, at("1h8m"))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.store.Attempts(q.QuizID), 3)

	// window passed
	n, err = f.lc.AuditAttendance(ctx, at("1h20m"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAuditAttendanceIsolatesStudents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := f.students(3)
	q := f.quiz(func(q *qmodel.QuizModel) { q.QuizStatus = qmodel.QuizCompleted })

	boom := errors.New("unique violation on another index")
	f.store.Fail("CreateUnattendedAttempt", users[1], boom)

	n, err := f.lc.AuditAttendance(ctx, at("1h5m"))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, n)
	assert.Len(t, f.store.Attempts(q.QuizID), 2)

	f.store.ClearFaults()
	n, err = f.lc.AuditAttendance(ctx, at("1h6m"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, f.store.Attempts(q.QuizID), 3)
}

func TestPublishResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := f.students(3)
	q := f.quiz(func(q *qmodel.QuizModel) { q.QuizStatus = qmodel.QuizCompleted })
	f.attempt(q, users[0], at("10m"))
	f.attempt(q, users[2], at("12m"))

	n, err := f.lc.PublishResults(ctx, at("1h29m"))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.lc.PublishResults(ctx, at("1h30m"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, _ := f.store.Quiz(q.QuizID)
	assert.True(t, got.QuizShowCorrectAnswers)
	assert.ElementsMatch(t, []uuid.UUID{users[0], users[2]}, f.recipients(nmodel.EventResultsPublished))

	n, err = f.lc.PublishResults(ctx, at("2h"))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.recipients(nmodel.EventResultsPublished), 2)
}

func TestPublishResultsGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := f.students(1)

	running := f.quiz(func(q *qmodel.QuizModel) { q.QuizStatus = qmodel.QuizInProgress })
	noEnd := f.quiz(func(q *qmodel.QuizModel) {
		q.QuizStatus = qmodel.QuizCompleted
		q.QuizEndTimeScheduled = nil
	})
	noRelease := f.quiz(func(q *qmodel.QuizModel) {
		q.QuizStatus = qmodel.QuizCompleted
		q.QuizResultReleaseTime = nil
	})
	for _, q := range []qmodel.QuizModel{running, noEnd, noRelease} {
		f.attempt(q, users[0], at("10m"))
	}

	n, err := f.lc.PublishResults(ctx, at("5h"))
	require.NoError(t, err)
	assert.Zero(t, n)
	for _, q := range []qmodel.QuizModel{running, noEnd, noRelease} {
		got, _ := f.store.Quiz(q.QuizID)
		assert.False(t, got.QuizShowCorrectAnswers)
	}
	assert.Empty(t, f.store.Notifications())
}

func TestPassesIsolateQuizzes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := f.students(2)
	broken := f.quiz()
	healthy := f.quiz()

	boom := errors.New("statement timeout")
	f.store.Fail("ListQuizBatchIDs", broken.QuizID, boom)

	n, err := f.lc.StartDueQuizzes(ctx, t0)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, n)
	assert.Equal(t, qmodel.QuizInProgress, f.status(broken))
	assert.Equal(t, qmodel.QuizInProgress, f.status(healthy))
	assert.ElementsMatch(t, users, f.recipients(nmodel.EventTestStarted))

	f.store.ClearFaults()
	f.attempt(broken, users[0], at("5m"))
	f.attempt(healthy, users[0], at("5m"))
	f.store.Fail("ListIncompleteAttempts", broken.QuizID, boom)

	n, err = f.lc.EndDueQuizzes(ctx, at("1h"))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
	assert.Equal(t, qmodel.QuizCompleted, f.status(healthy))
	assert.Equal(t, qmodel.QuizInProgress, f.status(broken))
	for _, a := range f.store.Attempts(healthy.QuizID) {
		assert.True(t, a.QuizAttemptIsCompleted)
	}
	for _, a := range f.store.Attempts(broken.QuizID) {
		assert.False(t, a.QuizAttemptIsCompleted)
	}
}

func TestPipelineIsMonotonic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	users := f.students(2)

	quizzes := []qmodel.QuizModel{
		f.quiz(),
		f.quiz(func(q *qmodel.QuizModel) { q.QuizAutoEnd = false }),
		f.quiz(func(q *qmodel.QuizModel) { q.QuizGracePeriodMinutes = 0; q.QuizStartTime = at("30m") }),
		f.quiz(func(q *qmodel.QuizModel) { q.QuizStatus = qmodel.QuizArchived }),
	}
	f.attempt(quizzes[0], users[0], at("1m"))

	passes := NewPipeline(f.lc, nil)
	last := map[uuid.UUID]qmodel.QuizStatus{}
	for _, q := range quizzes {
		last[q.QuizID] = q.QuizStatus
	}

	for now := t0.Add(-time.Minute); now.Before(at("2h")); now = now.Add(time.Minute) {
		for _, p := range passes {
			_, err := p.Run(ctx, now)
			require.NoError(t, err, "%s at %s", p.Name, now)
		}
		for _, q := range quizzes {
			cur := f.status(q)
			prev := last[q.QuizID]
			if prev == qmodel.QuizArchived {
				assert.Equal(t, qmodel.QuizArchived, cur)
				continue
			}
			assert.GreaterOrEqual(t, cur.Rank(), prev.Rank(), "quiz %s went %s -> %s", q.QuizID, prev, cur)
			last[q.QuizID] = cur
		}
	}

	assert.Equal(t, qmodel.QuizCompleted, f.status(quizzes[0]))
	assert.Equal(t, qmodel.QuizCompleted, f.status(quizzes[1]), "grace closes quizzes without auto_end")
	assert.Equal(t, qmodel.QuizCompleted, f.status(quizzes[2]))
	assert.Equal(t, qmodel.QuizArchived, f.status(quizzes[3]))

	// every notification kind went out exactly once per recipient and quiz
	seen := map[string]bool{}
	for _, n := range f.store.Notifications() {
		key := n.NotificationUserID.String() + string(n.NotificationData) + n.NotificationTitle
		assert.False(t, seen[key], "duplicate notification %s", key)
		seen[key] = true
	}
}
