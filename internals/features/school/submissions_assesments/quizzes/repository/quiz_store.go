// file: internals/features/school/submissions_assesments/quizzes/repository/quiz_store.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	qmodel "academy_backend/internals/features/school/submissions_assesments/quizzes/model"
)

// QuizStore is the persistence contract of the quiz lifecycle scheduler.
// Every list method is a precise filter; callers never post-filter on status.
type QuizStore interface {
	/* ---------- quiz selection ---------- */

	// status=not_started, auto_start, is_active, start_time <= now
	ListQuizzesDueToStart(ctx context.Context, now time.Time) ([]qmodel.QuizModel, error)
	// status=in_progress, auto_end, is_active, end_time_scheduled <= now
	ListQuizzesDueToEnd(ctx context.Context, now time.Time) ([]qmodel.QuizModel, error)
	// status=in_progress, end_time_scheduled not null, grace_period_minutes > 0 (is_active ignored)
	ListQuizzesInGrace(ctx context.Context) ([]qmodel.QuizModel, error)
	// status=completed, end_time_scheduled not null, from <= end+grace <= to
	ListQuizzesClosedBetween(ctx context.Context, from, to time.Time) ([]qmodel.QuizModel, error)
	// status=completed, is_active, show_correct_answers=false, result_release_time <= now
	ListQuizzesDueForRelease(ctx context.Context, now time.Time) ([]qmodel.QuizModel, error)

	/* ---------- quiz mutation ---------- */

	// TransitionQuizzes moves quizzes still in `from` to `to` in one statement and
	// returns the rows it actually changed.
	TransitionQuizzes(ctx context.Context, ids []uuid.UUID, from, to qmodel.QuizStatus) ([]qmodel.QuizModel, error)
	// PublishQuizResults re-reads show_correct_answers under a row lock and flips it.
	// published=false means it was already true (or the quiz is gone).
	PublishQuizResults(ctx context.Context, quizID uuid.UUID) (published bool, err error)

	/* ---------- membership ---------- */

	ListQuizBatchIDs(ctx context.Context, quizID uuid.UUID) ([]uuid.UUID, error)
	ListStudentUserIDsByBatches(ctx context.Context, batchIDs []uuid.UUID) ([]uuid.UUID, error)
	ListStudentUserIDsByCourse(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)

	/* ---------- attempts ---------- */

	ListIncompleteAttempts(ctx context.Context, quizID uuid.UUID) ([]qmodel.QuizAttemptModel, error)
	ListAttemptAnswers(ctx context.Context, attemptID uuid.UUID) ([]qmodel.QuizAttemptAnswerModel, error)
	// ListAttemptUserIDs returns distinct users with any attempt (unattended included).
	ListAttemptUserIDs(ctx context.Context, quizID uuid.UUID) ([]uuid.UUID, error)
	// CompleteAttempt closes an attempt only if it is still open; completed=false otherwise.
	CompleteAttempt(ctx context.Context, attemptID uuid.UUID, c qmodel.AttemptCompletion) (completed bool, err error)
	// CreateUnattendedAttempt inserts the synthetic row; created=false when one already exists.
	CreateUnattendedAttempt(ctx context.Context, attempt *qmodel.QuizAttemptModel) (created bool, err error)

	// Transaction runs fn in a transaction; calling it again on tx opens a savepoint,
	// so an inner failure only rolls back its own unit.
	Transaction(ctx context.Context, fn func(tx QuizStore) error) error
}
