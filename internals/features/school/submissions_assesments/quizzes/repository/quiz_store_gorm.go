// file: internals/features/school/submissions_assesments/quizzes/repository/quiz_store_gorm.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	smodel "academy_backend/internals/features/school/students/model"
	qmodel "academy_backend/internals/features/school/submissions_assesments/quizzes/model"
)

type GormQuizStore struct {
	DB *gorm.DB
}

var _ QuizStore = (*GormQuizStore)(nil)

func NewGormQuizStore(db *gorm.DB) *GormQuizStore {
	return &GormQuizStore{DB: db}
}

func (s *GormQuizStore) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

/* =========================================================
   QUIZ SELECTION
========================================================= */

func (s *GormQuizStore) ListQuizzesDueToStart(ctx context.Context, now time.Time) ([]qmodel.QuizModel, error) {
	var rows []qmodel.QuizModel
	err := s.db(ctx).
		Where("quiz_status = ?", qmodel.QuizNotStarted).
		Where("quiz_auto_start = TRUE AND quiz_is_active = TRUE").
		Where("quiz_start_time <= ?", now).
		Order("quiz_start_time ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormQuizStore) ListQuizzesDueToEnd(ctx context.Context, now time.Time) ([]qmodel.QuizModel, error) {
	var rows []qmodel.QuizModel
	err := s.db(ctx).
		Where("quiz_status = ?", qmodel.QuizInProgress).
		Where("quiz_auto_end = TRUE AND quiz_is_active = TRUE").
		Where("quiz_end_time_scheduled IS NOT NULL AND quiz_end_time_scheduled <= ?", now).
		Order("quiz_end_time_scheduled ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormQuizStore) ListQuizzesInGrace(ctx context.Context) ([]qmodel.QuizModel, error) {
	var rows []qmodel.QuizModel
	err := s.db(ctx).
		Where("quiz_status = ?", qmodel.QuizInProgress).
		Where("quiz_end_time_scheduled IS NOT NULL AND quiz_grace_period_minutes > 0").
		Order("quiz_end_time_scheduled ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormQuizStore) ListQuizzesClosedBetween(ctx context.Context, from, to time.Time) ([]qmodel.QuizModel, error) {
	var rows []qmodel.QuizModel
	err := s.db(ctx).
		Where("quiz_status = ?", qmodel.QuizCompleted).
		Where("quiz_end_time_scheduled IS NOT NULL").
		Where("quiz_end_time_scheduled + make_interval(mins => quiz_grace_period_minutes) BETWEEN ? AND ?", from, to).
		Order("quiz_end_time_scheduled ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormQuizStore) ListQuizzesDueForRelease(ctx context.Context, now time.Time) ([]qmodel.QuizModel, error) {
	var rows []qmodel.QuizModel
	err := s.db(ctx).
		Where("quiz_status = ?", qmodel.QuizCompleted).
		Where("quiz_is_active = TRUE AND quiz_show_correct_answers = FALSE").
		Where("quiz_result_release_time IS NOT NULL AND quiz_result_release_time <= ?", now).
		Order("quiz_result_release_time ASC").
		Find(&rows).Error
	return rows, err
}

/* =========================================================
   QUIZ MUTATION
========================================================= */

func (s *GormQuizStore) TransitionQuizzes(ctx context.Context, ids []uuid.UUID, from, to qmodel.QuizStatus) ([]qmodel.QuizModel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if !from.CanAdvanceTo(to) {
		return nil, errors.New("illegal quiz status transition " + from.String() + " -> " + to.String())
	}

	// the status predicate makes a concurrent tick's transition a no-op here
	var changed []qmodel.QuizModel
	err := s.db(ctx).Model(&changed).
		Clauses(clause.Returning{}).
		Where("quiz_id IN ? AND quiz_status = ?", ids, from).
		Update("quiz_status", to).Error
	if err != nil {
		return nil, err
	}
	return changed, nil
}

func (s *GormQuizStore) PublishQuizResults(ctx context.Context, quizID uuid.UUID) (bool, error) {
	published := false
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		var q qmodel.QuizModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("quiz_id", "quiz_show_correct_answers").
			Where("quiz_id = ?", quizID).
			Take(&q).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if q.QuizShowCorrectAnswers {
			return nil
		}
		res := tx.Model(&qmodel.QuizModel{}).
			Where("quiz_id = ? AND quiz_show_correct_answers = FALSE", quizID).
			Update("quiz_show_correct_answers", true)
		if res.Error != nil {
			return res.Error
		}
		published = res.RowsAffected == 1
		return nil
	})
	return published, err
}

/* =========================================================
   MEMBERSHIP
========================================================= */

func (s *GormQuizStore) ListQuizBatchIDs(ctx context.Context, quizID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db(ctx).Model(&qmodel.QuizBatchModel{}).
		Where("quiz_batch_quiz_id = ?", quizID).
		Pluck("quiz_batch_batch_id", &ids).Error
	return ids, err
}

func (s *GormQuizStore) ListStudentUserIDsByBatches(ctx context.Context, batchIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(batchIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := s.db(ctx).Model(&smodel.StudentModel{}).
		Distinct("student_user_id").
		Where("student_is_active = TRUE AND student_batch_id IN ?", batchIDs).
		Pluck("student_user_id", &ids).Error
	return ids, err
}

func (s *GormQuizStore) ListStudentUserIDsByCourse(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db(ctx).Model(&smodel.StudentModel{}).
		Distinct("student_user_id").
		Where("student_is_active = TRUE AND student_course_id = ?", courseID).
		Pluck("student_user_id", &ids).Error
	return ids, err
}

/* =========================================================
   ATTEMPTS
========================================================= */

func (s *GormQuizStore) ListIncompleteAttempts(ctx context.Context, quizID uuid.UUID) ([]qmodel.QuizAttemptModel, error) {
	var rows []qmodel.QuizAttemptModel
	err := s.db(ctx).
		Where("quiz_attempt_quiz_id = ? AND quiz_attempt_is_completed = FALSE", quizID).
		Order("quiz_attempt_start_time ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormQuizStore) ListAttemptAnswers(ctx context.Context, attemptID uuid.UUID) ([]qmodel.QuizAttemptAnswerModel, error) {
	var rows []qmodel.QuizAttemptAnswerModel
	err := s.db(ctx).
		Where("quiz_attempt_answer_attempt_id = ?", attemptID).
		Find(&rows).Error
	return rows, err
}

func (s *GormQuizStore) ListAttemptUserIDs(ctx context.Context, quizID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db(ctx).Model(&qmodel.QuizAttemptModel{}).
		Distinct("quiz_attempt_user_id").
		Where("quiz_attempt_quiz_id = ?", quizID).
		Pluck("quiz_attempt_user_id", &ids).Error
	return ids, err
}

func (s *GormQuizStore) CompleteAttempt(ctx context.Context, attemptID uuid.UUID, c qmodel.AttemptCompletion) (bool, error) {
	updates := map[string]any{
		"quiz_attempt_is_completed": true,
		"quiz_attempt_submit_time":  c.SubmitTime,
	}
	if sc := c.Score; sc != nil {
		updates["quiz_attempt_score"] = sc.Score
		updates["quiz_attempt_correct_answers"] = sc.CorrectAnswers
		updates["quiz_attempt_wrong_answers"] = sc.WrongAnswers
		updates["quiz_attempt_total_questions"] = sc.TotalQuestions
		updates["quiz_attempt_accuracy"] = sc.Accuracy
		updates["quiz_attempt_time_taken"] = sc.TimeTaken
	}

	res := s.db(ctx).Model(&qmodel.QuizAttemptModel{}).
		Where("quiz_attempt_id = ? AND quiz_attempt_is_completed = FALSE", attemptID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormQuizStore) CreateUnattendedAttempt(ctx context.Context, attempt *qmodel.QuizAttemptModel) (bool, error) {
	if err := s.db(ctx).Create(attempt).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *GormQuizStore) Transaction(ctx context.Context, fn func(tx QuizStore) error) error {
	return s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormQuizStore{DB: tx})
	})
}

// --- PG error mapping (pgx) ---
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
