// file: internals/features/school/submissions_assesments/quizzes/model/user_quiz_attempts_model.go
package model

import (
	"time"

	"github.com/google/uuid"
)

/*
=========================================================

	QUIZ ATTEMPTS
	1 row = 1 attempt of 1 user on 1 quiz
	- is_completed : monotonic, once true never reverts
	- is_unattended: synthetic zero-score row for a student who never started

=========================================================
*/
type QuizAttemptModel struct {
	QuizAttemptID     uuid.UUID `gorm:"column:quiz_attempt_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"quiz_attempt_id"`
	QuizAttemptUserID uuid.UUID `gorm:"column:quiz_attempt_user_id;type:uuid;not null" json:"quiz_attempt_user_id"`
	QuizAttemptQuizID uuid.UUID `gorm:"column:quiz_attempt_quiz_id;type:uuid;not null" json:"quiz_attempt_quiz_id"`

	QuizAttemptStartTime  time.Time  `gorm:"column:quiz_attempt_start_time;type:timestamptz;not null" json:"quiz_attempt_start_time"`
	QuizAttemptSubmitTime *time.Time `gorm:"column:quiz_attempt_submit_time;type:timestamptz"         json:"quiz_attempt_submit_time,omitempty"`

	QuizAttemptIsCompleted  bool `gorm:"column:quiz_attempt_is_completed;not null;default:false"  json:"quiz_attempt_is_completed"`
	QuizAttemptIsUnattended bool `gorm:"column:quiz_attempt_is_unattended;not null;default:false" json:"quiz_attempt_is_unattended"`

	QuizAttemptScore          float64 `gorm:"column:quiz_attempt_score;type:numeric(10,3);not null;default:0"   json:"quiz_attempt_score"`
	QuizAttemptCorrectAnswers int     `gorm:"column:quiz_attempt_correct_answers;not null;default:0"            json:"quiz_attempt_correct_answers"`
	QuizAttemptWrongAnswers   int     `gorm:"column:quiz_attempt_wrong_answers;not null;default:0"              json:"quiz_attempt_wrong_answers"`
	QuizAttemptTotalQuestions int     `gorm:"column:quiz_attempt_total_questions;not null;default:0"            json:"quiz_attempt_total_questions"`
	QuizAttemptAccuracy       float64 `gorm:"column:quiz_attempt_accuracy;type:numeric(6,3);not null;default:0" json:"quiz_attempt_accuracy"`
	QuizAttemptTimeTaken      int64   `gorm:"column:quiz_attempt_time_taken;not null;default:0"                 json:"quiz_attempt_time_taken"` // seconds

	QuizAttemptCreatedAt time.Time `gorm:"column:quiz_attempt_created_at;type:timestamptz;not null;autoCreateTime" json:"quiz_attempt_created_at"`
	QuizAttemptUpdatedAt time.Time `gorm:"column:quiz_attempt_updated_at;type:timestamptz;not null;autoUpdateTime" json:"quiz_attempt_updated_at"`
}

func (QuizAttemptModel) TableName() string {
	return "quiz_attempts"
}

// AttemptScore is the graded summary written when an attempt is auto-submitted.
type AttemptScore struct {
	Score          float64
	CorrectAnswers int
	WrongAnswers   int
	TotalQuestions int
	Accuracy       float64
	TimeTaken      int64
}

// AttemptCompletion closes an attempt at SubmitTime. Score=nil keeps the recorded
// score fields untouched (grace-period force completion).
type AttemptCompletion struct {
	SubmitTime time.Time
	Score      *AttemptScore
}

// NewUnattendedAttempt builds the synthetic row for a student who never started the quiz.
func NewUnattendedAttempt(quiz QuizModel, userID uuid.UUID) (QuizAttemptModel, bool) {
	graceEnd, ok := quiz.GraceEnd()
	if !ok {
		return QuizAttemptModel{}, false
	}
	return QuizAttemptModel{
		QuizAttemptID:           uuid.New(),
		QuizAttemptUserID:       userID,
		QuizAttemptQuizID:       quiz.QuizID,
		QuizAttemptStartTime:    *quiz.QuizEndTimeScheduled,
		QuizAttemptSubmitTime:   &graceEnd,
		QuizAttemptIsCompleted:  true,
		QuizAttemptIsUnattended: true,
	}, true
}
