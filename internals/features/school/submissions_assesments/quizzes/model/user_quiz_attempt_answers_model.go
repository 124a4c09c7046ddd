package model

import (
	"time"

	"github.com/google/uuid"
)

// QuizAttemptAnswerModel is one recorded answer; read-only for the scheduler.
type QuizAttemptAnswerModel struct {
	QuizAttemptAnswerID            uuid.UUID `gorm:"column:quiz_attempt_answer_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"quiz_attempt_answer_id"`
	QuizAttemptAnswerAttemptID     uuid.UUID `gorm:"column:quiz_attempt_answer_attempt_id;type:uuid;not null"  json:"quiz_attempt_answer_attempt_id"`
	QuizAttemptAnswerQuestionID    uuid.UUID `gorm:"column:quiz_attempt_answer_question_id;type:uuid;not null" json:"quiz_attempt_answer_question_id"`
	QuizAttemptAnswerMarksObtained float64   `gorm:"column:quiz_attempt_answer_marks_obtained;type:numeric(10,3);not null;default:0" json:"quiz_attempt_answer_marks_obtained"`
	QuizAttemptAnswerIsCorrect     bool      `gorm:"column:quiz_attempt_answer_is_correct;not null;default:false" json:"quiz_attempt_answer_is_correct"`
	QuizAttemptAnswerCreatedAt     time.Time `gorm:"column:quiz_attempt_answer_created_at;type:timestamptz;not null;autoCreateTime" json:"quiz_attempt_answer_created_at"`
}

func (QuizAttemptAnswerModel) TableName() string {
	return "quiz_attempt_answers"
}
