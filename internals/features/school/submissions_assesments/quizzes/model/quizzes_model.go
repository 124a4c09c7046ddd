package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

/*
	=============================================================================
	  ENUM-like: Quiz Status ('not_started','in_progress','completed','archived')

=============================================================================
*/
type QuizStatus string

const (
	QuizNotStarted QuizStatus = "not_started"
	QuizInProgress QuizStatus = "in_progress"
	QuizCompleted  QuizStatus = "completed"
	QuizArchived   QuizStatus = "archived" // manual only, never touched by the scheduler
)

func (s QuizStatus) String() string { return string(s) }

func (s QuizStatus) Valid() bool {
	switch s {
	case QuizNotStarted, QuizInProgress, QuizCompleted, QuizArchived:
		return true
	default:
		return false
	}
}

// Rank orders the scheduler-driven states; ARCHIVED is outside the sequence (-1).
func (s QuizStatus) Rank() int {
	switch s {
	case QuizNotStarted:
		return 0
	case QuizInProgress:
		return 1
	case QuizCompleted:
		return 2
	default:
		return -1
	}
}

// CanAdvanceTo reports whether the scheduler may move a quiz from s to next.
func (s QuizStatus) CanAdvanceTo(next QuizStatus) bool {
	return s.Rank() >= 0 && next.Rank() == s.Rank()+1
}

func (s *QuizStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*s = QuizStatus(v)
	case []byte:
		*s = QuizStatus(string(v))
	default:
		return fmt.Errorf("unsupported type for QuizStatus: %T", value)
	}
	if !s.Valid() {
		return fmt.Errorf("invalid QuizStatus: %q", *s)
	}
	return nil
}

func (s QuizStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid QuizStatus: %q", s)
	}
	return string(s), nil
}

/*
	=============================================================================
	  QUIZ

=============================================================================
*/
type QuizModel struct {
	QuizID     uuid.UUID  `gorm:"column:quiz_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"quiz_id"`
	QuizTitle  string     `gorm:"column:quiz_title;type:varchar(180);not null"                   json:"quiz_title"`
	QuizStatus QuizStatus `gorm:"column:quiz_status;type:varchar(20);not null;default:'not_started'" json:"quiz_status"`

	// Window (UTC)
	QuizStartTime          time.Time  `gorm:"column:quiz_start_time;type:timestamptz;not null" json:"quiz_start_time"`
	QuizEndTimeScheduled   *time.Time `gorm:"column:quiz_end_time_scheduled;type:timestamptz"  json:"quiz_end_time_scheduled,omitempty"`
	QuizGracePeriodMinutes int        `gorm:"column:quiz_grace_period_minutes;not null;default:0" json:"quiz_grace_period_minutes"`

	// Scheduler gates
	QuizAutoStart bool `gorm:"column:quiz_auto_start;not null;default:true" json:"quiz_auto_start"`
	QuizAutoEnd   bool `gorm:"column:quiz_auto_end;not null;default:true"   json:"quiz_auto_end"`

	// Result publication
	QuizResultReleaseTime  *time.Time `gorm:"column:quiz_result_release_time;type:timestamptz"       json:"quiz_result_release_time,omitempty"`
	QuizShowCorrectAnswers bool       `gorm:"column:quiz_show_correct_answers;not null;default:false" json:"quiz_show_correct_answers"`

	// Scope: batches (quiz_batches) first, course as fallback
	QuizCourseID *uuid.UUID `gorm:"column:quiz_course_id;type:uuid" json:"quiz_course_id,omitempty"`

	QuizIsActive bool `gorm:"column:quiz_is_active;not null;default:true" json:"quiz_is_active"`

	QuizCreatedAt time.Time `gorm:"column:quiz_created_at;type:timestamptz;not null;autoCreateTime" json:"quiz_created_at"`
	QuizUpdatedAt time.Time `gorm:"column:quiz_updated_at;type:timestamptz;not null;autoUpdateTime" json:"quiz_updated_at"`
}

func (QuizModel) TableName() string {
	return "quizzes"
}

// GracePeriod converts the configured minutes; negative values count as zero.
func (q QuizModel) GracePeriod() time.Duration {
	if q.QuizGracePeriodMinutes <= 0 {
		return 0
	}
	return time.Duration(q.QuizGracePeriodMinutes) * time.Minute
}

// GraceEnd is end_time_scheduled + grace period. ok=false when the quiz has no scheduled end.
func (q QuizModel) GraceEnd() (t time.Time, ok bool) {
	if q.QuizEndTimeScheduled == nil {
		return time.Time{}, false
	}
	return q.QuizEndTimeScheduled.Add(q.GracePeriod()), true
}

/*
	=============================================================================
	  QUIZ ↔ BATCH assignment

=============================================================================
*/
type QuizBatchModel struct {
	QuizBatchQuizID  uuid.UUID `gorm:"column:quiz_batch_quiz_id;type:uuid;primaryKey"  json:"quiz_batch_quiz_id"`
	QuizBatchBatchID uuid.UUID `gorm:"column:quiz_batch_batch_id;type:uuid;primaryKey" json:"quiz_batch_batch_id"`
}

func (QuizBatchModel) TableName() string {
	return "quiz_batches"
}
