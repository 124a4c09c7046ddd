package model

import (
	"time"

	"github.com/google/uuid"
)

// StudentModel is the membership row EligibilityService reads:
// one user belongs to at most one batch and one course.
type StudentModel struct {
	StudentID       uuid.UUID  `gorm:"column:student_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	StudentUserID   uuid.UUID  `gorm:"column:student_user_id;type:uuid;not null;uniqueIndex"           json:"student_user_id"`
	StudentBatchID  *uuid.UUID `gorm:"column:student_batch_id;type:uuid"                               json:"student_batch_id,omitempty"`
	StudentCourseID *uuid.UUID `gorm:"column:student_course_id;type:uuid"                              json:"student_course_id,omitempty"`
	StudentIsActive bool       `gorm:"column:student_is_active;not null;default:true"                  json:"student_is_active"`

	StudentCreatedAt time.Time `gorm:"column:student_created_at;type:timestamptz;not null;autoCreateTime" json:"student_created_at"`
	StudentUpdatedAt time.Time `gorm:"column:student_updated_at;type:timestamptz;not null;autoUpdateTime" json:"student_updated_at"`
}

func (StudentModel) TableName() string {
	return "students"
}
