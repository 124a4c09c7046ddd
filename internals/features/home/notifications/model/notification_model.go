package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

const NotificationTypeQuiz = "quiz"

// QuizEventKind identifies what happened to a quiz; stored in data.event and tags.
type QuizEventKind string

const (
	EventTestStarted      QuizEventKind = "test_started"
	EventTestEnded        QuizEventKind = "test_ended"
	EventResultsPublished QuizEventKind = "results_published"
)

// NotificationModel is append-only: one row per recipient.
type NotificationModel struct {
	NotificationID      uuid.UUID      `gorm:"column:notification_id;primaryKey;type:uuid;default:gen_random_uuid()" json:"notification_id"`
	NotificationUserID  uuid.UUID      `gorm:"column:notification_user_id;type:uuid;not null" json:"notification_user_id"`
	NotificationTitle   string         `gorm:"column:notification_title;type:varchar(255);not null" json:"notification_title"`
	NotificationMessage string         `gorm:"column:notification_message;type:text" json:"notification_message"`
	NotificationType    string         `gorm:"column:notification_type;type:varchar(40);not null" json:"notification_type"`
	NotificationData    datatypes.JSON `gorm:"column:notification_data;type:jsonb;not null;default:'{}'" json:"notification_data"`
	NotificationTags    pq.StringArray `gorm:"column:notification_tags;type:text[]" json:"notification_tags"`
	NotificationIsRead  bool           `gorm:"column:notification_is_read;not null;default:false" json:"notification_is_read"`

	NotificationCreatedAt time.Time `gorm:"column:notification_created_at;autoCreateTime" json:"notification_created_at"`
}

func (NotificationModel) TableName() string {
	return "notifications"
}

// QuizNotificationData is the payload stored in notification_data.
type QuizNotificationData struct {
	QuizID    uuid.UUID     `json:"quiz_id"`
	QuizTitle string        `json:"quiz_title"`
	Event     QuizEventKind `json:"event"`
}
