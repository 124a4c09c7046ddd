package model

import (
	"time"

	"github.com/google/uuid"
)

// UserSession lives only in the database so every instance sees the same state.
type UserSession struct {
	ID         uuid.UUID `gorm:"column:user_session_id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"column:user_session_user_id;type:uuid;not null" json:"user_id"`
	IsActive   bool      `gorm:"column:user_session_is_active;not null;default:true" json:"is_active"`
	LastActive time.Time `gorm:"column:user_session_last_active;type:timestamptz;not null" json:"last_active"`
	CreatedAt  time.Time `gorm:"column:user_session_created_at;type:timestamptz;autoCreateTime" json:"created_at"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}
