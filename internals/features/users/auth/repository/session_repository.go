package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	authModel "academy_backend/internals/features/users/auth/model"
)

/* ====================== SESSIONS ====================== */

type SessionStore interface {
	// DeactivateIdleSessions flips is_active=false for active sessions idle since before threshold.
	DeactivateIdleSessions(ctx context.Context, threshold time.Time) (int64, error)
}

type GormSessionStore struct {
	DB *gorm.DB
}

var _ SessionStore = (*GormSessionStore)(nil)

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{DB: db}
}

func (s *GormSessionStore) DeactivateIdleSessions(ctx context.Context, threshold time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).
		Model(&authModel.UserSession{}).
		Where("user_session_is_active = TRUE AND user_session_last_active < ?", threshold).
		Update("user_session_is_active", false)
	return res.RowsAffected, res.Error
}
