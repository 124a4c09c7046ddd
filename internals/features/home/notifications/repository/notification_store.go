package repository

import (
	"context"

	"gorm.io/gorm"

	"academy_backend/internals/features/home/notifications/model"
)

const insertBatchSize = 500

// NotificationStore appends notifications; rows are never updated or deleted here.
type NotificationStore interface {
	InsertNotifications(ctx context.Context, rows []model.NotificationModel) error
}

type GormNotificationStore struct {
	DB *gorm.DB
}

var _ NotificationStore = (*GormNotificationStore)(nil)

func NewGormNotificationStore(db *gorm.DB) *GormNotificationStore {
	return &GormNotificationStore{DB: db}
}

func (s *GormNotificationStore) InsertNotifications(ctx context.Context, rows []model.NotificationModel) error {
	if len(rows) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).CreateInBatches(&rows, insertBatchSize).Error
}
