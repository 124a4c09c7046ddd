package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"

	"academy_backend/internals/features/home/notifications/model"
	"academy_backend/internals/features/home/notifications/repository"
	"academy_backend/internals/helpers/logger"
)

// QuizEvent describes one quiz lifecycle event to fan out.
type QuizEvent struct {
	Kind      model.QuizEventKind
	QuizID    uuid.UUID
	QuizTitle string
}

func (e QuizEvent) title() string {
	switch e.Kind {
	case model.EventTestStarted:
		return "Test started"
	case model.EventTestEnded:
		return "Test ended"
	case model.EventResultsPublished:
		return "Results published"
	default:
		return "Test update"
	}
}

func (e QuizEvent) message() string {
	switch e.Kind {
	case model.EventTestStarted:
		return fmt.Sprintf("%q is now open. Good luck!", e.QuizTitle)
	case model.EventTestEnded:
		return fmt.Sprintf("%q has ended. Your attempt has been submitted.", e.QuizTitle)
	case model.EventResultsPublished:
		return fmt.Sprintf("Results for %q are now available.", e.QuizTitle)
	default:
		return e.QuizTitle
	}
}

// Dispatcher fans out one notification per user. No retry, no de-duplication:
// callers guarantee each event is dispatched once per quiz.
type Dispatcher struct {
	Store repository.NotificationStore
	Log   *logger.Logger
}

func NewDispatcher(store repository.NotificationStore, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.New("NOTIF")
	}
	return &Dispatcher{Store: store, Log: log}
}

// Notify inserts the batch and returns how many notifications were written.
func (d *Dispatcher) Notify(ctx context.Context, userIDs []uuid.UUID, ev QuizEvent) (int, error) {
	rows, err := BuildQuizNotifications(userIDs, ev)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := d.Store.InsertNotifications(ctx, rows); err != nil {
		return 0, fmt.Errorf("insert %s notifications for quiz %s: %w", ev.Kind, ev.QuizID, err)
	}
	d.Log.Infof("%s quiz=%s recipients=%d", ev.Kind, ev.QuizID, len(rows))
	return len(rows), nil
}

// BuildQuizNotifications makes one row per distinct user, preserving first-seen order.
func BuildQuizNotifications(userIDs []uuid.UUID, ev QuizEvent) ([]model.NotificationModel, error) {
	payload, err := json.Marshal(model.QuizNotificationData{
		QuizID:    ev.QuizID,
		QuizTitle: ev.QuizTitle,
		Event:     ev.Kind,
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	rows := make([]model.NotificationModel, 0, len(userIDs))
	for _, uid := range userIDs {
		if uid == uuid.Nil {
			continue
		}
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		rows = append(rows, model.NotificationModel{
			NotificationID:      uuid.New(),
			NotificationUserID:  uid,
			NotificationTitle:   ev.title(),
			NotificationMessage: ev.message(),
			NotificationType:    model.NotificationTypeQuiz,
			NotificationData:    datatypes.JSON(payload),
			NotificationTags:    pq.StringArray{model.NotificationTypeQuiz, string(ev.Kind)},
		})
	}
	return rows, nil
}
