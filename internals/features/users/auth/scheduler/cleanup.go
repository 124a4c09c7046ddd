package scheduler

import (
	"context"
	"fmt"
	"time"

	"academy_backend/internals/features/users/auth/repository"
	"academy_backend/internals/helpers/logger"
)

// SessionReaper expires sessions idle for longer than IdleTimeout. It keeps no state
// of its own; every run is a single statement against the shared store.
type SessionReaper struct {
	Store       repository.SessionStore
	IdleTimeout time.Duration
	Log         *logger.Logger
}

func NewSessionReaper(store repository.SessionStore, idle time.Duration, log *logger.Logger) *SessionReaper {
	if log == nil {
		log = logger.New("SESSION-REAPER")
	}
	return &SessionReaper{Store: store, IdleTimeout: idle, Log: log}
}

// Run deactivates sessions whose last_active is before now-IdleTimeout.
func (r *SessionReaper) Run(ctx context.Context, now time.Time) (int, error) {
	if r.IdleTimeout <= 0 {
		return 0, fmt.Errorf("session idle timeout must be positive, got %s", r.IdleTimeout)
	}
	threshold := now.Add(-r.IdleTimeout)

	n, err := r.Store.DeactivateIdleSessions(ctx, threshold)
	if err != nil {
		return 0, fmt.Errorf("deactivate idle sessions: %w", err)
	}
	if n > 0 {
		r.Log.Infof("%d idle sessions expired (last_active < %s)", n, threshold.Format(time.RFC3339))
	}
	return int(n), nil
}
