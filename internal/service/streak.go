package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StreakStore applies a streak update for the given calendar day to the user
// record.
type StreakStore interface {
	UpdateStreak(ctx context.Context, userID uuid.UUID, day time.Time) (int, error)
}

// StreakDay is the calendar day an activity at t counts towards. Both the
// inline updater and the queue use it, so a user's streak follows one clock.
func StreakDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DirectStreakUpdater updates the streak synchronously. Used when no Redis
// queue is configured.
type DirectStreakUpdater struct {
	store StreakStore
	now   func() time.Time
}

// NewDirectStreakUpdater creates a DirectStreakUpdater.
func NewDirectStreakUpdater(store StreakStore) *DirectStreakUpdater {
	return &DirectStreakUpdater{store: store, now: time.Now}
}

// UpdateStreak implements StreakUpdater.
func (u *DirectStreakUpdater) UpdateStreak(ctx context.Context, userID uuid.UUID) error {
	_, err := u.store.UpdateStreak(ctx, userID, StreakDay(u.now()))
	return err
}
