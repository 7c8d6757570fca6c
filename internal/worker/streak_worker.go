package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/toefl-quiz-backend/internal/config"
	"github.com/stemsi/toefl-quiz-backend/internal/observability"
	"github.com/stemsi/toefl-quiz-backend/internal/service"
)

const (
	StreakPollTimeout = 1 * time.Second
	StreakRetryDelay  = 5 * time.Second
	// streakClaimTTL outlives the day the claim is keyed on.
	streakClaimTTL = 25 * time.Hour
)

type streakPayload struct {
	UserID string `json:"user_id"`
	Day    string `json:"day"`
}

// StreakQueue enqueues streak updates. It implements service.StreakUpdater
// and enqueues at most one update per user per service.StreakDay. The day
// travels with the payload, so the database applies the update to the same
// day the claim was taken for.
type StreakQueue struct {
	queue Queue
	now   func() time.Time
}

// NewStreakQueue creates a StreakQueue.
func NewStreakQueue(queue Queue) *StreakQueue {
	return &StreakQueue{queue: queue, now: time.Now}
}

// UpdateStreak implements service.StreakUpdater.
func (q *StreakQueue) UpdateStreak(ctx context.Context, userID uuid.UUID) error {
	day := service.StreakDay(q.now()).Format(time.DateOnly)
	lockKey := config.CacheKey.UserStreakLockKey(userID, day)

	claimed, err := q.queue.Claim(ctx, lockKey, streakClaimTTL)
	if err != nil {
		return fmt.Errorf("claim streak update: %w", err)
	}
	if !claimed {
		return nil
	}

	payload, err := json.Marshal(streakPayload{UserID: userID.String(), Day: day})
	if err != nil {
		return err
	}
	if err := q.queue.Push(ctx, payload); err != nil {
		_ = q.queue.Release(context.WithoutCancel(ctx), lockKey)
		return fmt.Errorf("enqueue streak update: %w", err)
	}
	return nil
}

// StreakWorker consumes streak_update_queue and applies each update to the
// user record.
type StreakWorker struct {
	queue      Queue
	store      service.StreakStore
	metrics    *observability.Metrics
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewStreakWorker creates a new StreakWorker.
func NewStreakWorker(queue Queue, store service.StreakStore, metrics *observability.Metrics, log zerolog.Logger) *StreakWorker {
	return &StreakWorker{
		queue:      queue,
		store:      store,
		metrics:    metrics,
		retryDelay: StreakRetryDelay,
		log:        log.With().Str("component", "streak_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *StreakWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *StreakWorker) processNext(ctx context.Context) {
	raw, err := w.queue.Pop(ctx, StreakPollTimeout)
	if err != nil {
		if !errors.Is(err, ErrQueueEmpty) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Pop error")
		}
		return
	}

	if err := w.apply(ctx, raw); err != nil {
		w.log.Error().Err(err).Msg("Streak update failed, retrying")
		w.metrics.ObserveStreakUpdate("error")
		// Push back to queue for retry.
		if pushErr := w.queue.Push(context.WithoutCancel(ctx), raw); pushErr != nil {
			w.log.Error().Err(pushErr).Msg("Requeue failed, update dropped")
		}
		select {
		case <-ctx.Done():
		case <-time.After(w.retryDelay):
		}
	}
}

// apply returns an error only for failures worth retrying. Malformed
// payloads are logged and dropped.
func (w *StreakWorker) apply(ctx context.Context, raw []byte) error {
	var p streakPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		w.metrics.ObserveStreakUpdate("dropped")
		return nil
	}
	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		w.log.Error().Err(err).Str("user_id", p.UserID).Msg("Invalid user id")
		w.metrics.ObserveStreakUpdate("dropped")
		return nil
	}

	day, err := time.Parse(time.DateOnly, p.Day)
	if err != nil {
		w.log.Error().Err(err).Str("day", p.Day).Msg("Invalid streak day")
		w.metrics.ObserveStreakUpdate("dropped")
		return nil
	}

	streak, err := w.store.UpdateStreak(ctx, userID, day)
	if err != nil {
		return err
	}

	w.metrics.ObserveStreakUpdate("ok")
	w.log.Debug().Str("user_id", p.UserID).Str("day", p.Day).Int("streak", streak).Msg("Streak updated")
	return nil
}

// drain processes all remaining items in the queue before shutdown.
func (w *StreakWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.queue.PopNow(ctx)
		if err != nil {
			break
		}
		if err := w.apply(ctx, raw); err != nil {
			w.log.Error().Err(err).Msg("Drain update error")
			_ = w.queue.Push(ctx, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
