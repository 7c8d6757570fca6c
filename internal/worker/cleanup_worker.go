package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/toefl-quiz-backend/internal/observability"
)

// GuestQuizPurger deletes guest quizzes that expired more than retention ago.
type GuestQuizPurger interface {
	CleanupExpiredGuestQuizzes(ctx context.Context, retention time.Duration) (int, error)
}

// CleanupWorker periodically removes expired guest quizzes. A quiz is kept
// for retention after it expires so late submissions get QUIZ_EXPIRED
// instead of NOT_FOUND.
type CleanupWorker struct {
	store     GuestQuizPurger
	interval  time.Duration
	retention time.Duration
	metrics   *observability.Metrics
	log       zerolog.Logger
}

// NewCleanupWorker creates a new CleanupWorker.
func NewCleanupWorker(store GuestQuizPurger, interval, retention time.Duration, metrics *observability.Metrics, log zerolog.Logger) *CleanupWorker {
	return &CleanupWorker{
		store:     store,
		interval:  interval,
		retention: retention,
		metrics:   metrics,
		log:       log.With().Str("component", "cleanup_worker").Logger(),
	}
}

// Start runs one purge immediately, then every interval until ctx is done.
func (w *CleanupWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Dur("retention", w.retention).Msg("Worker started")

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *CleanupWorker) runOnce(ctx context.Context) {
	n, err := w.store.CleanupExpiredGuestQuizzes(ctx, w.retention)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Guest quiz cleanup failed")
		}
		return
	}
	w.metrics.AddGuestQuizzesPurged(n)
	if n > 0 {
		w.log.Info().Int("count", n).Msg("Expired guest quizzes removed")
	}
}
