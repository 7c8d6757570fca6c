package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuotaRepository calls the quota and housekeeping procedures. Each call is a
// single statement, so the procedures' own transaction provides atomicity.
type QuotaRepository struct {
	pool *pgxpool.Pool
}

// NewQuotaRepository creates a new QuotaRepository.
func NewQuotaRepository(pool *pgxpool.Pool) *QuotaRepository {
	return &QuotaRepository{pool: pool}
}

// Reserve takes one of today's slots for userID. Returns false when the
// daily limit is already used up.
func (r *QuotaRepository) Reserve(ctx context.Context, userID uuid.UUID, dailyLimit int) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT check_and_reserve_quiz_limit($1, $2)`, userID, dailyLimit,
	).Scan(&ok)
	return ok, err
}

// Rollback releases a slot taken by Reserve.
func (r *QuotaRepository) Rollback(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `SELECT rollback_quiz_reservation($1)`, userID)
	return err
}

// UpdateStreak records activity on day and returns the resulting streak.
// Only the calendar date of day is used.
func (r *QuotaRepository) UpdateStreak(ctx context.Context, userID uuid.UUID, day time.Time) (int, error) {
	var days int
	err := r.pool.QueryRow(ctx,
		`SELECT update_user_streak($1, $2::date)`, userID, day.Format(time.DateOnly),
	).Scan(&days)
	return days, err
}

// CleanupExpiredGuestQuizzes deletes guest quizzes that expired more than
// retention ago and returns how many were removed.
func (r *QuotaRepository) CleanupExpiredGuestQuizzes(ctx context.Context, retention time.Duration) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT cleanup_expired_guest_quizzes($1)`, RetentionHours(retention),
	).Scan(&n)
	return n, err
}

// RetentionHours converts a retention period to the whole hours the cleanup
// procedure takes, rounding up so quizzes are never purged early.
func RetentionHours(retention time.Duration) int {
	if retention <= 0 {
		return 0
	}
	hours := retention / time.Hour
	if retention%time.Hour != 0 {
		hours++
	}
	return int(hours)
}
