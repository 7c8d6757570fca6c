package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
)

// UserRepository manages member records outside the quota procedures.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Upsert creates the user or updates email and subscription, leaving the
// quota and streak counters untouched.
func (r *UserRepository) Upsert(ctx context.Context, u *model.User) error {
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = model.SubscriptionFree
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, subscription_status, subscription_end)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET email = EXCLUDED.email,
		     subscription_status = EXCLUDED.subscription_status,
		     subscription_end = EXCLUDED.subscription_end
		 RETURNING daily_quizzes_count, streak_days, created_at`,
		u.ID, u.Email, u.SubscriptionStatus, u.SubscriptionEnd,
	).Scan(&u.DailyQuizzesCount, &u.StreakDays, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// FindByEmail looks a user up by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, subscription_status, subscription_end, daily_quizzes_count, streak_days, created_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.SubscriptionStatus, &u.SubscriptionEnd, &u.DailyQuizzesCount, &u.StreakDays, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ProUntil is a convenience for tooling that grants a pro subscription.
func ProUntil(days int) *time.Time {
	t := time.Now().AddDate(0, 0, days)
	return &t
}
