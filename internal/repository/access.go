package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyCompleted is returned when completing a quiz that is already completed.
	ErrAlreadyCompleted = errors.New("quiz already completed")
)

// memberRole is the database role identity-scoped transactions switch into.
const memberRole = "quiz_member"

// DataAccess is the storage capability a request works through. One
// implementation runs with service privileges; the other runs every statement
// inside a transaction scoped to a single user by row level security.
type DataAccess interface {
	// InsertQuiz stores q and fills in its ID and CreatedAt.
	InsertQuiz(ctx context.Context, q *model.Quiz) error
	DeleteQuiz(ctx context.Context, id uuid.UUID) error
	// InsertQuestions bulk-inserts questions for quizID in one statement.
	InsertQuestions(ctx context.Context, quizID uuid.UUID, questions []model.Question) error
	GetQuiz(ctx context.Context, id uuid.UUID) (*model.Quiz, error)
	// ListQuestions returns the quiz's questions ordered by order index.
	ListQuestions(ctx context.Context, quizID uuid.UUID) ([]model.Question, error)
	// SaveAnswers writes user_answer and is_correct for every graded question.
	SaveAnswers(ctx context.Context, quizID uuid.UUID, answers []model.GradedAnswer) error
	// CompleteQuiz records the final score. Returns ErrAlreadyCompleted if
	// the quiz was completed before.
	CompleteQuiz(ctx context.Context, id uuid.UUID, score, timeSpentSeconds int) error
	// InTx runs fn against a DataAccess bound to a single transaction.
	InTx(ctx context.Context, fn func(DataAccess) error) error
}

// dbtx is the query surface shared by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// runner executes fn with a connection or transaction to query through.
type runner func(ctx context.Context, fn func(dbtx) error) error

// AccessFactory hands out DataAccess implementations over one pool.
type AccessFactory struct {
	pool       *pgxpool.Pool
	privileged DataAccess
}

// NewAccessFactory creates an AccessFactory.
func NewAccessFactory(pool *pgxpool.Pool) *AccessFactory {
	return &AccessFactory{
		pool:       pool,
		privileged: NewPrivilegedAccess(pool),
	}
}

// Privileged returns service-mode access that bypasses row level security.
func (f *AccessFactory) Privileged() DataAccess {
	return f.privileged
}

// ForUser returns access restricted to rows owned by userID.
func (f *AccessFactory) ForUser(userID uuid.UUID) DataAccess {
	return NewScopedAccess(f.pool, userID)
}

// NewPrivilegedAccess returns a DataAccess that queries the pool directly.
func NewPrivilegedAccess(pool *pgxpool.Pool) DataAccess {
	return &quizAccess{
		run: func(ctx context.Context, fn func(dbtx) error) error {
			return fn(pool)
		},
		begin: func(ctx context.Context, fn func(pgx.Tx) error) error {
			return pgx.BeginFunc(ctx, pool, fn)
		},
	}
}

// NewScopedAccess returns a DataAccess whose statements each run in a
// transaction as the quiz_member role with app.user_id set to userID.
func NewScopedAccess(pool *pgxpool.Pool, userID uuid.UUID) DataAccess {
	begin := func(ctx context.Context, fn func(pgx.Tx) error) error {
		return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `SELECT set_config('app.user_id', $1, true)`, userID.String()); err != nil {
				return fmt.Errorf("set app.user_id: %w", err)
			}
			if _, err := tx.Exec(ctx, `SET LOCAL ROLE `+memberRole); err != nil {
				return fmt.Errorf("set role: %w", err)
			}
			return fn(tx)
		})
	}
	return &quizAccess{
		run: func(ctx context.Context, fn func(dbtx) error) error {
			return begin(ctx, func(tx pgx.Tx) error { return fn(tx) })
		},
		begin: begin,
	}
}

// quizAccess implements DataAccess on top of a runner.
type quizAccess struct {
	run   runner
	begin func(ctx context.Context, fn func(pgx.Tx) error) error
}

// InTx implements DataAccess.
func (a *quizAccess) InTx(ctx context.Context, fn func(DataAccess) error) error {
	return a.begin(ctx, func(tx pgx.Tx) error {
		inner := &quizAccess{
			run: func(ctx context.Context, f func(dbtx) error) error { return f(tx) },
			// Nested InTx reuses the outer transaction.
			begin: func(ctx context.Context, f func(pgx.Tx) error) error { return f(tx) },
		}
		return fn(inner)
	})
}
