package service

import (
	"errors"
	"math"
	"time"

	"github.com/stemsi/toefl-quiz-backend/internal/limiter"
)

// Quiz pipeline errors. Handlers map these onto HTTP statuses.
var (
	ErrRateLimited       = errors.New("guest rate limit exceeded")
	ErrQuotaExceeded     = errors.New("daily quiz limit reached")
	ErrGenerationFailed  = errors.New("quiz generation failed")
	ErrPersistenceFailed = errors.New("quiz persistence failed")
	ErrQuizNotFound      = errors.New("quiz not found")
	ErrNoQuestions       = errors.New("quiz has no questions")
	ErrForbidden         = errors.New("caller does not own this quiz")
	ErrQuizExpired       = errors.New("guest quiz expired")
	ErrAlreadyCompleted  = errors.New("quiz already completed")
)

// RateLimitedError carries the guest window state alongside ErrRateLimited.
type RateLimitedError struct {
	Result  limiter.Result
	ResetIn time.Duration
}

func (e *RateLimitedError) Error() string {
	return ErrRateLimited.Error()
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

// ResetInMinutes rounds the wait up to whole minutes.
func (e *RateLimitedError) ResetInMinutes() int {
	return int(math.Ceil(float64(e.ResetIn) / float64(time.Minute)))
}
