package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/toefl-quiz-backend/internal/config"
	"github.com/stemsi/toefl-quiz-backend/internal/limiter"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
	"github.com/stemsi/toefl-quiz-backend/internal/observability"
)

// QuotaStore performs the atomic daily reservation for members.
type QuotaStore interface {
	Reserve(ctx context.Context, userID uuid.UUID, dailyLimit int) (bool, error)
	Rollback(ctx context.Context, userID uuid.UUID) error
}

// Admission is a granted permission to create one quiz.
type Admission struct {
	// UserID is set for members.
	UserID *uuid.UUID
	// SessionToken and ExpiresAt are set for guests.
	SessionToken string
	ExpiresAt    *time.Time
	// Window is the guest limiter state after this admission.
	Window *limiter.Result
}

// IsGuest reports whether the admission was granted on the guest path.
func (a *Admission) IsGuest() bool {
	return a.UserID == nil
}

// QuotaService decides whether a caller may generate a quiz.
type QuotaService struct {
	store      QuotaStore
	guest      *limiter.Limiter
	dailyLimit int
	guestTTL   time.Duration
	now        func() time.Time
	newToken   func() (string, error)
	metrics    *observability.Metrics
	log        zerolog.Logger
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(store QuotaStore, guest *limiter.Limiter, dailyLimit int, guestTTL time.Duration, metrics *observability.Metrics, log zerolog.Logger) *QuotaService {
	return &QuotaService{
		store:      store,
		guest:      guest,
		dailyLimit: dailyLimit,
		guestTTL:   guestTTL,
		now:        time.Now,
		newToken:   newSessionToken,
		metrics:    metrics,
		log:        log.With().Str("component", "quota_service").Logger(),
	}
}

// newSessionToken returns a version 4 UUID drawn from crypto/rand.
func newSessionToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Admit grants or denies one quiz generation. Members take a slot of their
// daily quota; guests are limited per address and receive a session token.
func (s *QuotaService) Admit(ctx context.Context, caller model.Caller) (*Admission, error) {
	if caller.IsMember() {
		return s.admitMember(ctx, *caller.UserID)
	}
	return s.admitGuest(ctx, caller.Address)
}

func (s *QuotaService) admitMember(ctx context.Context, userID uuid.UUID) (*Admission, error) {
	ok, err := s.store.Reserve(ctx, userID, s.dailyLimit)
	if err != nil {
		s.metrics.ObserveAdmission("member", "error")
		return nil, fmt.Errorf("reserve quota: %w", err)
	}
	if !ok {
		s.metrics.ObserveAdmission("member", "quota_exceeded")
		s.log.Info().Str("user_id", userID.String()).Msg("Daily quiz limit reached")
		return nil, ErrQuotaExceeded
	}

	s.metrics.ObserveAdmission("member", "granted")
	return &Admission{UserID: &userID}, nil
}

func (s *QuotaService) admitGuest(ctx context.Context, address string) (*Admission, error) {
	res, err := s.guest.Allow(ctx, config.CacheKey.GuestQuizLimitKey(address))
	if err != nil {
		s.metrics.ObserveAdmission("guest", "error")
		return nil, err
	}

	if !res.Allowed {
		s.metrics.ObserveAdmission("guest", "rate_limited")
		s.log.Info().Str("address", address).Time("reset_at", res.ResetAt).Msg("Guest rate limited")
		return nil, &RateLimitedError{Result: res, ResetIn: res.ResetIn(s.guest.Now())}
	}

	token, err := s.newToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	expiresAt := s.now().Add(s.guestTTL)

	s.metrics.ObserveAdmission("guest", "granted")
	return &Admission{
		SessionToken: token,
		ExpiresAt:    &expiresAt,
		Window:       &res,
	}, nil
}

// Rollback releases a member's reserved slot after a downstream failure.
// Guest admissions are not refunded.
func (s *QuotaService) Rollback(ctx context.Context, adm *Admission) error {
	if adm == nil || adm.IsGuest() {
		return nil
	}
	if err := s.store.Rollback(ctx, *adm.UserID); err != nil {
		s.log.Error().Err(err).Str("user_id", adm.UserID.String()).Msg("Failed to roll back quota reservation")
		return fmt.Errorf("rollback quota: %w", err)
	}
	s.metrics.ObserveQuotaRollback()
	return nil
}
