package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/stemsi/toefl-quiz-backend/internal/ai"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
	"github.com/stemsi/toefl-quiz-backend/internal/observability"
	"github.com/stemsi/toefl-quiz-backend/internal/prompt"
)

// QuizGenerator produces validated quiz content for a prompt.
type QuizGenerator interface {
	Generate(ctx context.Context, p prompt.Prompt) (*ai.ValidatedQuiz, error)
}

// StreakUpdater records member activity after a quiz is created.
type StreakUpdater interface {
	UpdateStreak(ctx context.Context, userID uuid.UUID) error
}

// GenerationResult is a created quiz plus the admission that allowed it.
type GenerationResult struct {
	Quiz      model.GenerateQuizResponse
	Admission *Admission
}

// GenerationService creates quizzes: admission, generation, then storage.
type GenerationService struct {
	quota   *QuotaService
	gen     QuizGenerator
	access  AccessProvider
	streak  StreakUpdater
	metrics *observability.Metrics
	log     zerolog.Logger
}

// NewGenerationService creates a new GenerationService. streak may be nil.
func NewGenerationService(quota *QuotaService, gen QuizGenerator, access AccessProvider, streak StreakUpdater, metrics *observability.Metrics, log zerolog.Logger) *GenerationService {
	return &GenerationService{
		quota:   quota,
		gen:     gen,
		access:  access,
		streak:  streak,
		metrics: metrics,
		log:     log.With().Str("component", "generation_service").Logger(),
	}
}

// Generate admits the caller, generates questions and stores the quiz. A
// member's reserved slot is released on any failure after admission, and a
// quiz whose questions could not be stored is deleted again.
func (s *GenerationService) Generate(ctx context.Context, caller model.Caller, req model.GenerateQuizRequest) (*GenerationResult, error) {
	req.ApplyDefaults()
	start := time.Now()

	adm, err := s.quota.Admit(ctx, caller)
	if err != nil {
		return nil, err
	}

	// Compensation must run even if the client has gone away.
	cleanupCtx := context.WithoutCancel(ctx)
	log := s.log.With().
		Str("category", string(req.Category)).
		Str("difficulty", string(req.Difficulty)).
		Int("questions_count", req.QuestionsCount).
		Bool("guest", adm.IsGuest()).
		Logger()

	p := prompt.Build(req.Category, req.Difficulty, req.QuestionsCount)
	generated, err := s.gen.Generate(ctx, p)
	if err != nil {
		log.Error().Err(err).Msg("Quiz generation failed")
		_ = s.quota.Rollback(cleanupCtx, adm)
		s.metrics.ObserveGeneration(string(req.Category), "generation_failed", time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	access := accessFor(s.access, adm.UserID)

	quiz := &model.Quiz{
		UserID:         adm.UserID,
		Category:       req.Category,
		Difficulty:     req.Difficulty,
		QuestionsCount: req.QuestionsCount,
		TimerMode:      req.TimerMode,
		QuizMode:       req.QuizMode,
		ExpiresAt:      adm.ExpiresAt,
	}
	if adm.IsGuest() {
		quiz.SessionToken = &adm.SessionToken
	}

	if err := access.InsertQuiz(ctx, quiz); err != nil {
		log.Error().Err(err).Msg("Failed to create quiz")
		_ = s.quota.Rollback(cleanupCtx, adm)
		s.metrics.ObserveGeneration(string(req.Category), "persistence_failed", time.Since(start))
		return nil, fmt.Errorf("%w: insert quiz: %w", ErrPersistenceFailed, err)
	}

	questions := lo.Map(generated.Questions, func(q ai.GeneratedQuestion, i int) model.Question {
		return model.Question{
			QuizID:        quiz.ID,
			QuestionType:  q.QuestionType,
			Passage:       normalizePassage(q.Passage),
			QuestionText:  q.QuestionText,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			OrderIndex:    i,
		}
	})

	if err := access.InsertQuestions(ctx, quiz.ID, questions); err != nil {
		log.Error().Err(err).Str("quiz_id", quiz.ID.String()).Msg("Failed to create questions")
		if delErr := access.DeleteQuiz(cleanupCtx, quiz.ID); delErr != nil {
			log.Error().Err(delErr).Str("quiz_id", quiz.ID.String()).Msg("Failed to delete orphaned quiz")
		}
		_ = s.quota.Rollback(cleanupCtx, adm)
		s.metrics.ObserveGeneration(string(req.Category), "persistence_failed", time.Since(start))
		return nil, fmt.Errorf("%w: insert questions: %w", ErrPersistenceFailed, err)
	}

	if !adm.IsGuest() && s.streak != nil {
		if err := s.streak.UpdateStreak(ctx, *adm.UserID); err != nil {
			log.Warn().Err(err).Msg("Failed to update streak")
		}
	}

	s.metrics.ObserveGeneration(string(req.Category), "ok", time.Since(start))
	log.Info().Str("quiz_id", quiz.ID.String()).Int("questions", len(questions)).Msg("Quiz created")

	return &GenerationResult{
		Quiz: model.GenerateQuizResponse{
			QuizID:         quiz.ID,
			Category:       req.Category,
			Difficulty:     req.Difficulty,
			QuestionsCount: req.QuestionsCount,
			TimerMode:      req.TimerMode,
			QuizMode:       req.QuizMode,
			SessionToken:   adm.SessionToken,
			ExpiresAt:      adm.ExpiresAt,
		},
		Admission: adm,
	}, nil
}

// normalizePassage stores blank passages as NULL.
func normalizePassage(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	return p
}
