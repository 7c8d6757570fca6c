package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
	"github.com/stemsi/toefl-quiz-backend/internal/observability"
	"github.com/stemsi/toefl-quiz-backend/internal/repository"
)

// SubmissionService grades submitted answers and completes quizzes.
type SubmissionService struct {
	access  AccessProvider
	now     func() time.Time
	metrics *observability.Metrics
	log     zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(access AccessProvider, metrics *observability.Metrics, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		access:  access,
		now:     time.Now,
		metrics: metrics,
		log:     log.With().Str("component", "submission_service").Logger(),
	}
}

// Submit authorizes the caller, grades answers against the stored key and
// marks the quiz completed. A quiz can be completed only once.
func (s *SubmissionService) Submit(ctx context.Context, caller model.Caller, quizID uuid.UUID, answers []model.SubmitAnswer, timeSpent int) (*model.SubmitQuizResponse, error) {
	res, err := s.submit(ctx, caller, quizID, answers, timeSpent)
	s.metrics.ObserveSubmission(submissionOutcome(err), res)
	return res, err
}

func (s *SubmissionService) submit(ctx context.Context, caller model.Caller, quizID uuid.UUID, answers []model.SubmitAnswer, timeSpent int) (*model.SubmitQuizResponse, error) {
	privileged := s.access.Privileged()

	quiz, err := privileged.GetQuiz(ctx, quizID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	if err := authorizeOwner(quiz, caller, s.now()); err != nil {
		return nil, err
	}
	if quiz.Completed {
		return nil, ErrAlreadyCompleted
	}

	questions, err := privileged.ListQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	graded, score := Grade(questions, answers)

	writer := accessFor(s.access, quiz.UserID)
	err = writer.InTx(ctx, func(tx repository.DataAccess) error {
		if err := tx.SaveAnswers(ctx, quiz.ID, graded); err != nil {
			return fmt.Errorf("save answers: %w", err)
		}
		return tx.CompleteQuiz(ctx, quiz.ID, score, timeSpent)
	})
	if errors.Is(err, repository.ErrAlreadyCompleted) {
		return nil, ErrAlreadyCompleted
	}
	if err != nil {
		s.log.Error().Err(err).Str("quiz_id", quiz.ID.String()).Msg("Failed to record submission")
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	total := len(questions)
	s.log.Info().
		Str("quiz_id", quiz.ID.String()).
		Int("score", score).
		Int("total", total).
		Msg("Quiz submitted")

	return &model.SubmitQuizResponse{
		QuizID:     quiz.ID,
		Score:      score,
		Total:      total,
		Percentage: Percentage(score, total),
		TimeSpent:  timeSpent,
	}, nil
}

// Grade compares answers to each question's key in question order. Answers
// are matched by question ID, first match wins; unanswered questions count as
// wrong. Comparison is case-sensitive.
func Grade(questions []model.Question, answers []model.SubmitAnswer) ([]model.GradedAnswer, int) {
	byQuestion := make(map[string]string, len(answers))
	for _, a := range answers {
		id, err := uuid.Parse(a.QuestionID)
		if err != nil {
			continue
		}
		if _, seen := byQuestion[id.String()]; !seen {
			byQuestion[id.String()] = a.Answer
		}
	}

	graded := make([]model.GradedAnswer, 0, len(questions))
	score := 0
	for _, q := range questions {
		g := model.GradedAnswer{QuestionID: q.ID}
		if ans, ok := byQuestion[q.ID.String()]; ok {
			g.UserAnswer = &ans
			g.IsCorrect = ans == q.CorrectAnswer
		}
		if g.IsCorrect {
			score++
		}
		graded = append(graded, g)
	}
	return graded, score
}

// Percentage returns correct/total as a whole percentage, rounded half away from zero.
func Percentage(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

func submissionOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrQuizNotFound), errors.Is(err, ErrNoQuestions):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrQuizExpired):
		return "expired"
	case errors.Is(err, ErrAlreadyCompleted):
		return "already_completed"
	default:
		return "error"
	}
}
