package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
	"github.com/stemsi/toefl-quiz-backend/internal/repository"
)

// QuizReadService loads a quiz for its owner.
type QuizReadService struct {
	access AccessProvider
	now    func() time.Time
}

// NewQuizReadService creates a new QuizReadService.
func NewQuizReadService(access AccessProvider) *QuizReadService {
	return &QuizReadService{access: access, now: time.Now}
}

// Get returns the quiz with its questions in order. Correct answers and
// explanations are hidden until the quiz is completed, except in learning mode.
func (s *QuizReadService) Get(ctx context.Context, caller model.Caller, quizID uuid.UUID) (*model.QuizDetail, error) {
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

	questions, err := privileged.ListQuestions(ctx, quiz.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	reveal := quiz.Completed || quiz.QuizMode == model.QuizModeLearning
	return &model.QuizDetail{
		Quiz: quiz,
		Questions: lo.Map(questions, func(q model.Question, _ int) model.QuestionForUser {
			return q.ForUser(reveal)
		}),
	}, nil
}
