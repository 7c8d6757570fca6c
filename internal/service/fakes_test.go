package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/toefl-quiz-backend/internal/ai"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
	"github.com/stemsi/toefl-quiz-backend/internal/prompt"
	"github.com/stemsi/toefl-quiz-backend/internal/repository"
)

// memStore is an in-memory quiz store shared by every DataAccess handed out
// by memProvider.
type memStore struct {
	mu        sync.Mutex
	quizzes   map[uuid.UUID]*model.Quiz
	questions map[uuid.UUID][]model.Question

	failInsertQuiz      error
	failInsertQuestions error
	failSaveAnswers     error
	failComplete        error
	deleted             []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		quizzes:   make(map[uuid.UUID]*model.Quiz),
		questions: make(map[uuid.UUID][]model.Question),
	}
}

// memAccess records which mode it was created for.
type memAccess struct {
	store *memStore
	user  *uuid.UUID
}

type memProvider struct {
	store      *memStore
	privileged int
	scoped     []uuid.UUID
}

func (p *memProvider) Privileged() repository.DataAccess {
	p.privileged++
	return &memAccess{store: p.store}
}

func (p *memProvider) ForUser(id uuid.UUID) repository.DataAccess {
	p.scoped = append(p.scoped, id)
	return &memAccess{store: p.store, user: &id}
}

// visible mimics row level security for scoped access.
func (a *memAccess) visible(q *model.Quiz) bool {
	return a.user == nil || (q.UserID != nil && *q.UserID == *a.user)
}

func (a *memAccess) InsertQuiz(_ context.Context, q *model.Quiz) error {
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsertQuiz != nil {
		return s.failInsertQuiz
	}
	if (q.UserID == nil) == (q.SessionToken == nil) {
		return errors.New("quiz must have exactly one owner")
	}
	if a.user != nil && (q.UserID == nil || *q.UserID != *a.user) {
		return errors.New("row level security violation")
	}
	q.ID = uuid.New()
	q.CreatedAt = time.Now()
	cp := *q
	s.quizzes[q.ID] = &cp
	return nil
}

func (a *memAccess) DeleteQuiz(_ context.Context, id uuid.UUID) error {
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quizzes, id)
	delete(s.questions, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (a *memAccess) InsertQuestions(_ context.Context, quizID uuid.UUID, qs []model.Question) error {
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsertQuestions != nil {
		return s.failInsertQuestions
	}
	for _, q := range qs {
		q.ID = uuid.New()
		q.QuizID = quizID
		s.questions[quizID] = append(s.questions[quizID], q)
	}
	return nil
}

func (a *memAccess) GetQuiz(_ context.Context, id uuid.UUID) (*model.Quiz, error) {
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[id]
	if !ok || !a.visible(q) {
		return nil, repository.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (a *memAccess) ListQuestions(_ context.Context, quizID uuid.UUID) ([]model.Question, error) {
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]model.Question(nil), s.questions[quizID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (a *memAccess) SaveAnswers(_ context.Context, quizID uuid.UUID, graded []model.GradedAnswer) error {
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaveAnswers != nil {
		return s.failSaveAnswers
	}
	qs := s.questions[quizID]
	for _, g := range graded {
		for i := range qs {
			if qs[i].ID == g.QuestionID {
				correct := g.IsCorrect
				qs[i].UserAnswer = g.UserAnswer
				qs[i].IsCorrect = &correct
			}
		}
	}
	return nil
}

func (a *memAccess) CompleteQuiz(_ context.Context, id uuid.UUID, score, timeSpent int) error {
	s := a.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failComplete != nil {
		return s.failComplete
	}
	q, ok := s.quizzes[id]
	if !ok || q.Completed {
		return repository.ErrAlreadyCompleted
	}
	q.Score = score
	q.TimeSpentSeconds = &timeSpent
	q.Completed = true
	return nil
}

func (a *memAccess) InTx(_ context.Context, fn func(repository.DataAccess) error) error {
	return fn(a)
}

func (s *memStore) quiz(id uuid.UUID) *model.Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quizzes[id]
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quizzes)
}

// fakeQuota mirrors the reservation procedure: one counter per user per day.
type fakeQuota struct {
	mu          sync.Mutex
	used        map[uuid.UUID]int
	pro         map[uuid.UUID]bool
	reserveErr  error
	rollbacks   int
	streakCalls []uuid.UUID
	streakErr   error
}

func newFakeQuota() *fakeQuota {
	return &fakeQuota{used: make(map[uuid.UUID]int), pro: make(map[uuid.UUID]bool)}
}

func (f *fakeQuota) Reserve(_ context.Context, id uuid.UUID, limit int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserveErr != nil {
		return false, f.reserveErr
	}
	if f.pro[id] {
		return true, nil
	}
	if f.used[id] >= limit {
		return false, nil
	}
	f.used[id]++
	return true, nil
}

func (f *fakeQuota) Rollback(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rollbacks++
	if f.used[id] > 0 {
		f.used[id]--
	}
	return nil
}

func (f *fakeQuota) UpdateStreak(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streakCalls = append(f.streakCalls, id)
	return f.streakErr
}

// fakeGenerator returns n questions whose correct answers cycle A..D, or err.
type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []prompt.Prompt
	err     error
}

func (g *fakeGenerator) Generate(_ context.Context, p prompt.Prompt) (*ai.ValidatedQuiz, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, p)
	if g.err != nil {
		return nil, g.err
	}
	passage := "Shared passage."
	quiz := &ai.ValidatedQuiz{}
	for i := 0; i < 5; i++ {
		quiz.Questions = append(quiz.Questions, ai.GeneratedQuestion{
			QuestionType:  model.QuestionTypeMultipleChoice,
			Passage:       &passage,
			QuestionText:  fmt.Sprintf("Question %d", i+1),
			Options:       []string{"A) a", "B) b", "C) c", "D) d"},
			CorrectAnswer: string(rune('A' + i%4)),
			Explanation:   "Because.",
		})
	}
	return quiz, nil
}
