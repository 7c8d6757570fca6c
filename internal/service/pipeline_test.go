package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/toefl-quiz-backend/internal/limiter"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type pipeline struct {
	now        time.Time
	store      *memStore
	provider   *memProvider
	quotaStore *fakeQuota
	gen        *fakeGenerator
	quota      *QuotaService
	generation *GenerationService
	submission *SubmissionService
	reader     *QuizReadService
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	p := &pipeline{
		now:        testNow,
		store:      newMemStore(),
		quotaStore: newFakeQuota(),
		gen:        &fakeGenerator{},
	}
	p.provider = &memProvider{store: p.store}
	clock := func() time.Time { return p.now }

	guest := limiter.New(limiter.NewMemoryStore(), limiter.Rule{Limit: 1, Window: time.Hour})
	guest.SetClock(clock)

	p.quota = NewQuotaService(p.quotaStore, guest, 3, 24*time.Hour, nil, zerolog.Nop())
	p.quota.now = clock
	p.generation = NewGenerationService(p.quota, p.gen, p.provider, p.quotaStore, nil, zerolog.Nop())
	p.submission = NewSubmissionService(p.provider, nil, zerolog.Nop())
	p.submission.now = clock
	p.reader = NewQuizReadService(p.provider)
	p.reader.now = clock
	return p
}

func (p *pipeline) advance(d time.Duration) { p.now = p.now.Add(d) }

func vocabRequest() model.GenerateQuizRequest {
	return model.GenerateQuizRequest{
		Category:       model.CategoryVocabulary,
		Difficulty:     model.DifficultyEasy,
		QuestionsCount: 5,
	}
}

// answersFor answers the first `right` questions correctly and the rest wrong.
func answersFor(t *testing.T, p *pipeline, quizID uuid.UUID, right int) []model.SubmitAnswer {
	t.Helper()
	qs, err := p.provider.Privileged().ListQuestions(context.Background(), quizID)
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	out := make([]model.SubmitAnswer, 0, len(qs))
	for i, q := range qs {
		ans := q.CorrectAnswer
		if i >= right {
			ans = wrongAnswer(q.CorrectAnswer)
		}
		out = append(out, model.SubmitAnswer{QuestionID: q.ID.String(), Answer: ans})
	}
	return out
}

func wrongAnswer(correct string) string {
	if correct == "A" {
		return "B"
	}
	return "A"
}

func TestGuestGenerateThenSubmitScoresSixtyPercent(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	res, err := p.generation.Generate(ctx, model.Guest("198.51.100.4", ""), vocabRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Quiz.SessionToken == "" {
		t.Fatal("guest quiz has no session token")
	}
	if _, err := uuid.Parse(res.Quiz.SessionToken); err != nil {
		t.Errorf("session token %q is not a UUID", res.Quiz.SessionToken)
	}
	if res.Quiz.TimerMode != model.TimerModeNone || res.Quiz.QuizMode != model.QuizModeExam {
		t.Errorf("defaults not applied: %+v", res.Quiz)
	}
	if res.Quiz.ExpiresAt == nil || !res.Quiz.ExpiresAt.Equal(testNow.Add(24*time.Hour)) {
		t.Errorf("expiresAt = %v", res.Quiz.ExpiresAt)
	}
	if p.provider.privileged == 0 || len(p.provider.scoped) != 0 {
		t.Errorf("guest writes should use privileged access (privileged=%d scoped=%v)", p.provider.privileged, p.provider.scoped)
	}
	if len(p.gen.prompts) != 1 || p.gen.prompts[0].Task == "" {
		t.Fatalf("generator prompts = %+v", p.gen.prompts)
	}

	stored := p.store.quiz(res.Quiz.QuizID)
	if stored.UserID != nil || stored.SessionToken == nil || *stored.SessionToken != res.Quiz.SessionToken {
		t.Fatalf("stored owner = user %v token %v", stored.UserID, stored.SessionToken)
	}
	if stored.Completed || stored.Score != 0 {
		t.Errorf("new quiz should be incomplete with score 0: %+v", stored)
	}

	qs, _ := p.provider.Privileged().ListQuestions(ctx, res.Quiz.QuizID)
	for i, q := range qs {
		if q.OrderIndex != i {
			t.Errorf("question %d has order index %d", i, q.OrderIndex)
		}
	}

	caller := model.Guest("198.51.100.4", res.Quiz.SessionToken)
	got, err := p.submission.Submit(ctx, caller, res.Quiz.QuizID, answersFor(t, p, res.Quiz.QuizID, 3), 120)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.Score != 3 || got.Total != 5 || got.Percentage != 60 || got.TimeSpent != 120 {
		t.Errorf("result = %+v, want 3/5 60%% 120s", got)
	}

	stored = p.store.quiz(res.Quiz.QuizID)
	if !stored.Completed || stored.Score != 3 {
		t.Errorf("stored quiz = %+v", stored)
	}
	qs, _ = p.provider.Privileged().ListQuestions(ctx, res.Quiz.QuizID)
	for i, q := range qs {
		if q.UserAnswer == nil || q.IsCorrect == nil {
			t.Fatalf("question %d not graded", i)
		}
		if *q.IsCorrect != (i < 3) {
			t.Errorf("question %d is_correct = %v", i, *q.IsCorrect)
		}
	}
}

func TestGuestRateLimitWindow(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	guest := model.Guest("203.0.113.9", "")

	if _, err := p.generation.Generate(ctx, guest, vocabRequest()); err != nil {
		t.Fatalf("first: %v", err)
	}

	p.advance(15 * time.Minute)
	_, err := p.generation.Generate(ctx, guest, vocabRequest())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second: err = %v, want ErrRateLimited", err)
	}
	var rl *RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("second: %T is not *RateLimitedError", err)
	}
	if rl.ResetInMinutes() != 45 {
		t.Errorf("resetIn = %d minutes, want 45", rl.ResetInMinutes())
	}

	if _, err := p.generation.Generate(ctx, model.Guest("203.0.113.10", ""), vocabRequest()); err != nil {
		t.Fatalf("other address: %v", err)
	}

	p.advance(time.Hour)
	if _, err := p.generation.Generate(ctx, guest, vocabRequest()); err != nil {
		t.Fatalf("after window: %v", err)
	}
	if p.gen.calls != 3 {
		t.Errorf("generator calls = %d, want 3", p.gen.calls)
	}
}

func TestMemberDailyQuotaWithRollback(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	user := uuid.New()
	member := model.Member(user)

	if _, err := p.generation.Generate(ctx, member, vocabRequest()); err != nil {
		t.Fatalf("request 1: %v", err)
	}

	// Request 2 fails after reservation and must not count.
	p.store.failInsertQuestions = errors.New("disk full")
	_, err := p.generation.Generate(ctx, member, vocabRequest())
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Fatalf("request 2: err = %v, want ErrPersistenceFailed", err)
	}
	p.store.failInsertQuestions = nil
	if p.quotaStore.used[user] != 1 {
		t.Fatalf("used after rollback = %d, want 1", p.quotaStore.used[user])
	}

	for i := 2; i <= 3; i++ {
		if _, err := p.generation.Generate(ctx, member, vocabRequest()); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}

	_, err = p.generation.Generate(ctx, member, vocabRequest())
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("4th: err = %v, want ErrQuotaExceeded", err)
	}
	if errors.Is(err, ErrRateLimited) {
		t.Error("member denial must be distinguishable from guest rate limiting")
	}
	if p.store.count() != 3 {
		t.Errorf("stored quizzes = %d, want 3", p.store.count())
	}
	if len(p.quotaStore.streakCalls) != 3 {
		t.Errorf("streak updates = %d, want 3", len(p.quotaStore.streakCalls))
	}
	if len(p.provider.scoped) == 0 {
		t.Error("member writes should use scoped access")
	}
}

func TestGenerationFailureRollsBackAndStoresNothing(t *testing.T) {
	p := newPipeline(t)
	p.gen.err = errors.New("model overloaded")
	user := uuid.New()

	_, err := p.generation.Generate(context.Background(), model.Member(user), vocabRequest())
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
	if p.quotaStore.rollbacks != 1 || p.quotaStore.used[user] != 0 {
		t.Errorf("rollbacks = %d used = %d", p.quotaStore.rollbacks, p.quotaStore.used[user])
	}
	if p.store.count() != 0 {
		t.Errorf("stored quizzes = %d, want 0", p.store.count())
	}
}

func TestQuizInsertFailureRollsBack(t *testing.T) {
	p := newPipeline(t)
	p.store.failInsertQuiz = errors.New("connection refused")
	user := uuid.New()

	_, err := p.generation.Generate(context.Background(), model.Member(user), vocabRequest())
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Fatalf("err = %v", err)
	}
	if p.quotaStore.rollbacks != 1 {
		t.Errorf("rollbacks = %d, want 1", p.quotaStore.rollbacks)
	}
	if len(p.store.deleted) != 0 {
		t.Errorf("no quiz row exists, nothing to delete: %v", p.store.deleted)
	}
}

func TestQuestionInsertFailureDeletesGuestQuiz(t *testing.T) {
	p := newPipeline(t)
	p.store.failInsertQuestions = errors.New("constraint violation")

	_, err := p.generation.Generate(context.Background(), model.Guest("192.0.2.1", ""), vocabRequest())
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Fatalf("err = %v", err)
	}
	if len(p.store.deleted) != 1 || p.store.count() != 0 {
		t.Errorf("orphan quiz not removed: deleted=%v count=%d", p.store.deleted, p.store.count())
	}
	if p.quotaStore.rollbacks != 0 {
		t.Errorf("guest admissions are not rolled back, got %d", p.quotaStore.rollbacks)
	}
}

func TestStreakFailureDoesNotFailGeneration(t *testing.T) {
	p := newPipeline(t)
	p.quotaStore.streakErr = errors.New("timeout")

	if _, err := p.generation.Generate(context.Background(), model.Member(uuid.New()), vocabRequest()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

func TestReservationErrorPropagates(t *testing.T) {
	p := newPipeline(t)
	p.quotaStore.reserveErr = errors.New("db down")

	_, err := p.generation.Generate(context.Background(), model.Member(uuid.New()), vocabRequest())
	if err == nil || errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want infrastructure error", err)
	}
	if p.gen.calls != 0 || p.quotaStore.rollbacks != 0 {
		t.Errorf("calls=%d rollbacks=%d, want 0/0", p.gen.calls, p.quotaStore.rollbacks)
	}
}
