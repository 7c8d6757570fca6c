package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
)

func generateFor(t *testing.T, p *pipeline, caller model.Caller) model.GenerateQuizResponse {
	t.Helper()
	res, err := p.generation.Generate(context.Background(), caller, vocabRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return res.Quiz
}

func TestSubmitTwiceIsRejected(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	user := uuid.New()
	quiz := generateFor(t, p, model.Member(user))

	first, err := p.submission.Submit(ctx, model.Member(user), quiz.QuizID, answersFor(t, p, quiz.QuizID, 4), 60)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err = p.submission.Submit(ctx, model.Member(user), quiz.QuizID, answersFor(t, p, quiz.QuizID, 0), 30)
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("second submit: err = %v, want ErrAlreadyCompleted", err)
	}
	if stored := p.store.quiz(quiz.QuizID); stored.Score != first.Score || *stored.TimeSpentSeconds != 60 {
		t.Errorf("score changed after resubmission: %+v", stored)
	}
}

func TestSubmitExpiredGuestQuiz(t *testing.T) {
	p := newPipeline(t)
	quiz := generateFor(t, p, model.Guest("192.0.2.1", ""))

	p.advance(24*time.Hour + time.Second)
	_, err := p.submission.Submit(context.Background(), model.Guest("192.0.2.1", quiz.SessionToken), quiz.QuizID, answersFor(t, p, quiz.QuizID, 5), 10)
	if !errors.Is(err, ErrQuizExpired) {
		t.Fatalf("err = %v, want ErrQuizExpired", err)
	}
	if stored := p.store.quiz(quiz.QuizID); stored.Completed || stored.Score != 0 {
		t.Errorf("expired quiz was scored: %+v", stored)
	}
}

func TestSubmitAuthorization(t *testing.T) {
	p := newPipeline(t)
	owner := uuid.New()
	memberQuiz := generateFor(t, p, model.Member(owner))
	guestQuiz := generateFor(t, p, model.Guest("192.0.2.1", ""))

	tests := []struct {
		name   string
		caller model.Caller
		quizID uuid.UUID
		want   error
	}{
		{"other member", model.Member(uuid.New()), memberQuiz.QuizID, ErrForbidden},
		{"guest on member quiz", model.Guest("192.0.2.1", guestQuiz.SessionToken), memberQuiz.QuizID, ErrForbidden},
		{"guest without token", model.Guest("192.0.2.1", ""), guestQuiz.QuizID, ErrForbidden},
		{"guest with wrong token", model.Guest("192.0.2.1", uuid.NewString()), guestQuiz.QuizID, ErrForbidden},
		{"member without token on guest quiz", model.Member(owner), guestQuiz.QuizID, ErrForbidden},
		{"unknown quiz", model.Member(owner), uuid.New(), ErrQuizNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.submission.Submit(context.Background(), tt.caller, tt.quizID, nil, 0)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubmitWrongTokenOnExpiredQuiz(t *testing.T) {
	p := newPipeline(t)
	quiz := generateFor(t, p, model.Guest("192.0.2.1", ""))
	p.advance(48 * time.Hour)

	// A foreign caller learns nothing about expiry.
	_, err := p.submission.Submit(context.Background(), model.Guest("192.0.2.1", "nope"), quiz.QuizID, nil, 0)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestSubmitSaveFailureLeavesQuizOpen(t *testing.T) {
	p := newPipeline(t)
	user := uuid.New()
	quiz := generateFor(t, p, model.Member(user))
	answers := answersFor(t, p, quiz.QuizID, 5)

	p.store.failSaveAnswers = errors.New("deadlock")
	_, err := p.submission.Submit(context.Background(), model.Member(user), quiz.QuizID, answers, 10)
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Fatalf("err = %v, want ErrPersistenceFailed", err)
	}
	if p.store.quiz(quiz.QuizID).Completed {
		t.Fatal("quiz completed although answers were not saved")
	}

	p.store.failSaveAnswers = nil
	res, err := p.submission.Submit(context.Background(), model.Member(user), quiz.QuizID, answers, 10)
	if err != nil || res.Score != 5 || res.Percentage != 100 {
		t.Fatalf("retry = %+v, %v", res, err)
	}
}

func TestSubmitQuizWithoutQuestions(t *testing.T) {
	p := newPipeline(t)
	token := uuid.NewString()
	expires := testNow.Add(time.Hour)
	q := &model.Quiz{SessionToken: &token, Category: model.CategoryMixed, Difficulty: model.DifficultyEasy, QuestionsCount: 5, ExpiresAt: &expires}
	if err := p.provider.Privileged().InsertQuiz(context.Background(), q); err != nil {
		t.Fatal(err)
	}

	_, err := p.submission.Submit(context.Background(), model.Guest("x", token), q.ID, nil, 0)
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}
}

func TestGrade(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	questions := []model.Question{
		{ID: ids[0], CorrectAnswer: "A"},
		{ID: ids[1], CorrectAnswer: "B"},
		{ID: ids[2], CorrectAnswer: "C"},
		{ID: ids[3], CorrectAnswer: "D"},
	}
	answers := []model.SubmitAnswer{
		{QuestionID: ids[0].String(), Answer: "A"},
		{QuestionID: ids[1].String(), Answer: "b"}, // case-sensitive
		{QuestionID: ids[2].String(), Answer: "C"},
		{QuestionID: ids[2].String(), Answer: "D"}, // first match wins
		{QuestionID: uuid.NewString(), Answer: "A"},
	}

	graded, score := Grade(questions, answers)
	if score != 2 {
		t.Errorf("score = %d, want 2", score)
	}
	if len(graded) != 4 {
		t.Fatalf("graded = %d entries", len(graded))
	}
	if graded[3].UserAnswer != nil || graded[3].IsCorrect {
		t.Errorf("unanswered question graded as %+v", graded[3])
	}
	if *graded[2].UserAnswer != "C" || !graded[2].IsCorrect {
		t.Errorf("duplicate answer handling: %+v", graded[2])
	}
	if graded[1].IsCorrect {
		t.Error("lowercase answer should not match")
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct{ correct, total, want int }{
		{3, 5, 60},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{0, 5, 0},
		{5, 5, 100},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := Percentage(tt.correct, tt.total); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
		}
	}
}
