package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/toefl-quiz-backend/internal/prompt"
)

type scriptedReply struct {
	text string
	err  error
}

// scriptedGenerator replays replies in order and repeats the last one.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []scriptedReply
	calls   int
	system  string
	task    string
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func (g *scriptedGenerator) Generate(ctx context.Context, system, task string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.system, g.task = system, task
	r := g.replies[min(g.calls, len(g.replies)-1)]
	g.calls++
	return r.text, r.err
}

type recordingObserver struct {
	outcomes []string
}

func (o *recordingObserver) ObserveAttempt(_, outcome string, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

func newTestInvoker(gen TextGenerator, obs AttemptObserver) (*Invoker, *[]time.Duration) {
	inv := NewInvoker(gen, RetryPolicy{MaxAttempts: 3, BackoffBase: time.Second}, obs, zerolog.Nop())
	var slept []time.Duration
	inv.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return inv, &slept
}

var testPrompt = prompt.Prompt{System: "system", Task: "task"}

func TestInvokerFirstAttemptSucceeds(t *testing.T) {
	gen := &scriptedGenerator{replies: []scriptedReply{{text: quizJSON(`"A"`)}}}
	inv, slept := newTestInvoker(gen, nil)

	quiz, err := inv.Generate(context.Background(), testPrompt)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(quiz.Questions) != 1 {
		t.Errorf("questions = %d", len(quiz.Questions))
	}
	if gen.calls != 1 || len(*slept) != 0 {
		t.Errorf("calls = %d, sleeps = %v", gen.calls, *slept)
	}
	if gen.system != "system" || gen.task != "task" {
		t.Errorf("generator got (%q, %q)", gen.system, gen.task)
	}
}

func TestInvokerRetriesWithLinearBackoff(t *testing.T) {
	gen := &scriptedGenerator{replies: []scriptedReply{
		{err: errors.New("connection reset")},
		{text: "not json"},
		{text: quizJSON(`"(c)"`)},
	}}
	obs := &recordingObserver{}
	inv, slept := newTestInvoker(gen, obs)

	quiz, err := inv.Generate(context.Background(), testPrompt)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if quiz.Questions[0].CorrectAnswer != "C" {
		t.Errorf("answer = %q", quiz.Questions[0].CorrectAnswer)
	}
	if gen.calls != 3 {
		t.Errorf("calls = %d, want 3", gen.calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*slept) != len(want) || (*slept)[0] != want[0] || (*slept)[1] != want[1] {
		t.Errorf("backoff = %v, want %v", *slept, want)
	}
	wantOutcomes := []string{"transport_error", "invalid_response", "ok"}
	for i, o := range wantOutcomes {
		if i >= len(obs.outcomes) || obs.outcomes[i] != o {
			t.Fatalf("outcomes = %v, want %v", obs.outcomes, wantOutcomes)
		}
	}
}

func TestInvokerSurfacesLastError(t *testing.T) {
	last := errors.New("still down")
	gen := &scriptedGenerator{replies: []scriptedReply{
		{text: `{"questions": []}`},
		{err: errors.New("down")},
		{err: last},
	}}
	inv, slept := newTestInvoker(gen, nil)

	quiz, err := inv.Generate(context.Background(), testPrompt)
	if quiz != nil {
		t.Fatalf("expected no quiz, got %+v", quiz)
	}
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("error %v is not ErrGenerationFailed", err)
	}
	if !errors.Is(err, last) {
		t.Errorf("error %v does not wrap the last failure", err)
	}
	var ge *GenerationError
	if !errors.As(err, &ge) || ge.Attempts != 3 {
		t.Errorf("attempts = %+v", ge)
	}
	if len(*slept) != 2 {
		t.Errorf("sleeps = %v, want 2", *slept)
	}
}

func TestInvokerStopsOnCancellation(t *testing.T) {
	gen := &scriptedGenerator{replies: []scriptedReply{{err: errors.New("boom")}}}
	inv, _ := newTestInvoker(gen, nil)

	ctx, cancel := context.WithCancel(context.Background())
	inv.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := inv.Generate(ctx, testPrompt)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("error = %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("calls = %d, want 1 after cancellation", gen.calls)
	}
}

func TestInvokerAppliesAttemptTimeout(t *testing.T) {
	gen := &blockingGenerator{}
	inv := NewInvoker(gen, RetryPolicy{MaxAttempts: 1, AttemptTimeout: 10 * time.Millisecond}, nil, zerolog.Nop())

	_, err := inv.Generate(context.Background(), testPrompt)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}

type blockingGenerator struct{}

func (blockingGenerator) Name() string { return "blocking" }

func (blockingGenerator) Generate(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
