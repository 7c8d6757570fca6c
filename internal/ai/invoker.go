package ai

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/toefl-quiz-backend/internal/prompt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TextGenerator is the external text-completion collaborator.
type TextGenerator interface {
	// Generate returns the raw completion for the given instructions.
	Generate(ctx context.Context, system, task string) (string, error)
	// Name identifies the backend in logs and metrics.
	Name() string
}

// AttemptObserver receives one call per generation attempt.
// outcome is "ok", "transport_error" or "invalid_response".
type AttemptObserver interface {
	ObserveAttempt(provider, outcome string, elapsed time.Duration)
}

// RetryPolicy bounds the generation retry loop.
type RetryPolicy struct {
	MaxAttempts int
	// BackoffBase is multiplied by the attempt number that just failed.
	BackoffBase time.Duration
	// AttemptTimeout caps a single call to the generator. Zero disables it.
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy makes 3 attempts with 1s then 2s pauses.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    3,
	BackoffBase:    time.Second,
	AttemptTimeout: 60 * time.Second,
}

// Invoker calls a TextGenerator until it yields a ValidatedQuiz or the retry
// budget runs out.
type Invoker struct {
	gen      TextGenerator
	policy   RetryPolicy
	log      zerolog.Logger
	observer AttemptObserver
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewInvoker creates an Invoker. observer may be nil.
func NewInvoker(gen TextGenerator, policy RetryPolicy, observer AttemptObserver, log zerolog.Logger) *Invoker {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Invoker{
		gen:      gen,
		policy:   policy,
		log:      log.With().Str("component", "ai_invoker").Str("provider", gen.Name()).Logger(),
		observer: observer,
		sleep:    sleepContext,
	}
}

// Generate runs the prompt through the generator and returns the first
// response that validates. On exhaustion it returns a *GenerationError
// wrapping the last failure.
func (i *Invoker) Generate(ctx context.Context, p prompt.Prompt) (*ValidatedQuiz, error) {
	ctx, span := otel.Tracer("ai").Start(ctx, "ai.GenerateQuiz")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.provider", i.gen.Name()),
		attribute.Int("ai.max_attempts", i.policy.MaxAttempts),
	)

	var lastErr error
	attempt := 0
	for attempt < i.policy.MaxAttempts {
		attempt++

		quiz, err := i.attempt(ctx, p)
		if err == nil {
			span.SetAttributes(attribute.Int("ai.attempts", attempt))
			if attempt > 1 {
				i.log.Info().Int("attempt", attempt).Msg("Quiz generated after retry")
			}
			return quiz, nil
		}
		lastErr = err

		i.log.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", i.policy.MaxAttempts).
			Msg("Generation attempt failed")

		if ctx.Err() != nil {
			break
		}
		if attempt < i.policy.MaxAttempts {
			if err := i.sleep(ctx, i.policy.BackoffBase*time.Duration(attempt)); err != nil {
				break
			}
		}
	}

	genErr := &GenerationError{Attempts: attempt, Err: lastErr}
	span.RecordError(genErr)
	span.SetStatus(codes.Error, "generation failed")
	span.SetAttributes(attribute.Int("ai.attempts", attempt))
	return nil, genErr
}

func (i *Invoker) attempt(ctx context.Context, p prompt.Prompt) (*ValidatedQuiz, error) {
	if i.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.policy.AttemptTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := i.gen.Generate(ctx, p.System, p.Task)
	if err != nil {
		i.observe("transport_error", start)
		return nil, err
	}

	quiz, err := NormalizeAndValidate(raw)
	if err != nil {
		i.observe("invalid_response", start)
		var ire *InvalidResponseError
		if errors.As(err, &ire) && len(ire.Fields) > 0 {
			i.log.Debug().Interface("fields", ire.Fields).Msg("Response failed schema")
		}
		return nil, err
	}
	i.observe("ok", start)
	return quiz, nil
}

func (i *Invoker) observe(outcome string, start time.Time) {
	if i.observer != nil {
		i.observer.ObserveAttempt(i.gen.Name(), outcome, time.Since(start))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
