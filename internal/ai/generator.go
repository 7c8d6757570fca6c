package ai

import (
	"context"
	"fmt"

	"github.com/stemsi/toefl-quiz-backend/internal/config"
)

// NewGenerator builds the TextGenerator selected by AI_PROVIDER.
// Callers should close the result if it implements io.Closer.
func NewGenerator(ctx context.Context, cfg *config.Config) (TextGenerator, error) {
	switch cfg.AIProvider {
	case config.AIProviderGemini:
		g, err := NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, float32(cfg.AITemperature))
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.AIProviderOpenAI:
		g, err := NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.AITemperature)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.AIProvider)
	}
}

// PolicyFromConfig maps AI_* settings onto a RetryPolicy.
func PolicyFromConfig(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    cfg.AIMaxAttempts,
		BackoffBase:    cfg.AIBackoffBase,
		AttemptTimeout: cfg.AIAttemptTimeout,
	}
}
