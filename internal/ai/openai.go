package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIGenerator produces completions with an OpenAI-compatible chat API.
type OpenAIGenerator struct {
	llm         llms.Model
	temperature float64
}

// NewOpenAIGenerator creates an OpenAI-backed generator. baseURL may be empty
// to use the public endpoint.
func NewOpenAIGenerator(apiKey, modelName, baseURL string, temperature float64) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}

	opts := []openai.Option{
		openai.WithModel(modelName),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return &OpenAIGenerator{llm: llm, temperature: temperature}, nil
}

// Name implements TextGenerator.
func (g *OpenAIGenerator) Name() string { return "openai" }

// Generate implements TextGenerator.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, task string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, task),
	}

	resp, err := g.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(g.temperature),
		llms.WithJSONMode(),
	)
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", errors.New("openai returned no content")
	}
	return resp.Choices[0].Content, nil
}
