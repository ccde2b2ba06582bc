package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/time/rate"

	"github.com/xhad/ackaudit/internal/types"
)

type JudgeConfig struct {
	BaseURL       string
	Model         string
	FallbackModel string
	MaxTokens     int
	RateLimit     float64 // requests per second
}

// Judge answers adjudication prompts with a primary model and retries once
// on a fallback model when the primary call fails.
type Judge struct {
	config   JudgeConfig
	primary  llms.Model
	fallback llms.Model
	limiter  *rate.Limiter
	logger   *slog.Logger
}

var _ types.Judge = (*Judge)(nil)

func NewJudgeWithConfig(config JudgeConfig, logger *slog.Logger) (*Judge, error) {
	if config.Model == "" {
		config.Model = "llama3"
	}
	if config.FallbackModel == "" {
		config.FallbackModel = "mistral"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 512
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 2.0
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if logger == nil {
		logger = slog.Default()
	}

	primary, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	fallback, err := ollama.New(
		ollama.WithModel(config.FallbackModel),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fallback LLM: %w", err)
	}

	return &Judge{
		config:   config,
		primary:  primary,
		fallback: fallback,
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:   logger,
	}, nil
}

// Adjudicate sends the prompt at temperature zero so answers stay
// deterministic, falling back to the secondary model if the primary errors.
func (j *Judge) Adjudicate(ctx context.Context, prompt string) (string, error) {
	if err := j.limiter.Wait(ctx); err != nil {
		return "", err
	}

	answer, primaryErr := j.generate(ctx, j.primary, prompt)
	if primaryErr == nil {
		return answer, nil
	}

	j.logger.Warn("primary model failed, trying fallback",
		"model", j.config.Model,
		"fallback", j.config.FallbackModel,
		"error", primaryErr)

	answer, fallbackErr := j.generate(ctx, j.fallback, prompt)
	if fallbackErr == nil {
		return answer, nil
	}
	return "", errors.Join(primaryErr, fallbackErr)
}

func (j *Judge) generate(ctx context.Context, model llms.Model, prompt string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := model.GenerateContent(ctx, content,
		llms.WithTemperature(0),
		llms.WithMaxTokens(j.config.MaxTokens))
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("chat error: empty response")
	}
	return resp.Choices[0].Content, nil
}
