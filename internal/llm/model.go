// Package llm provides LLM and embedding access through langchaingo,
// with rate-limit retries handled transparently.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/JacekAdamczyk/paragonBot/internal/config"
)

// maxAttempts bounds the rate-limit retry loop. Retry-by-recursion is
// deliberately avoided; after the budget is spent the 429 surfaces as an
// ordinary error.
const maxAttempts = 5

// Model wraps a langchaingo chat model for text generation.
type Model struct {
	llm       llms.Model
	modelName string
	sleep     func(time.Duration) // test seam, time.Sleep in production
}

// NewModel creates an LLM model based on configuration.
func NewModel(cfg config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: cfg.LLMModel,
		sleep:     time.Sleep,
	}, nil
}

// CompleteWithSystem generates text from a system + user prompt pair.
// Rate-limit responses are retried after the oracle-indicated delay, up
// to maxAttempts; callers never see transient 429s unless the budget
// runs out. The backoff sleep is not cancellable mid-wait.
func (m *Model) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	var opts []llms.CallOption
	if maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(maxTokens))
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		response, err := m.llm.GenerateContent(ctx, messages, opts...)
		if err == nil {
			if len(response.Choices) == 0 {
				return "", fmt.Errorf("no response choices")
			}
			return response.Choices[0].Content, nil
		}

		if !isRateLimitError(err) {
			return "", wrapFatalError(fmt.Errorf("generate: %w", err))
		}

		lastErr = err
		if attempt == maxAttempts {
			break
		}
		delay := retryDelay(err)
		slog.Warn("oracle rate limited, retrying",
			"model", m.modelName, "attempt", attempt, "delay", delay)
		m.sleep(delay)
	}

	return "", fmt.Errorf("%w: %d attempts exhausted: %v", ErrRateLimited, maxAttempts, lastErr)
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}
