package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/JacekAdamczyk/paragonBot/internal/config"
)

// Embedder wraps langchaingo embeddings with dimension validation.
// Query and document embeddings share one vector space; the dimension
// must match the index, so every result is checked.
type Embedder struct {
	model     embeddings.Embedder
	dimension int
	modelName string
	sleep     func(time.Duration)
}

// NewEmbedder creates an embedder based on configuration.
func NewEmbedder(cfg config.Config) (*Embedder, error) {
	var model embeddings.Embedder
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		llm, openaiErr := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithEmbeddingModel(cfg.EmbedModel),
		)
		if openaiErr != nil {
			return nil, fmt.Errorf("create openai client: %w", openaiErr)
		}
		model, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create openai embedder: %w", err)
		}

	case config.ProviderOllama:
		llm, ollamaErr := ollama.New(
			ollama.WithModel(cfg.EmbedModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if ollamaErr != nil {
			return nil, fmt.Errorf("create ollama client: %w", ollamaErr)
		}
		model, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create ollama embedder: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.LLMProvider)
	}

	return &Embedder{
		model:     model,
		dimension: cfg.EmbedDimension,
		modelName: cfg.EmbedModel,
		sleep:     time.Sleep,
	}, nil
}

// Embed generates an embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		vectors, err := e.model.EmbedDocuments(ctx, []string{text})
		if err == nil {
			if len(vectors) == 0 {
				return nil, fmt.Errorf("no embedding returned")
			}
			vector := vectors[0]
			if e.dimension > 0 && len(vector) != e.dimension {
				return nil, fmt.Errorf("dimension mismatch: got %d, want %d (model: %s)",
					len(vector), e.dimension, e.modelName)
			}
			slog.Debug("embedded text",
				"model", e.modelName, "text_len", len(text),
				"duration_ms", time.Since(start).Milliseconds())
			return vector, nil
		}

		if !isRateLimitError(err) {
			return nil, wrapFatalError(fmt.Errorf("embed: %w", err))
		}

		lastErr = err
		if attempt == maxAttempts {
			break
		}
		delay := retryDelay(err)
		slog.Warn("embedding rate limited, retrying",
			"model", e.modelName, "attempt", attempt, "delay", delay)
		e.sleep(delay)
	}

	return nil, fmt.Errorf("%w: %d attempts exhausted: %v", ErrRateLimited, maxAttempts, lastErr)
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := e.model.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, wrapFatalError(fmt.Errorf("embed batch: %w", err))
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if e.dimension > 0 && len(v) != e.dimension {
			return nil, fmt.Errorf("embedding %d dimension mismatch: got %d, want %d",
				i, len(v), e.dimension)
		}
	}
	return vectors, nil
}

// Dimension returns the expected embedding dimension.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Model returns the embedding model name.
func (e *Embedder) Model() string {
	return e.modelName
}
