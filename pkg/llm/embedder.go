package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/xhad/ackaudit/internal/types"
)

type EmbedderConfig struct {
	Model   string
	BaseURL string // Ollama server URL
}

// Embedder produces embeddings through an Ollama embedding model.
type Embedder struct {
	config EmbedderConfig
	llm    *ollama.LLM
}

var _ types.Embedder = (*Embedder)(nil)

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	emb, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		config: config,
		llm:    emb,
	}, nil
}

func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding error: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding error: got %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
