package types

import (
	"context"

	"github.com/xhad/ackaudit/internal/models"
)

// Embedder turns texts into fixed-dimension vectors.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Judge sends one adjudication prompt to a language model and returns the
// raw answer text.
type Judge interface {
	Adjudicate(ctx context.Context, prompt string) (string, error)
}

// QueryResult is a single nearest-neighbor hit from a VectorIndex.
type QueryResult struct {
	ID         string
	Document   string
	Metadata   map[string]any
	Similarity float64
}

// VectorIndex is a named-collection vector store. Collections hold
// (id, vector, optional document, optional metadata) records keyed by
// caller-supplied unique ids; Add has upsert semantics.
type VectorIndex interface {
	CreateCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
	DeleteCollection(ctx context.Context, name string) error
	Count(ctx context.Context, name string) (int, error)

	// Add upserts parallel slices of records. ids and vectors must have equal
	// length; documents and metadatas may be nil or equal length.
	Add(ctx context.Context, name string, ids []string, vectors [][]float32, documents []string, metadatas []map[string]any) error

	// Query returns up to topK records ordered by descending cosine
	// similarity to vector. filter, when non-nil, keeps only records whose
	// metadata matches every key/value pair exactly.
	Query(ctx context.Context, name string, vector []float32, topK int, filter map[string]string) ([]QueryResult, error)
}

// Verifier adjudicates a document's sentences into a verdict.
type Verifier interface {
	Run(ctx context.Context, sentences []models.SentenceRecord) (models.DocumentVerdict, error)
}
