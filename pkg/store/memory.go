package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/xhad/ackaudit/internal/types"
)

type record struct {
	id       string
	vector   []float32
	document string
	metadata map[string]any
}

// MemoryStore is a brute-force in-memory VectorIndex. It backs offline runs
// and tests; query cost is linear in collection size.
type MemoryStore struct {
	mu          sync.RWMutex
	vectorDim   int
	collections map[string][]record
}

var _ types.VectorIndex = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. vectorDim of 0 accepts the first
// vector's length as the dimension.
func NewMemoryStore(vectorDim int) *MemoryStore {
	return &MemoryStore{
		vectorDim:   vectorDim,
		collections: make(map[string][]record),
	}
}

func (m *MemoryStore) CreateCollection(_ context.Context, name string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		m.collections[name] = nil
	}
	return nil
}

func (m *MemoryStore) ListCollections(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryStore) DeleteCollection(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	return nil
}

func (m *MemoryStore) Count(_ context.Context, name string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs, ok := m.collections[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return len(recs), nil
}

func (m *MemoryStore) Add(_ context.Context, name string, ids []string, vectors [][]float32, documents []string, metadatas []map[string]any) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	recs, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}

	for i := range ids {
		if m.vectorDim == 0 {
			m.vectorDim = len(vectors[i])
		}
		if len(vectors[i]) != m.vectorDim {
			return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vectors[i]), m.vectorDim)
		}

		r := record{id: ids[i], vector: vectors[i]}
		if documents != nil {
			r.document = documents[i]
		}
		if metadatas != nil {
			r.metadata = metadatas[i]
		}

		replaced := false
		for j := range recs {
			if recs[j].id == r.id {
				recs[j] = r
				replaced = true
				break
			}
		}
		if !replaced {
			recs = append(recs, r)
		}
	}

	m.collections[name] = recs
	return nil
}

func (m *MemoryStore) Query(_ context.Context, name string, vector []float32, topK int, filter map[string]string) ([]types.QueryResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	if m.vectorDim != 0 && len(vector) != m.vectorDim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), m.vectorDim)
	}
	if topK < 1 {
		return nil, nil
	}

	var results []types.QueryResult
	for _, r := range recs {
		if !matchesFilter(r.metadata, filter) {
			continue
		}
		results = append(results, types.QueryResult{
			ID:         r.id,
			Document:   r.document,
			Metadata:   r.metadata,
			Similarity: Cosine(vector, r.vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func matchesFilter(metadata map[string]any, filter map[string]string) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != want {
			return false
		}
	}
	return true
}

// Cosine returns the cosine similarity of two vectors, 0 when either has
// zero magnitude.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
