package memory

import (
	"context"
	"sync"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
)

// Ensure EmbeddingStore implements the interface.
var _ driven.EmbeddingStore = (*EmbeddingStore)(nil)

type embeddingKey struct {
	concept string
	model   string
}

// EmbeddingStore is an in-memory implementation of driven.EmbeddingStore.
type EmbeddingStore struct {
	mu      sync.RWMutex
	vectors map[embeddingKey][]float32
}

// NewEmbeddingStore creates a new in-memory embedding store.
func NewEmbeddingStore() *EmbeddingStore {
	return &EmbeddingStore{
		vectors: make(map[embeddingKey][]float32),
	}
}

// Get returns the cached vector, or domain.ErrNotFound.
func (s *EmbeddingStore) Get(_ context.Context, conceptID, modelTag string) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vec, ok := s.vectors[embeddingKey{concept: conceptID, model: modelTag}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return vec, nil
}

// GetBatch returns cached vectors keyed by concept ID; missing entries
// are absent from the map.
func (s *EmbeddingStore) GetBatch(_ context.Context, conceptIDs []string, modelTag string) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]float32)
	for _, id := range conceptIDs {
		if vec, ok := s.vectors[embeddingKey{concept: id, model: modelTag}]; ok {
			out[id] = vec
		}
	}
	return out, nil
}

// Put stores a vector.
func (s *EmbeddingStore) Put(_ context.Context, conceptID, modelTag string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[embeddingKey{concept: conceptID, model: modelTag}] = vector
	return nil
}
