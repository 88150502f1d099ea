package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
)

// Ensure ResultStore implements the interface.
var _ driven.ResultStore = (*ResultStore)(nil)

// ResultStore is an in-memory implementation of driven.ResultStore.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]*domain.RunResult
}

// NewResultStore creates a new in-memory result store.
func NewResultStore() *ResultStore {
	return &ResultStore{
		results: make(map[string]*domain.RunResult),
	}
}

// SaveResult stores a run result, replacing any previous result for the
// same transcript.
func (s *ResultStore) SaveResult(_ context.Context, result *domain.RunResult) error {
	if result == nil || result.TranscriptID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.TranscriptID] = result
	return nil
}

// GetEnriched returns the enriched segments for a transcript.
func (s *ResultStore) GetEnriched(_ context.Context, transcriptID string) ([]domain.EnrichedSegment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[transcriptID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return result.Enriched, nil
}

// ListTranscripts returns stored transcript IDs in sorted order.
func (s *ResultStore) ListTranscripts(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.results))
	for id := range s.results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
