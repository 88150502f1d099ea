// Package memory provides in-memory implementations of the storage
// ports, used for tests and cache-less runs.
package memory

import (
	"context"
	"sync"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
)

// Ensure ValidationStore implements the interface.
var _ driven.ValidationStore = (*ValidationStore)(nil)

// ValidationStore is an in-memory implementation of driven.ValidationStore.
type ValidationStore struct {
	mu      sync.RWMutex
	records map[driven.ValidationKey]driven.ValidationRecord
}

// NewValidationStore creates a new in-memory validation store.
func NewValidationStore() *ValidationStore {
	return &ValidationStore{
		records: make(map[driven.ValidationKey]driven.ValidationRecord),
	}
}

// Get returns the stored decision, or domain.ErrNotFound.
func (s *ValidationStore) Get(_ context.Context, key driven.ValidationKey) (*driven.ValidationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// Put stores a decision, last-writer-wins.
func (s *ValidationStore) Put(_ context.Context, record driven.ValidationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Key] = record
	return nil
}

// Len returns the number of stored decisions.
func (s *ValidationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
