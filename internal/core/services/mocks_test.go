package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
)

// mockEmbedder returns preconfigured vectors per text. Texts without an
// entry get the fallback vector, or an error when none is set.
type mockEmbedder struct {
	mu         sync.Mutex
	vectors    map[string][]float32
	fallback   []float32
	embedErr   error
	batchErr   error
	embedCalls int
	batchCalls int
	model      string
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		vectors: make(map[string][]float32),
		model:   "mock-embed",
	}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	if m.fallback != nil {
		return m.fallback, nil
	}
	return nil, fmt.Errorf("no vector for %q", text)
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, ok := m.vectors[t]
		if !ok {
			if m.fallback == nil {
				return nil, fmt.Errorf("no vector for %q", t)
			}
			vec = m.fallback
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return 3 }

func (m *mockEmbedder) ModelName() string { return m.model }

func (m *mockEmbedder) Ping(context.Context) error { return nil }

func (m *mockEmbedder) Close() error { return nil }

// mockValidator answers with a configurable decide function and records
// every request it sees.
type mockValidator struct {
	mu         sync.Mutex
	calls      int
	requests   []driven.ValidationRequest
	decide     func(req driven.ValidationRequest) ([]driven.Decision, error)
	maxPerCall int
}

// newMockValidator accepts every candidate with the given confidence by
// default.
func newMockValidator(confidence float64) *mockValidator {
	return &mockValidator{
		decide: func(req driven.ValidationRequest) ([]driven.Decision, error) {
			decisions := make([]driven.Decision, len(req.Candidates))
			for i, c := range req.Candidates {
				decisions[i] = driven.Decision{ConceptID: c.ID, Accepted: true, Confidence: confidence}
			}
			return decisions, nil
		},
	}
}

func (m *mockValidator) Validate(_ context.Context, req driven.ValidationRequest) ([]driven.Decision, error) {
	m.mu.Lock()
	m.calls++
	m.requests = append(m.requests, req)
	decide := m.decide
	m.mu.Unlock()
	return decide(req)
}

func (m *mockValidator) MaxCandidatesPerCall() int { return m.maxPerCall }

func (m *mockValidator) ModelName() string { return "mock-validator" }

func (m *mockValidator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockLLM returns a canned response, or delegates to a respond function.
type mockLLM struct {
	mu       sync.Mutex
	response string
	err      error
	respond  func(prompt string) (string, error)
	prompts  []string
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	respond := m.respond
	response, err := m.response, m.err
	m.mu.Unlock()
	if respond != nil {
		return respond(prompt)
	}
	return response, err
}

func (m *mockLLM) ModelName() string { return "mock-llm" }

func (m *mockLLM) Ping(context.Context) error { return nil }

func (m *mockLLM) Close() error { return nil }

// mockEmbeddingStore is an in-test driven.EmbeddingStore.
type mockEmbeddingStore struct {
	mu      sync.Mutex
	vectors map[string][]float32 // conceptID|modelTag
	puts    int
	getErr  error
}

func newMockEmbeddingStore() *mockEmbeddingStore {
	return &mockEmbeddingStore{vectors: make(map[string][]float32)}
}

func (m *mockEmbeddingStore) key(conceptID, modelTag string) string {
	return conceptID + "|" + modelTag
}

func (m *mockEmbeddingStore) Get(_ context.Context, conceptID, modelTag string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	vec, ok := m.vectors[m.key(conceptID, modelTag)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return vec, nil
}

func (m *mockEmbeddingStore) GetBatch(_ context.Context, conceptIDs []string, modelTag string) (map[string][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make(map[string][]float32)
	for _, id := range conceptIDs {
		if vec, ok := m.vectors[m.key(id, modelTag)]; ok {
			out[id] = vec
		}
	}
	return out, nil
}

func (m *mockEmbeddingStore) Put(_ context.Context, conceptID, modelTag string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.vectors[m.key(conceptID, modelTag)] = vector
	return nil
}

// mockValidationStore is an in-test driven.ValidationStore.
type mockValidationStore struct {
	mu      sync.Mutex
	records map[driven.ValidationKey]driven.ValidationRecord
	gets    int
	puts    int
	getErr  error
	putErr  error
}

func newMockValidationStore() *mockValidationStore {
	return &mockValidationStore{records: make(map[driven.ValidationKey]driven.ValidationRecord)}
}

func (m *mockValidationStore) Get(_ context.Context, key driven.ValidationKey) (*driven.ValidationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	record, ok := m.records[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

func (m *mockValidationStore) Put(_ context.Context, record driven.ValidationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.records[record.Key] = record
	return nil
}

func (m *mockValidationStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
