package driven

import (
	"context"
	"time"
)

// ValidationKey content-addresses one validation decision. Keys survive
// re-segmentation as long as the segment text is unchanged, and roll over
// automatically on thesaurus updates.
type ValidationKey struct {
	// ContentHash is the hex SHA-256 of the segment text.
	ContentHash string

	// ConceptID is the judged concept.
	ConceptID string

	// ThesaurusVersion tags the thesaurus the decision was made against.
	ThesaurusVersion string
}

// ValidationRecord is a persisted validator decision.
type ValidationRecord struct {
	Key ValidationKey

	// Accepted and Confidence mirror the validator's decision, including
	// rejections: a cached "no" saves a call just like a cached "yes".
	Accepted   bool
	Confidence float64

	// Model is the validator model that produced the decision.
	Model string

	// CreatedAt is when the decision was stored.
	CreatedAt time.Time
}

// ValidationStore persists validator decisions across runs. It is the
// only core-owned persistent state.
//
// Implementations must support concurrent reads. Writes are
// content-addressed and idempotent; last-writer-wins on identical keys is
// sufficient. Read and write failures are treated by callers as cache
// misses, never failing the run.
type ValidationStore interface {
	// Get returns the stored decision, or domain.ErrNotFound.
	Get(ctx context.Context, key ValidationKey) (*ValidationRecord, error)

	// Put stores a decision, overwriting any previous value for the key.
	Put(ctx context.Context, record ValidationRecord) error
}

// EmbeddingStore caches concept embeddings between runs, keyed by concept
// ID and embedding model tag so a model change invalidates stale vectors.
type EmbeddingStore interface {
	// Get returns the cached vector, or domain.ErrNotFound.
	Get(ctx context.Context, conceptID, modelTag string) ([]float32, error)

	// GetBatch returns cached vectors for the given concept IDs, keyed by
	// concept ID. Missing entries are simply absent from the map.
	GetBatch(ctx context.Context, conceptIDs []string, modelTag string) (map[string][]float32, error)

	// Put stores a vector.
	Put(ctx context.Context, conceptID, modelTag string, vector []float32) error
}
