package driven

import "context"

// EmbeddingService maps text to a fixed-length vector, deterministic for
// identical text and model version. It may fail with a transient or
// permanent error; the caller degrades affected items to exact-match-only
// matching rather than aborting a run.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// Preferred over calling Embed in a loop when building the
	// thesaurus index.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 768, 1536).
	Dimensions() int

	// ModelName returns the model identifier. It tags cached vectors so a
	// provider or model change invalidates stale embeddings.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
