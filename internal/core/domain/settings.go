package domain

import "time"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// DefaultEmbeddingModels returns default embedding models per provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// SegmenterConfig controls how transcripts are cut into segments.
type SegmenterConfig struct {
	// MinutesPerBatch is the target segment duration in minutes.
	MinutesPerBatch int

	// MinLen is the minimum segment duration. A shorter tail segment is
	// merged into its predecessor.
	MinLen time.Duration

	// MaxLen is the hard maximum segment duration. A longer candidate is
	// split at the best available boundary.
	MaxLen time.Duration

	// SnapWindow is how far around the target boundary the segmenter
	// looks for a pause or speaker change to close a segment on.
	SnapWindow time.Duration

	// PauseThreshold is the minimum inter-utterance silence treated as a
	// natural break.
	PauseThreshold time.Duration

	// CoverageTolerance is the maximum permitted gap when checking that
	// segments union to the full transcript duration.
	CoverageTolerance time.Duration
}

// DefaultSegmenterConfig returns the default segmentation settings.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		MinutesPerBatch:   5,
		MinLen:            time.Minute,
		MaxLen:            10 * time.Minute,
		SnapWindow:        45 * time.Second,
		PauseThreshold:    1500 * time.Millisecond,
		CoverageTolerance: time.Second,
	}
}

// Target returns the target segment duration.
func (c SegmenterConfig) Target() time.Duration {
	return time.Duration(c.MinutesPerBatch) * time.Minute
}

// SelectionPolicy chooses how scored segments are filtered.
type SelectionPolicy string

// Available selection policies.
const (
	// SelectTopK keeps the K highest-scoring segments.
	SelectTopK SelectionPolicy = "top_k"

	// SelectThreshold keeps every segment scoring at or above a cutoff.
	SelectThreshold SelectionPolicy = "threshold"
)

// IsValid returns true if the selection policy is recognised.
func (p SelectionPolicy) IsValid() bool {
	return p == SelectTopK || p == SelectThreshold
}

// ScoringWeights weighs the selector's three signals. They need not sum
// to one; scores are comparable only within a run with fixed weights.
type ScoringWeights struct {
	// Duration weighs normalized segment duration.
	Duration float64

	// LexicalDensity weighs the share of content words in the text.
	LexicalDensity float64

	// BoundaryConfidence weighs the segmenter's break quality.
	BoundaryConfidence float64
}

// SelectorConfig controls segment selection.
type SelectorConfig struct {
	// Policy picks between top-K and threshold selection.
	Policy SelectionPolicy

	// TopK is the number of segments to keep under SelectTopK.
	TopK int

	// Threshold is the minimum score to keep under SelectThreshold.
	Threshold float64

	// Weights combines the scoring signals.
	Weights ScoringWeights
}

// DefaultSelectorConfig returns the default selection settings.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		Policy:    SelectThreshold,
		Threshold: 0.35,
		Weights: ScoringWeights{
			Duration:           0.3,
			LexicalDensity:     0.5,
			BoundaryConfidence: 0.2,
		},
	}
}

// MatcherConfig controls candidate generation and validation.
type MatcherConfig struct {
	// TopN is the number of embedding neighbours to consider per segment.
	TopN int

	// MinSimilarity is the cosine-similarity floor for embedding candidates.
	MinSimilarity float64

	// TokenLimit bounds the size of a single validator request, in
	// language-model tokens.
	TokenLimit int

	// Concurrency bounds how many validator calls run in flight.
	Concurrency int

	// MaxRetries bounds retry attempts per candidate batch on transient
	// validator failure.
	MaxRetries int

	// RetryBaseDelay is the initial backoff delay, doubled per attempt.
	RetryBaseDelay time.Duration

	// RequestTimeout bounds one validator call, distinct from the
	// pipeline deadline.
	RequestTimeout time.Duration

	// RequestsPerSecond and Burst configure the provider rate limiter.
	RequestsPerSecond float64
	Burst             int
}

// DefaultMatcherConfig returns the default matching settings.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		TopN:              10,
		MinSimilarity:     0.30,
		TokenLimit:        8000,
		Concurrency:       4,
		MaxRetries:        3,
		RetryBaseDelay:    time.Second,
		RequestTimeout:    60 * time.Second,
		RequestsPerSecond: 2.0,
		Burst:             4,
	}
}
