package driven

import (
	"context"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
)

// ValidationRequest asks for a yes/no decision on each candidate concept
// for one segment. Implementations must keep the request within
// TokenLimit, truncating the segment text if needed.
type ValidationRequest struct {
	// SegmentText is the full segment text. The validator truncates it to
	// respect TokenLimit.
	SegmentText string

	// Candidates are the concepts to judge, at most MaxCandidatesPerCall.
	Candidates []domain.Concept

	// TokenLimit bounds the request size in language-model tokens.
	TokenLimit int
}

// Decision is the validator's verdict for one candidate concept.
type Decision struct {
	// ConceptID identifies the judged concept.
	ConceptID string

	// Accepted is true when the concept is relevant to the segment.
	Accepted bool

	// Confidence is the validator's confidence in the decision (0-1).
	Confidence float64
}

// ConceptValidator judges candidate concept-segment pairings.
//
// Errors are classified with domain sentinels so the retry layer can tell
// transient failures (domain.ErrRateLimited, domain.ErrMalformedResponse,
// context.DeadlineExceeded) from terminal ones.
type ConceptValidator interface {
	// Validate judges all candidates in one provider call where the
	// provider supports batched candidates. Every requested concept gets
	// a decision; concepts missing from the provider output come back as
	// rejected with zero confidence.
	Validate(ctx context.Context, req ValidationRequest) ([]Decision, error)

	// MaxCandidatesPerCall returns the batching ceiling, or 0 when the
	// provider has no fixed ceiling beyond the token limit.
	MaxCandidatesPerCall() int

	// ModelName returns the underlying model identifier.
	ModelName() string
}
