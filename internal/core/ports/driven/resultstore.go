package driven

import (
	"context"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
)

// ResultStore persists the output of a pipeline run. The core's
// obligation ends at handing over the in-memory result; storage failures
// surface to the caller, not into the pipeline.
type ResultStore interface {
	// SaveResult stores a transcript's full run result, replacing any
	// previous result for the same transcript ID.
	SaveResult(ctx context.Context, result *domain.RunResult) error

	// GetEnriched returns the stored enriched segments for a transcript,
	// or domain.ErrNotFound.
	GetEnriched(ctx context.Context, transcriptID string) ([]domain.EnrichedSegment, error)

	// ListTranscripts returns the IDs of transcripts with stored results.
	ListTranscripts(ctx context.Context) ([]string, error)
}
