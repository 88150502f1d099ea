package driven

import (
	"context"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
)

// ThesaurusSource loads the controlled vocabulary from its external
// representation (SKOS export, JSON dump) into the domain concept graph.
type ThesaurusSource interface {
	// Load returns the full thesaurus, including its version tag.
	Load(ctx context.Context) (*domain.Thesaurus, error)
}

// TranscriptSource parses an external transcript representation (WebVTT
// and friends) into the in-memory transcript consumed by the pipeline.
type TranscriptSource interface {
	// Load reads and parses one transcript.
	Load(ctx context.Context, path string) (*domain.Transcript, error)
}
