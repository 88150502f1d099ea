// Package driving provides interfaces for application entry points (primary/inbound ports).
package driving

import (
	"context"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
)

// Pipeline runs the segmentation, selection and enrichment stages for
// one transcript. Non-fatal failures aggregate into the result's
// summary; only input errors fail the call.
type Pipeline interface {
	// EnrichTranscript processes a single transcript end to end.
	// Cancelling ctx stops new validator calls; in-flight calls finish
	// or time out before the partial result is discarded.
	EnrichTranscript(ctx context.Context, transcript *domain.Transcript) (*domain.RunResult, error)
}
