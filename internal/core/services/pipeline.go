package services

import (
	"context"
	"fmt"
	"time"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driving"
	"github.com/archiva-labs/enrich-cli/internal/logger"
)

// Ensure EnrichmentPipeline implements the interface.
var _ driving.Pipeline = (*EnrichmentPipeline)(nil)

// EnrichmentPipeline wires the stages together: segmentation, selection,
// enrichment, and the best-effort metadata passes. Non-fatal failures
// aggregate into the run summary; only input errors abort a transcript.
type EnrichmentPipeline struct {
	segmenter *Segmenter
	selector  *Selector
	engine    *MatchingEngine
	metadata  *MetadataService
	results   driven.ResultStore
}

// NewEnrichmentPipeline creates the pipeline. The metadata service and
// result store are optional.
func NewEnrichmentPipeline(
	segmenter *Segmenter,
	selector *Selector,
	engine *MatchingEngine,
	metadata *MetadataService,
	results driven.ResultStore,
) *EnrichmentPipeline {
	return &EnrichmentPipeline{
		segmenter: segmenter,
		selector:  selector,
		engine:    engine,
		metadata:  metadata,
		results:   results,
	}
}

// EnrichTranscript processes a single transcript end to end.
func (p *EnrichmentPipeline) EnrichTranscript(ctx context.Context, transcript *domain.Transcript) (*domain.RunResult, error) {
	started := time.Now()
	logger.Section(fmt.Sprintf("Transcript %s", transcript.ID))

	segments, err := p.segmenter.Segment(transcript)
	if err != nil {
		return nil, fmt.Errorf("segment transcript %s: %w", transcript.ID, err)
	}
	logger.Info("Segmented into %d segments", len(segments))

	selected := p.selector.Select(segments)

	result := &domain.RunResult{
		TranscriptID: transcript.ID,
		Segments:     segments,
		Selected:     selected,
		Summary: domain.RunSummary{
			TranscriptID:  transcript.ID,
			SegmentCount:  len(segments),
			SelectedCount: len(selected),
		},
	}

	if p.metadata != nil {
		name, err := p.metadata.ExtractIntervieweeName(ctx, transcript)
		if err != nil {
			logger.Warn("Name extraction failed: %v", err)
		}
		result.IntervieweeName = name
	}

	enriched, report, err := p.engine.Enrich(ctx, selected)
	result.Enriched = enriched
	result.Summary.CandidateCount = report.CandidateCount
	result.Summary.ValidatorCalls = report.ValidatorCalls
	result.Summary.CacheHits = report.CacheHits
	result.Summary.Unresolved = report.Unresolved
	result.Summary.EmbeddingDegraded = report.EmbeddingDegraded
	if err != nil {
		result.Summary.Elapsed = time.Since(started)
		return result, fmt.Errorf("enrich transcript %s: %w", transcript.ID, err)
	}

	if p.metadata != nil {
		p.titleSegments(ctx, result)
	}

	result.Summary.Elapsed = time.Since(started)

	if p.results != nil {
		if err := p.results.SaveResult(ctx, result); err != nil {
			return result, fmt.Errorf("save result for %s: %w", transcript.ID, err)
		}
	}
	return result, nil
}

// titleSegments adds a best-effort title to every enriched segment.
func (p *EnrichmentPipeline) titleSegments(ctx context.Context, result *domain.RunResult) {
	for i := range result.Enriched {
		if ctx.Err() != nil {
			return
		}
		title, err := p.metadata.TitleSegment(ctx, result.Enriched[i])
		if err != nil {
			logger.Warn("Title generation failed for segment %s: %v", result.Enriched[i].ID, err)
			continue
		}
		result.Enriched[i].Title = title
	}
}
