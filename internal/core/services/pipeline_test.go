package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
)

// stubResultStore records saved results.
type stubResultStore struct {
	saved []*domain.RunResult
	err   error
}

func (s *stubResultStore) SaveResult(_ context.Context, result *domain.RunResult) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, result)
	return nil
}

func (s *stubResultStore) GetEnriched(context.Context, string) ([]domain.EnrichedSegment, error) {
	return nil, domain.ErrNotFound
}

func (s *stubResultStore) ListTranscripts(context.Context) ([]string, error) {
	return nil, nil
}

func pipelineTranscript() *domain.Transcript {
	return &domain.Transcript{
		ID: "interview-01",
		Utterances: []domain.Utterance{
			utt("INT", 0, 60, "Vandaag spreken wij met meneer De Vries over de oorlogsjaren."),
			utt("RESP", 60, 120, "Mijn naam is Jan de Vries, geboren in Rotterdam."),
			utt("RESP", 120, 180, "Mijn vader werkte destijds in de haven."),
			utt("RESP", 180, 240, "Wij woonden vlak bij het water."),
			utt("RESP", 240, 300, "Rustige jaren waren dat, voor alles veranderde."),
			utt("INT", 302, 375, "Wat herinnert u zich van de eerste oorlogsdagen?"),
			utt("RESP", 375, 450, "De vliegtuigen kwamen al vroeg in de ochtend."),
			utt("RESP", 450, 525, "Wij scholen in de kelder met de buren."),
			utt("RESP", 525, 600, "Na het bombardement was de hele straat verdwenen."),
			utt("RESP", 602, 720, "Later werden wij naar Westerbork gebracht, en vandaar ging het transport verder."),
		},
	}
}

func newTestPipeline(t *testing.T, llm *mockLLM, results *stubResultStore) *EnrichmentPipeline {
	t.Helper()

	selectorCfg := domain.DefaultSelectorConfig()
	selectorCfg.Threshold = 0 // keep every segment

	engine := NewMatchingEngine(buildTestIndex(t, nil), nil, newMockValidator(0.9), newMockValidationStore(), testMatcherConfig())

	var metadata *MetadataService
	if llm != nil {
		metadata = NewMetadataService(llm)
	}
	var store driven.ResultStore
	if results != nil {
		store = results
	}

	return NewEnrichmentPipeline(
		NewSegmenter(domain.DefaultSegmenterConfig()),
		NewSelector(selectorCfg),
		engine, metadata, store,
	)
}

func TestEnrichmentPipeline_EnrichTranscript(t *testing.T) {
	llm := &mockLLM{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "oral history interview transcript") {
			return `{"name": "Jan de Vries"}`, nil
		}
		return `{"title": "Een fragment"}`, nil
	}}
	results := &stubResultStore{}
	pipeline := newTestPipeline(t, llm, results)

	result, err := pipeline.EnrichTranscript(context.Background(), pipelineTranscript())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "interview-01", result.TranscriptID)
	assert.Equal(t, "Jan de Vries", result.IntervieweeName)

	assert.Len(t, result.Segments, 3)
	assert.Equal(t, 3, result.Summary.SegmentCount)
	assert.Len(t, result.Selected, 3)
	assert.Equal(t, 3, result.Summary.SelectedCount)

	require.Len(t, result.Enriched, 3)
	for i, e := range result.Enriched {
		assert.Equal(t, result.Selected[i].ID, e.ID)
		assert.Equal(t, "Een fragment", e.Title)
	}

	// The last segment mentions Westerbork and transport.
	last := result.Enriched[2]
	require.NotEmpty(t, last.Matches)
	assert.Equal(t, "c-westerbork", last.Matches[0].ConceptID)

	assert.Positive(t, result.Summary.CandidateCount)
	assert.Positive(t, result.Summary.ValidatorCalls)
	assert.Positive(t, result.Summary.Elapsed)

	require.Len(t, results.saved, 1)
	assert.Same(t, result, results.saved[0])
}

func TestEnrichmentPipeline_MetadataFailureIsNonFatal(t *testing.T) {
	llm := &mockLLM{err: errors.New("model not loaded")}
	pipeline := newTestPipeline(t, llm, nil)

	result, err := pipeline.EnrichTranscript(context.Background(), pipelineTranscript())
	require.NoError(t, err)

	assert.Empty(t, result.IntervieweeName)
	for _, e := range result.Enriched {
		assert.Empty(t, e.Title)
	}
}

func TestEnrichmentPipeline_WithoutMetadataOrStore(t *testing.T) {
	pipeline := newTestPipeline(t, nil, nil)

	result, err := pipeline.EnrichTranscript(context.Background(), pipelineTranscript())
	require.NoError(t, err)

	assert.Empty(t, result.IntervieweeName)
	assert.Len(t, result.Enriched, 3)
}

func TestEnrichmentPipeline_EmptyTranscript(t *testing.T) {
	pipeline := newTestPipeline(t, nil, nil)

	_, err := pipeline.EnrichTranscript(context.Background(), &domain.Transcript{ID: "empty"})
	assert.ErrorIs(t, err, domain.ErrEmptyTranscript)
}

func TestEnrichmentPipeline_SaveFailureReturnsResult(t *testing.T) {
	results := &stubResultStore{err: errors.New("disk full")}
	pipeline := newTestPipeline(t, nil, results)

	result, err := pipeline.EnrichTranscript(context.Background(), pipelineTranscript())
	require.Error(t, err)
	// The computed result is still handed back alongside the error.
	require.NotNil(t, result)
	assert.Len(t, result.Enriched, 3)
}
