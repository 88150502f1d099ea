package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
)

// metadataWindow is how much of the transcript opening is shown to the
// model when extracting the interviewee name. Introductions happen early.
const metadataWindow = 5 * time.Minute

const extractNamePrompt = `Below is the opening of an oral history interview transcript.
Identify the name of the person being interviewed.

Return strictly this JSON and nothing else:

{"name": "<full name, or null if it cannot be determined>"}

Transcript opening:
%s`

const segmentTitlePrompt = `Below is a fragment from an oral history interview, with the
thesaurus concepts attached to it.

Write a short descriptive title (at most 8 words, in the language of the
fragment). Return strictly this JSON and nothing else:

{"title": "<title>"}

Concepts: %s

Fragment:
%s`

// MetadataService runs the best-effort LLM passes that annotate run
// output: interviewee name extraction and segment titles. Failures
// degrade to empty values, never failing the run.
type MetadataService struct {
	llm driven.LLMService
}

// NewMetadataService creates a metadata service.
func NewMetadataService(llm driven.LLMService) *MetadataService {
	return &MetadataService{llm: llm}
}

// ExtractIntervieweeName asks the model for the interviewee's name based
// on the first minutes of the transcript.
func (m *MetadataService) ExtractIntervieweeName(ctx context.Context, t *domain.Transcript) (string, error) {
	if m.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	var sb strings.Builder
	limit := t.Start() + metadataWindow
	for _, u := range t.Utterances {
		if u.Start > limit {
			break
		}
		if u.Speaker != "" {
			sb.WriteString(u.Speaker)
			sb.WriteString(": ")
		}
		sb.WriteString(strings.TrimSpace(u.Text))
		sb.WriteString("\n")
	}

	out, err := m.llm.Generate(ctx, fmt.Sprintf(extractNamePrompt, sb.String()), driven.GenerateOptions{
		MaxTokens:   100,
		System:      "You extract metadata from interview transcriptions.",
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("extract name: %w", err)
	}

	var parsed struct {
		Name *string `json:"name"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(out)), &parsed); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	if parsed.Name == nil {
		return "", nil
	}
	return strings.TrimSpace(*parsed.Name), nil
}

// TitleSegment generates a short title for an enriched segment.
func (m *MetadataService) TitleSegment(ctx context.Context, seg domain.EnrichedSegment) (string, error) {
	if m.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	labels := make([]string, 0, len(seg.Matches))
	for _, match := range seg.Matches {
		labels = append(labels, match.Label)
	}

	out, err := m.llm.Generate(ctx, fmt.Sprintf(segmentTitlePrompt, strings.Join(labels, ", "), seg.Text), driven.GenerateOptions{
		MaxTokens:   60,
		System:      "You create short titles for interview segments.",
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("title segment: %w", err)
	}

	var parsed struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(out)), &parsed); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	return strings.TrimSpace(parsed.Title), nil
}

// stripCodeFences removes a surrounding markdown code fence from model
// output, which models add despite instructions not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
