package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
)

func TestMetadataService_ExtractIntervieweeName(t *testing.T) {
	llm := &mockLLM{response: `{"name": "Jan de Vries"}`}
	svc := NewMetadataService(llm)

	transcript := &domain.Transcript{
		ID: "interview-01",
		Utterances: []domain.Utterance{
			utt("INT", 0, 30, "Vandaag spreken wij met meneer De Vries."),
			utt("RESP", 30, 90, "Mijn naam is Jan de Vries, geboren in 1928."),
			utt("RESP", 400, 500, "Later in het gesprek."),
		},
	}

	name, err := svc.ExtractIntervieweeName(context.Background(), transcript)
	require.NoError(t, err)
	assert.Equal(t, "Jan de Vries", name)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Mijn naam is Jan de Vries")
}

func TestMetadataService_ExtractIntervieweeName_WindowsOpening(t *testing.T) {
	llm := &mockLLM{response: `{"name": null}`}
	svc := NewMetadataService(llm)

	transcript := &domain.Transcript{
		ID: "interview-01",
		Utterances: []domain.Utterance{
			utt("INT", 0, 60, "De introductie."),
			utt("RESP", 600, 700, "Tekst ver na het begin."),
		},
	}

	name, err := svc.ExtractIntervieweeName(context.Background(), transcript)
	require.NoError(t, err)
	assert.Empty(t, name)

	// Only the opening minutes reach the model.
	assert.Contains(t, llm.prompts[0], "De introductie")
	assert.NotContains(t, llm.prompts[0], "ver na het begin")
}

func TestMetadataService_ExtractIntervieweeName_FencedResponse(t *testing.T) {
	llm := &mockLLM{response: "```json\n{\"name\": \"Maria Janssen\"}\n```"}
	svc := NewMetadataService(llm)

	name, err := svc.ExtractIntervieweeName(context.Background(), &domain.Transcript{
		ID:         "interview-01",
		Utterances: []domain.Utterance{utt("INT", 0, 10, "hallo")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Maria Janssen", name)
}

func TestMetadataService_ExtractIntervieweeName_Malformed(t *testing.T) {
	llm := &mockLLM{response: "I could not find a name in this text."}
	svc := NewMetadataService(llm)

	_, err := svc.ExtractIntervieweeName(context.Background(), &domain.Transcript{
		ID:         "interview-01",
		Utterances: []domain.Utterance{utt("INT", 0, 10, "hallo")},
	})
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestMetadataService_ExtractIntervieweeName_LLMError(t *testing.T) {
	llm := &mockLLM{err: errors.New("connection refused")}
	svc := NewMetadataService(llm)

	_, err := svc.ExtractIntervieweeName(context.Background(), &domain.Transcript{
		ID:         "interview-01",
		Utterances: []domain.Utterance{utt("INT", 0, 10, "hallo")},
	})
	assert.Error(t, err)
}

func TestMetadataService_NoLLM(t *testing.T) {
	svc := NewMetadataService(nil)

	_, err := svc.ExtractIntervieweeName(context.Background(), &domain.Transcript{ID: "x"})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)

	_, err = svc.TitleSegment(context.Background(), domain.EnrichedSegment{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestMetadataService_TitleSegment(t *testing.T) {
	llm := &mockLLM{response: `{"title": "Aankomst in kamp Westerbork"}`}
	svc := NewMetadataService(llm)

	enriched := domain.EnrichedSegment{
		ScoredSegment: scoredSeg("seg-1", "Wij kwamen aan in Westerbork."),
		Matches: []domain.ValidatedMatch{
			{MatchCandidate: domain.MatchCandidate{ConceptID: "c-westerbork"}, Label: "Kamp Westerbork", Accepted: true},
		},
	}

	title, err := svc.TitleSegment(context.Background(), enriched)
	require.NoError(t, err)
	assert.Equal(t, "Aankomst in kamp Westerbork", title)

	// The prompt carries both the concept labels and the fragment text.
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Kamp Westerbork")
	assert.Contains(t, llm.prompts[0], "Wij kwamen aan in Westerbork.")
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.in))
		})
	}
}
