// Package validator provides an LLM-backed concept validator that judges
// whether candidate thesaurus concepts are genuinely relevant to a
// transcript segment.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
)

// Ensure Validator implements the interface.
var _ driven.ConceptValidator = (*Validator)(nil)

// Default configuration values.
const (
	DefaultMaxCandidatesPerCall = 25
	DefaultMaxTokens            = 1024

	// Rough estimate: 4 chars per token.
	charsPerToken = 4

	// minSegmentChars keeps at least this much segment text after
	// truncation, even when the candidate list is large.
	minSegmentChars = 200
)

// Config holds validator configuration.
type Config struct {
	// MaxCandidatesPerCall caps the candidates batched into one call
	// (default: 25).
	MaxCandidatesPerCall int

	// MaxTokens bounds the completion length (default: 1024).
	MaxTokens int
}

// Validator judges candidate concepts against a segment with a single
// prompt per batch. Acceptance is a strict relevance test: an incidental
// word match is not enough, the concept has to be central to the segment.
type Validator struct {
	llm        driven.LLMService
	maxPerCall int
	maxTokens  int
}

// New creates a Validator backed by the given LLM service.
func New(llm driven.LLMService, config Config) *Validator {
	if config.MaxCandidatesPerCall <= 0 {
		config.MaxCandidatesPerCall = DefaultMaxCandidatesPerCall
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	return &Validator{
		llm:        llm,
		maxPerCall: config.MaxCandidatesPerCall,
		maxTokens:  config.MaxTokens,
	}
}

// MaxCandidatesPerCall returns the batching ceiling.
func (v *Validator) MaxCandidatesPerCall() int {
	return v.maxPerCall
}

// ModelName returns the underlying model identifier.
func (v *Validator) ModelName() string {
	return v.llm.ModelName()
}

// decision is the JSON shape the model is asked to return per concept.
type decision struct {
	ID       string  `json:"id"`
	Relevant bool    `json:"relevant"`
	Score    float64 `json:"score"`
}

// Validate judges all candidates in one LLM call. Every requested concept
// gets a decision; concepts the model leaves out come back rejected with
// zero confidence.
func (v *Validator) Validate(ctx context.Context, req driven.ValidationRequest) ([]driven.Decision, error) {
	if len(req.Candidates) == 0 {
		return nil, nil
	}
	if strings.TrimSpace(req.SegmentText) == "" {
		return nil, fmt.Errorf("%w: empty segment text", domain.ErrInvalidInput)
	}

	prompt := v.buildPrompt(req)
	out, err := v.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   v.maxTokens,
		Temperature: 0.0,
	})
	if err != nil {
		return nil, fmt.Errorf("validate concepts: %w", err)
	}

	var parsed []decision
	if err := json.Unmarshal([]byte(cleanJSONOutput(out)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}

	byID := make(map[string]decision, len(parsed))
	for _, d := range parsed {
		byID[strings.TrimSpace(d.ID)] = d
	}

	decisions := make([]driven.Decision, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		d, ok := byID[c.ID]
		if !ok {
			decisions = append(decisions, driven.Decision{ConceptID: c.ID})
			continue
		}
		conf := d.Score
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		decisions = append(decisions, driven.Decision{
			ConceptID:  c.ID,
			Accepted:   d.Relevant,
			Confidence: conf,
		})
	}
	return decisions, nil
}

// buildPrompt assembles the validation prompt, truncating the segment
// text so the whole request stays within req.TokenLimit.
func (v *Validator) buildPrompt(req driven.ValidationRequest) string {
	var list strings.Builder
	for _, c := range req.Candidates {
		list.WriteString("- id: ")
		list.WriteString(c.ID)
		list.WriteString(" | ")
		list.WriteString(c.PrefLabel)
		if c.ScopeNote != "" {
			list.WriteString(" – ")
			list.WriteString(c.ScopeNote)
		}
		list.WriteString("\n")
	}

	text := req.SegmentText
	if req.TokenLimit > 0 {
		budget := req.TokenLimit*charsPerToken - len(promptTemplate) - list.Len()
		if budget < minSegmentChars {
			budget = minSegmentChars
		}
		text = truncateText(text, budget)
	}

	return fmt.Sprintf(promptTemplate, text, list.String())
}

// promptTemplate spells out the strict relevance rules. The model must
// judge every listed concept and answer in JSON only.
const promptTemplate = `Below is a fragment from an oral history interview about World War II:

"""%s"""

Below that is a list of concepts from a World War II thesaurus, each with
an id and a label.

Validate for every concept whether it is clearly relevant to the fragment,
following these strict rules:

Rule 1: Mark a concept relevant only if the fragment is clearly about that topic.
Rule 2: Do NOT mark a concept relevant based on a single incidental word match; it must be central to the fragment.
Rule 3: For a specific event, place, or organization, mark it relevant only if the fragment unquestionably refers to that concept.
Rule 4: If there is some relevance but you are unsure, mark it relevant with a lower score.
Rule 5: For every concept, include a score between 0 and 1 (1.0 = very certain, 0 = very uncertain).
Rule 6: Judge every concept in the list, including the ones you reject.

Output must be strictly a JSON list in this format and nothing else:

[
  {"id": "concept-id", "relevant": true, "score": 0.85},
  {"id": "another-id", "relevant": false, "score": 0.9}
]

Concept list:
%s
Important:
- Output ONLY the JSON list, with no explanations and no extra text.`

// truncateText cuts text to at most max bytes, breaking on a word
// boundary where possible and never inside a multi-byte rune.
func truncateText(text string, max int) string {
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	cut := text[:max]
	if idx := strings.LastIndexByte(cut, ' '); idx > max/2 {
		cut = cut[:idx]
	}
	return cut
}

// cleanJSONOutput strips a surrounding markdown code fence and any prose
// around the JSON list, which models add despite instructions not to.
func cleanJSONOutput(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if start := strings.IndexByte(s, '['); start >= 0 {
		if end := strings.LastIndexByte(s, ']'); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
