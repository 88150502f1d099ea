package domain

import "sort"

// MatchMethod identifies which signal produced a candidate.
type MatchMethod string

// Available match methods.
const (
	// MethodExact marks a lexical occurrence of a concept label in the
	// segment text. The stronger of the two signals.
	MethodExact MatchMethod = "exact"

	// MethodEmbedding marks a cosine-similarity hit between the segment
	// embedding and a concept embedding.
	MethodEmbedding MatchMethod = "embedding"
)

// IsValid returns true if the match method is recognised.
func (m MatchMethod) IsValid() bool {
	return m == MethodExact || m == MethodEmbedding
}

// MatchCandidate is a concept proposed for a segment, before validation.
// Candidates are ephemeral: created, validated, and discarded per run.
type MatchCandidate struct {
	// SegmentID is the segment being matched.
	SegmentID string

	// ConceptID is the proposed thesaurus concept.
	ConceptID string

	// Method records which signal produced the candidate.
	Method MatchMethod

	// RawScore is 1.0 for exact occurrences and the cosine similarity
	// for embedding hits.
	RawScore float64
}

// ValidationSource records where a validation decision came from.
type ValidationSource string

// Available validation sources.
const (
	// SourceLLM marks a fresh validator decision.
	SourceLLM ValidationSource = "llm"

	// SourceCache marks a decision reused from the validation cache.
	SourceCache ValidationSource = "cache"
)

// ValidatedMatch is a candidate with its validation outcome attached.
type ValidatedMatch struct {
	MatchCandidate

	// Label is the concept's preferred label, denormalised for output.
	Label string

	// Accepted is the validator's yes/no decision.
	Accepted bool

	// Confidence is the validator's confidence in the decision (0-1).
	Confidence float64

	// Source records whether the decision was fresh or cached.
	Source ValidationSource
}

// MergeCandidates merges exact and embedding candidates, deduplicating by
// concept ID. A concept yielded by both methods is kept once, tagged
// exact: the lexical occurrence is treated as the stronger signal.
// Result order: exact candidates first (input order), then embedding
// candidates by descending raw score.
func MergeCandidates(exact, embedding []MatchCandidate) []MatchCandidate {
	merged := make([]MatchCandidate, 0, len(exact)+len(embedding))
	seen := make(map[string]struct{}, len(exact)+len(embedding))

	for _, c := range exact {
		if _, dup := seen[c.ConceptID]; dup {
			continue
		}
		seen[c.ConceptID] = struct{}{}
		merged = append(merged, c)
	}

	rest := make([]MatchCandidate, 0, len(embedding))
	for _, c := range embedding {
		if _, dup := seen[c.ConceptID]; dup {
			continue
		}
		seen[c.ConceptID] = struct{}{}
		rest = append(rest, c)
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].RawScore != rest[j].RawScore {
			return rest[i].RawScore > rest[j].RawScore
		}
		return rest[i].ConceptID < rest[j].ConceptID
	})

	return append(merged, rest...)
}

// DedupeMatches keeps the highest-confidence match per concept ID,
// preserving nothing of the losers. Ties keep the first occurrence.
func DedupeMatches(matches []ValidatedMatch) []ValidatedMatch {
	best := make(map[string]int, len(matches))
	deduped := make([]ValidatedMatch, 0, len(matches))
	for _, m := range matches {
		idx, ok := best[m.ConceptID]
		if !ok {
			best[m.ConceptID] = len(deduped)
			deduped = append(deduped, m)
			continue
		}
		if m.Confidence > deduped[idx].Confidence {
			deduped[idx] = m
		}
	}
	return deduped
}
