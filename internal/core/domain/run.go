package domain

import "time"

// UnresolvedCandidate records a candidate whose validation failed after
// exhausting the retry budget. It is excluded from output and surfaced
// here for manual follow-up.
type UnresolvedCandidate struct {
	// SegmentID and ConceptID identify the failed pairing.
	SegmentID string
	ConceptID string

	// Method is the signal that produced the candidate.
	Method MatchMethod

	// Reason is the final error message after retries.
	Reason string
}

// RunSummary aggregates per-run statistics and non-fatal failures.
// Failures are returned alongside results; only input errors abort a
// transcript's run.
type RunSummary struct {
	// TranscriptID identifies the processed transcript.
	TranscriptID string

	// SegmentCount is the number of segments produced.
	SegmentCount int

	// SelectedCount is the number of segments chosen for enrichment.
	SelectedCount int

	// CandidateCount is the total number of merged candidates examined.
	CandidateCount int

	// ValidatorCalls counts fresh validator invocations (after batching).
	ValidatorCalls int

	// CacheHits counts decisions reused from the validation cache.
	CacheHits int

	// Unresolved lists candidates that failed validation permanently.
	Unresolved []UnresolvedCandidate

	// EmbeddingDegraded lists segment IDs that fell back to exact-only
	// matching because their embedding could not be computed.
	EmbeddingDegraded []string

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// RunResult is the full output of one transcript's pipeline run.
type RunResult struct {
	// TranscriptID identifies the processed transcript.
	TranscriptID string

	// IntervieweeName is the extracted interviewee name, empty when
	// extraction is disabled or failed.
	IntervieweeName string

	// Segments is the full segmentation.
	Segments []Segment

	// Selected is the scored subset chosen for enrichment.
	Selected []ScoredSegment

	// Enriched holds the final enriched segments, mirroring Selected's order.
	Enriched []EnrichedSegment

	// Summary aggregates statistics and non-fatal failures.
	Summary RunSummary
}
