package domain

import (
	"fmt"
	"sort"
	"time"
)

// Segment is a contiguous, non-overlapping slice of a transcript.
// Segments are created by the segmenter and immutable afterwards.
type Segment struct {
	// ID is the unique identifier for the segment.
	ID string

	// TranscriptID links back to the source transcript.
	TranscriptID string

	// Start is the offset of the first utterance in the segment.
	Start time.Duration

	// End is the offset at which the last utterance finishes.
	End time.Duration

	// Utterances are the transcript utterances covered by this segment.
	Utterances []Utterance

	// Text is the concatenated utterance text, newline-flattened.
	Text string

	// BoundaryConfidence rates the quality of the closing break (0-1).
	// A break snapped to a pause or speaker change scores high; a forced
	// mid-speech split scores low. Consumed by the selector.
	BoundaryConfidence float64
}

// Duration returns the span covered by the segment.
func (s Segment) Duration() time.Duration {
	return s.End - s.Start
}

// ScoredSegment is a segment with its selection relevance score.
// The score is deterministic for identical segment content and weights.
type ScoredSegment struct {
	Segment

	// Score is the combined relevance score used for selection.
	Score float64
}

// EnrichedSegment is a selected segment with its accepted concept matches.
type EnrichedSegment struct {
	ScoredSegment

	// Title is an optional short LLM-generated title. Best effort; empty
	// when title generation is disabled or failed.
	Title string

	// Matches holds only accepted matches, deduplicated by concept ID
	// (highest confidence wins), ordered by confidence descending with
	// ties broken by concept ID.
	Matches []ValidatedMatch
}

// ValidateSegmentation checks the segmentation invariants: segments are
// time-ordered, non-overlapping, and their union covers the transcript
// span with no gap larger than tolerance.
func ValidateSegmentation(t *Transcript, segments []Segment, tolerance time.Duration) error {
	if len(segments) == 0 {
		return fmt.Errorf("%w: no segments for transcript %s", ErrInvalidInput, t.ID)
	}
	if gap := absDuration(segments[0].Start - t.Start()); gap > tolerance {
		return fmt.Errorf("%w: segmentation starts %v after transcript start", ErrInvalidInput, gap)
	}
	if gap := absDuration(t.End() - segments[len(segments)-1].End); gap > tolerance {
		return fmt.Errorf("%w: segmentation ends %v before transcript end", ErrInvalidInput, gap)
	}
	for i := 1; i < len(segments); i++ {
		prev, cur := segments[i-1], segments[i]
		if cur.Start < prev.End {
			return fmt.Errorf("%w: segments %s and %s overlap", ErrInvalidInput, prev.ID, cur.ID)
		}
		if gap := cur.Start - prev.End; gap > tolerance {
			return fmt.Errorf("%w: %v gap between segments %s and %s", ErrInvalidInput, gap, prev.ID, cur.ID)
		}
	}
	return nil
}

// SortMatches orders matches by confidence descending, ties by concept ID.
func SortMatches(matches []ValidatedMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].ConceptID < matches[j].ConceptID
	})
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
