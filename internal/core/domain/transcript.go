package domain

import (
	"fmt"
	"time"
)

// Utterance is a single timestamped span of speech in a transcript.
type Utterance struct {
	// Speaker is the speaker label, empty when the source has none.
	Speaker string

	// Start is the offset from the beginning of the recording.
	Start time.Duration

	// End is the offset at which the utterance finishes.
	End time.Duration

	// Text is the spoken text.
	Text string
}

// Duration returns the length of the utterance.
func (u Utterance) Duration() time.Duration {
	return u.End - u.Start
}

// Transcript is an ordered sequence of utterances for one recording.
// It is owned by the caller and read-only to the pipeline.
type Transcript struct {
	// ID identifies the transcript, usually derived from the source file name.
	ID string

	// Utterances are ordered by start time.
	Utterances []Utterance
}

// Start returns the start offset of the first utterance.
func (t *Transcript) Start() time.Duration {
	if len(t.Utterances) == 0 {
		return 0
	}
	return t.Utterances[0].Start
}

// End returns the end offset of the last utterance.
func (t *Transcript) End() time.Duration {
	if len(t.Utterances) == 0 {
		return 0
	}
	return t.Utterances[len(t.Utterances)-1].End
}

// Duration returns the span covered by the transcript.
func (t *Transcript) Duration() time.Duration {
	return t.End() - t.Start()
}

// Validate checks that the transcript is non-empty and time-ordered.
// An invalid transcript aborts processing for that transcript only.
func (t *Transcript) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: transcript has no ID", ErrInvalidInput)
	}
	if len(t.Utterances) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyTranscript, t.ID)
	}
	for i, u := range t.Utterances {
		if u.End < u.Start {
			return fmt.Errorf("%w: transcript %s utterance %d ends before it starts", ErrInvalidInput, t.ID, i)
		}
		if i > 0 && u.Start < t.Utterances[i-1].Start {
			return fmt.Errorf("%w: transcript %s utterance %d out of order", ErrInvalidInput, t.ID, i)
		}
	}
	return nil
}
