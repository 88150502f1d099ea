package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
)

// utt builds a test utterance spanning [start, end) seconds.
func utt(speaker string, startSec, endSec int, text string) domain.Utterance {
	return domain.Utterance{
		Speaker: speaker,
		Start:   time.Duration(startSec) * time.Second,
		End:     time.Duration(endSec) * time.Second,
		Text:    text,
	}
}

func TestSegmenter_Segment_SplitsAtPauses(t *testing.T) {
	// Twelve minutes of speech with clear pauses near the 5 and 10 minute
	// marks. Expect three segments closed on those pauses.
	transcript := &domain.Transcript{
		ID: "interview-01",
		Utterances: []domain.Utterance{
			utt("INT", 0, 60, "Could you tell me where you were born?"),
			utt("RESP", 60, 120, "I was born in Rotterdam in 1931."),
			utt("RESP", 120, 180, "My father worked at the harbour."),
			utt("RESP", 180, 240, "We lived close to the water."),
			utt("RESP", 240, 300, "Those were quiet years, before everything changed."),
			// 2 second pause
			utt("INT", 302, 375, "What do you remember of the first days of the war?"),
			utt("RESP", 375, 450, "The planes came over early in the morning."),
			utt("RESP", 450, 525, "We hid in the cellar with the neighbours."),
			utt("RESP", 525, 600, "After the bombardment the whole street was gone."),
			// 2 second pause
			utt("RESP", 602, 720, "Later we were evacuated to my aunt in Utrecht, and I stayed there for the rest of the war."),
		},
	}

	seg := NewSegmenter(domain.DefaultSegmenterConfig())
	segments, err := seg.Segment(transcript)
	require.NoError(t, err)
	require.Len(t, segments, 3)

	assert.Equal(t, time.Duration(0), segments[0].Start)
	assert.Equal(t, 302*time.Second, segments[0].End)
	assert.Equal(t, 302*time.Second, segments[1].Start)
	assert.Equal(t, 602*time.Second, segments[1].End)
	assert.Equal(t, 602*time.Second, segments[2].Start)
	assert.Equal(t, 720*time.Second, segments[2].End)

	assert.Len(t, segments[0].Utterances, 5)
	assert.Len(t, segments[1].Utterances, 4)
	assert.Len(t, segments[2].Utterances, 1)

	// The first break has a pause and a speaker change, the second only a
	// pause; the final boundary is certain.
	assert.InDelta(t, 1.0, segments[0].BoundaryConfidence, 0.001)
	assert.InDelta(t, 0.8, segments[1].BoundaryConfidence, 0.001)
	assert.Equal(t, 1.0, segments[2].BoundaryConfidence)

	for _, s := range segments {
		assert.Equal(t, "interview-01", s.TranscriptID)
		assert.NotEmpty(t, s.ID)
		assert.NotEmpty(t, s.Text)
	}
}

func TestSegmenter_Segment_Deterministic(t *testing.T) {
	transcript := &domain.Transcript{
		ID: "interview-01",
		Utterances: []domain.Utterance{
			utt("A", 0, 120, "First part of the story."),
			utt("B", 122, 300, "Second part of the story."),
			utt("A", 300, 480, "Third part of the story."),
		},
	}

	seg := NewSegmenter(domain.DefaultSegmenterConfig())
	first, err := seg.Segment(transcript)
	require.NoError(t, err)
	second, err := seg.Segment(transcript)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		// IDs are fresh per run; everything else is identical.
		assert.Equal(t, first[i].Start, second[i].Start)
		assert.Equal(t, first[i].End, second[i].End)
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].BoundaryConfidence, second[i].BoundaryConfidence)
	}
}

func TestSegmenter_Segment_ShortTranscript(t *testing.T) {
	transcript := &domain.Transcript{
		ID: "short",
		Utterances: []domain.Utterance{
			utt("RESP", 0, 90, "A short statement and nothing more."),
		},
	}

	seg := NewSegmenter(domain.DefaultSegmenterConfig())
	segments, err := seg.Segment(transcript)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, time.Duration(0), segments[0].Start)
	assert.Equal(t, 90*time.Second, segments[0].End)
	assert.Equal(t, 1.0, segments[0].BoundaryConfidence)
}

func TestSegmenter_Segment_MergesShortTail(t *testing.T) {
	// The last half minute would form its own under-length segment; it
	// merges into the previous one instead.
	transcript := &domain.Transcript{
		ID: "tail",
		Utterances: []domain.Utterance{
			utt("RESP", 0, 60, "one"),
			utt("RESP", 60, 120, "two"),
			utt("RESP", 120, 180, "three"),
			utt("RESP", 180, 240, "four"),
			utt("RESP", 240, 300, "five"),
			utt("RESP", 300, 330, "six"),
		},
	}

	seg := NewSegmenter(domain.DefaultSegmenterConfig())
	segments, err := seg.Segment(transcript)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, time.Duration(0), segments[0].Start)
	assert.Equal(t, 330*time.Second, segments[0].End)
	assert.Len(t, segments[0].Utterances, 6)
}

func TestSegmenter_Segment_ForcedSplitUnderMaxLen(t *testing.T) {
	// The second utterance would push the first segment past MaxLen, so
	// the segmenter is forced to break before it, at low confidence.
	transcript := &domain.Transcript{
		ID: "forced",
		Utterances: []domain.Utterance{
			utt("RESP", 0, 240, "An opening without any pause."),
			utt("RESP", 240, 900, "A very long uninterrupted account that runs on and on."),
		},
	}

	cfg := domain.DefaultSegmenterConfig()
	cfg.MaxLen = 10 * time.Minute
	seg := NewSegmenter(cfg)
	segments, err := seg.Segment(transcript)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, 240*time.Second, segments[0].End)
	assert.InDelta(t, 0.2, segments[0].BoundaryConfidence, 0.001)
	assert.Equal(t, 1.0, segments[1].BoundaryConfidence)
}

func TestSegmenter_Segment_SnapsToSpeakerChange(t *testing.T) {
	// No pauses anywhere; the speaker change near the target is still
	// preferred over a plain word boundary.
	transcript := &domain.Transcript{
		ID: "speakers",
		Utterances: []domain.Utterance{
			utt("INT", 0, 150, "A long question about the occupation."),
			utt("RESP", 150, 300, "The first half of the answer."),
			utt("INT", 300, 450, "A follow-up question."),
			utt("RESP", 450, 600, "The rest of the conversation."),
		},
	}

	seg := NewSegmenter(domain.DefaultSegmenterConfig())
	segments, err := seg.Segment(transcript)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, 300*time.Second, segments[0].End)
	// Speaker change without a pause: 0.3 base + 0.2.
	assert.InDelta(t, 0.5, segments[0].BoundaryConfidence, 0.001)
}

func TestSegmenter_Segment_EmptyTranscript(t *testing.T) {
	seg := NewSegmenter(domain.DefaultSegmenterConfig())

	_, err := seg.Segment(&domain.Transcript{ID: "empty"})
	assert.ErrorIs(t, err, domain.ErrEmptyTranscript)
}

func TestSegmenter_Segment_InvalidTranscript(t *testing.T) {
	seg := NewSegmenter(domain.DefaultSegmenterConfig())

	_, err := seg.Segment(&domain.Transcript{
		ID: "bad",
		Utterances: []domain.Utterance{
			utt("A", 10, 5, "ends before it starts"),
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSegmenter_Segment_CoversTranscript(t *testing.T) {
	transcript := &domain.Transcript{
		ID: "coverage",
		Utterances: []domain.Utterance{
			utt("A", 0, 100, "a"),
			utt("B", 103, 290, "b"),
			utt("A", 290, 470, "c"),
			utt("B", 472, 640, "d"),
			utt("A", 640, 800, "e"),
		},
	}

	seg := NewSegmenter(domain.DefaultSegmenterConfig())
	segments, err := seg.Segment(transcript)
	require.NoError(t, err)

	// Contiguity: each segment ends exactly where the next begins.
	assert.Equal(t, transcript.Start(), segments[0].Start)
	assert.Equal(t, transcript.End(), segments[len(segments)-1].End)
	for i := 1; i < len(segments); i++ {
		assert.Equal(t, segments[i-1].End, segments[i].Start)
	}
}

func TestJoinUtterances(t *testing.T) {
	utts := []domain.Utterance{
		{Text: "First line\nwith a break"},
		{Text: "  second  "},
		{Text: ""},
		{Text: "third"},
	}
	assert.Equal(t, "First line with a break second third", joinUtterances(utts))
}
