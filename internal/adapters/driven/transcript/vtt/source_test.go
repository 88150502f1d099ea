package vtt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
)

const sampleVTT = `WEBVTT

NOTE
Transcribed from tape 3.

1
00:00:01.000 --> 00:00:04.500
INT: Kunt u vertellen waar u woonde in 1940?

2
00:00:05.000 --> 00:00:12.250
RESP: Wij woonden toen in Rotterdam,
vlakbij de haven.

00:00:13.000 --> 00:00:15.000
<v Interviewer>En daarna?

01:00:20.000 --> 01:00:25.000
Zonder spreker, gewoon tekst.
`

func writeVTT(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "interview-042.vtt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSource_Load(t *testing.T) {
	src := New()

	tr, err := src.Load(context.Background(), writeVTT(t, sampleVTT))
	require.NoError(t, err)

	assert.Equal(t, "interview-042", tr.ID)
	require.Len(t, tr.Utterances, 4)

	first := tr.Utterances[0]
	assert.Equal(t, "INT", first.Speaker)
	assert.Equal(t, 1*time.Second, first.Start)
	assert.Equal(t, 4500*time.Millisecond, first.End)
	assert.Equal(t, "Kunt u vertellen waar u woonde in 1940?", first.Text)

	// Multi-line cue text is joined into one utterance.
	second := tr.Utterances[1]
	assert.Equal(t, "RESP", second.Speaker)
	assert.Equal(t, "Wij woonden toen in Rotterdam, vlakbij de haven.", second.Text)

	// Voice tags carry the speaker too.
	third := tr.Utterances[2]
	assert.Equal(t, "Interviewer", third.Speaker)
	assert.Equal(t, "En daarna?", third.Text)

	// Hour component is optional but honoured when present.
	fourth := tr.Utterances[3]
	assert.Empty(t, fourth.Speaker)
	assert.Equal(t, time.Hour+20*time.Second, fourth.Start)
	assert.Equal(t, "Zonder spreker, gewoon tekst.", fourth.Text)
}

func TestSource_Load_MissingFile(t *testing.T) {
	_, err := New().Load(context.Background(), filepath.Join(t.TempDir(), "nope.vtt"))
	assert.Error(t, err)
}

func TestSource_Load_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Load(ctx, writeVTT(t, sampleVTT))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_MissingHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("00:00:01.000 --> 00:00:02.000\nhoi\n"), "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParse_BOMHeader(t *testing.T) {
	tr, err := Parse(strings.NewReader("\ufeffWEBVTT\n\n00:01.000 --> 00:02.000\ntekst\n"), "x")
	require.NoError(t, err)
	require.Len(t, tr.Utterances, 1)
	assert.Equal(t, time.Second, tr.Utterances[0].Start)
}

func TestParse_CueSettingsIgnored(t *testing.T) {
	input := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000 align:start position:10%\ntekst\n"
	tr, err := Parse(strings.NewReader(input), "x")
	require.NoError(t, err)
	require.Len(t, tr.Utterances, 1)
	assert.Equal(t, 2*time.Second, tr.Utterances[0].End)
}

func TestParse_InlineTagsStripped(t *testing.T) {
	input := "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\n<i>Kamp</i> <00:00:01.500>Westerbork\n"
	tr, err := Parse(strings.NewReader(input), "x")
	require.NoError(t, err)
	assert.Equal(t, "Kamp Westerbork", tr.Utterances[0].Text)
}

func TestParse_EmptyTranscript(t *testing.T) {
	_, err := Parse(strings.NewReader("WEBVTT\n\nNOTE only comments here\n"), "x")
	assert.ErrorIs(t, err, domain.ErrEmptyTranscript)
}

func TestParse_MalformedTimestamp(t *testing.T) {
	inputs := []string{
		"WEBVTT\n\n00:00:xx.000 --> 00:00:02.000\ntekst\n",
		"WEBVTT\n\n00:00:02.000 --> 00:00:01.000\ntekst\n",
		"WEBVTT\n\n00:99:00.000 --> 01:40:00.000\ntekst\n",
	}
	for _, input := range inputs {
		_, err := Parse(strings.NewReader(input), "x")
		assert.ErrorIs(t, err, domain.ErrInvalidInput, input)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"00:00:01.000", time.Second},
		{"00:01.500", 1500 * time.Millisecond},
		{"01:02:03.250", time.Hour + 2*time.Minute + 3*time.Second + 250*time.Millisecond},
		{"05:10", 5*time.Minute + 10*time.Second},
		{"00:00:01.5", 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		got, err := parseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSplitSpeaker(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		speaker string
		text    string
	}{
		{"uppercase label", "INT: Waar was u?", "INT", "Waar was u?"},
		{"numbered label", "SPREKER 2: Ja.", "SPREKER 2", "Ja."},
		{"voice tag", "<v Jan de Vries>Wij vertrokken.", "Jan de Vries", "Wij vertrokken."},
		{"classed voice tag", "<v.fluister Interviewer>Stil.", "Interviewer", "Stil."},
		{"sentence with colon", "Het was zo: wij vluchtten.", "", "Het was zo: wij vluchtten."},
		{"no speaker", "Gewone tekst.", "", "Gewone tekst."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			speaker, text := splitSpeaker(tt.in)
			assert.Equal(t, tt.speaker, speaker)
			assert.Equal(t, tt.text, text)
		})
	}
}
