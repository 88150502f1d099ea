// Package vtt parses WebVTT subtitle files into transcripts.
package vtt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.TranscriptSource = (*Source)(nil)

// Source loads transcripts from WebVTT files. The transcript ID is the
// file name without its extension.
type Source struct{}

// New creates a Source.
func New() *Source {
	return &Source{}
}

// Load reads and parses one WebVTT file.
func (s *Source) Load(ctx context.Context, path string) (*domain.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(f, id)
}

// Parse reads WebVTT content into a transcript. Cue identifiers, NOTE
// comments and STYLE/REGION blocks are skipped; voice tags become the
// utterance speaker.
func Parse(r io.Reader, id string) (*domain.Transcript, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}
	header := strings.TrimPrefix(strings.TrimSpace(scanner.Text()), "\ufeff")
	if header != "WEBVTT" && !strings.HasPrefix(header, "WEBVTT ") && !strings.HasPrefix(header, "WEBVTT\t") {
		return nil, fmt.Errorf("%w: missing WEBVTT header", domain.ErrInvalidInput)
	}

	transcript := &domain.Transcript{ID: id}

	var (
		inCue     bool
		skipBlock bool
		start     time.Duration
		end       time.Duration
		lines     []string
	)

	flush := func() {
		if inCue && len(lines) > 0 {
			speaker, text := splitSpeaker(strings.Join(lines, " "))
			transcript.Utterances = append(transcript.Utterances, domain.Utterance{
				Speaker: speaker,
				Start:   start,
				End:     end,
				Text:    text,
			})
		}
		inCue = false
		lines = nil
	}

	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			flush()
			skipBlock = false
			continue
		}
		if skipBlock {
			continue
		}
		if !inCue && (strings.HasPrefix(line, "NOTE") || line == "STYLE" || strings.HasPrefix(line, "REGION")) {
			skipBlock = true
			continue
		}

		if strings.Contains(line, "-->") {
			flush()
			var err error
			start, end, err = parseTimeRange(line)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidInput, lineNo, err)
			}
			inCue = true
			continue
		}

		if inCue {
			lines = append(lines, stripTags(line))
		}
		// Lines before a timestamp are cue identifiers; ignored.
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	if err := transcript.Validate(); err != nil {
		return nil, err
	}
	return transcript, nil
}

// parseTimeRange parses "00:01:02.500 --> 00:01:04.000" lines. Cue
// settings after the end timestamp are ignored.
func parseTimeRange(line string) (time.Duration, time.Duration, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed time range %q", line)
	}
	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("malformed time range %q", line)
	}
	end, err := parseTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("range %q ends before it starts", line)
	}
	return start, end, nil
}

// parseTimestamp parses "hh:mm:ss.mmm" with an optional hour component
// and optional milliseconds.
func parseTimestamp(ts string) (time.Duration, error) {
	var millis int
	if dot := strings.IndexByte(ts, '.'); dot >= 0 {
		frac := ts[dot+1:]
		if len(frac) == 0 || len(frac) > 3 {
			return 0, fmt.Errorf("bad timestamp %q", ts)
		}
		n, err := strconv.Atoi(frac)
		if err != nil {
			return 0, fmt.Errorf("bad timestamp %q", ts)
		}
		for i := len(frac); i < 3; i++ {
			n *= 10
		}
		millis = n
		ts = ts[:dot]
	}

	fields := strings.Split(ts, ":")
	if len(fields) < 2 || len(fields) > 3 {
		return 0, fmt.Errorf("bad timestamp %q", ts)
	}
	var hours, minutes, seconds int
	var err error
	idx := 0
	if len(fields) == 3 {
		if hours, err = strconv.Atoi(fields[0]); err != nil {
			return 0, fmt.Errorf("bad timestamp %q", ts)
		}
		idx = 1
	}
	if minutes, err = strconv.Atoi(fields[idx]); err != nil {
		return 0, fmt.Errorf("bad timestamp %q", ts)
	}
	if seconds, err = strconv.Atoi(fields[idx+1]); err != nil {
		return 0, fmt.Errorf("bad timestamp %q", ts)
	}
	if minutes > 59 || seconds > 59 || hours < 0 || minutes < 0 || seconds < 0 {
		return 0, fmt.Errorf("bad timestamp %q", ts)
	}

	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return total, nil
}

// splitSpeaker extracts the speaker from a voice tag ("<v Name>") or an
// uppercase "NAME:" prefix, the two conventions interview transcripts
// use. Text without either stays speakerless.
func splitSpeaker(text string) (speaker, rest string) {
	if strings.HasPrefix(text, "<v") {
		if end := strings.IndexByte(text, '>'); end > 0 {
			tag := text[2:end]
			// Voice tags may carry classes: <v.loud Name>.
			if dot := strings.IndexByte(tag, '.'); dot == 0 {
				if sp := strings.IndexByte(tag, ' '); sp >= 0 {
					tag = tag[sp:]
				}
			}
			speaker = strings.TrimSpace(tag)
			rest = strings.TrimSpace(stripTags(text[end+1:]))
			return speaker, rest
		}
	}

	if idx := strings.IndexByte(text, ':'); idx > 0 && idx <= 32 {
		prefix := strings.TrimSpace(text[:idx])
		if isSpeakerLabel(prefix) {
			return prefix, strings.TrimSpace(text[idx+1:])
		}
	}
	return "", text
}

// isSpeakerLabel reports whether a colon prefix looks like a speaker
// label: non-empty, no lowercase letters, at most three words.
func isSpeakerLabel(s string) bool {
	if s == "" || len(strings.Fields(s)) > 3 {
		return false
	}
	hasLetter := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9', r == ' ', r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return hasLetter
}

// stripTags removes inline markup (<i>, <b>, <00:00:05.000> and closing
// voice tags) from cue text.
func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case inTag:
			if r == '>' {
				inTag = false
			}
		case r == '<':
			inTag = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
