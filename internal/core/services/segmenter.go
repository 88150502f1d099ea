package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/logger"
)

// Segmenter cuts a transcript into ordered, non-overlapping segments.
// It is a pure, synchronous transformation of its input and config.
type Segmenter struct {
	cfg domain.SegmenterConfig
}

// NewSegmenter creates a segmenter with the given configuration.
func NewSegmenter(cfg domain.SegmenterConfig) *Segmenter {
	if cfg.MinutesPerBatch <= 0 {
		cfg.MinutesPerBatch = domain.DefaultSegmenterConfig().MinutesPerBatch
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = 2 * cfg.Target()
	}
	if cfg.CoverageTolerance <= 0 {
		cfg.CoverageTolerance = domain.DefaultSegmenterConfig().CoverageTolerance
	}
	return &Segmenter{cfg: cfg}
}

// Segment walks the utterances in time order, accumulating until the
// target duration is reached, then closes the segment at an utterance
// boundary, snapped to a pause or speaker change within the configured
// window when one exists. A tail shorter than MinLen merges into the
// previous segment; a candidate exceeding MaxLen is split at the best
// available boundary even without a natural pause.
//
// Segments are contiguous: each segment ends where the next begins, so
// inter-utterance silence never opens a coverage gap.
func (s *Segmenter) Segment(t *domain.Transcript) ([]domain.Segment, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	utts := t.Utterances
	var bounds []boundary // closing utterance index + break confidence

	start := 0
	for start < len(utts) {
		end, conf := s.closeSegment(utts, start)
		bounds = append(bounds, boundary{index: end, confidence: conf})
		start = end + 1
	}

	// Merge an under-length tail into its predecessor.
	if len(bounds) > 1 {
		last := bounds[len(bounds)-1]
		prev := bounds[len(bounds)-2]
		tailStart := utts[prev.index+1].Start
		if utts[last.index].End-tailStart < s.cfg.MinLen {
			logger.Debug("Merging %v tail into previous segment", utts[last.index].End-tailStart)
			bounds = bounds[:len(bounds)-1]
			bounds[len(bounds)-1] = boundary{index: last.index, confidence: last.confidence}
		}
	}

	segments := s.build(t, bounds)

	if err := domain.ValidateSegmentation(t, segments, s.cfg.CoverageTolerance); err != nil {
		return nil, fmt.Errorf("segmentation invariant: %w", err)
	}
	return segments, nil
}

// boundary marks the index of a segment's final utterance.
type boundary struct {
	index      int
	confidence float64
}

// closeSegment finds the closing utterance index for a segment starting
// at utterance index start, and the confidence of that break.
func (s *Segmenter) closeSegment(utts []domain.Utterance, start int) (int, float64) {
	segStart := utts[start].Start
	targetEnd := segStart + s.cfg.Target()

	// Default close: last utterance ending at or before the target,
	// bounded by MaxLen. Never split mid-utterance, so a single
	// over-length utterance still forms its own segment.
	def := start
	forced := false
	for k := start; k < len(utts); k++ {
		if k > start {
			if utts[k].End-segStart > s.cfg.MaxLen {
				forced = true
				break
			}
			if utts[k].End > targetEnd {
				break
			}
		}
		def = k
	}

	if def == len(utts)-1 {
		// Transcript exhausted before the target: single or final segment.
		return def, 1.0
	}

	// Snap to the best natural break near the target.
	if snapped, conf, ok := s.snap(utts, start, def, targetEnd); ok {
		return snapped, conf
	}

	if forced {
		// No natural break available under MaxLen; keep the furthest
		// boundary that fits.
		return def, 0.2
	}
	return def, s.breakConfidence(utts, def)
}

// snap searches the look-ahead/look-behind window around the target for
// a pause or speaker-change boundary, preferring the longest pause and
// breaking ties by closeness to the target.
func (s *Segmenter) snap(utts []domain.Utterance, start, def int, targetEnd time.Duration) (int, float64, bool) {
	best := -1
	var bestPause time.Duration
	var bestDist time.Duration

	for k := start; k < len(utts)-1; k++ {
		end := utts[k].End
		if end < targetEnd-s.cfg.SnapWindow {
			continue
		}
		if end > targetEnd+s.cfg.SnapWindow {
			break
		}
		if end-utts[start].Start > s.cfg.MaxLen {
			break
		}
		pause := utts[k+1].Start - end
		change := speakerChange(utts[k], utts[k+1])
		if pause < s.cfg.PauseThreshold && !change {
			continue
		}
		dist := absDuration(end - targetEnd)
		if best == -1 || pause > bestPause || (pause == bestPause && dist < bestDist) {
			best, bestPause, bestDist = k, pause, dist
		}
	}

	if best == -1 {
		return 0, 0, false
	}
	return best, s.breakConfidence(utts, best), true
}

// breakConfidence rates the break after utterance k: pauses and speaker
// changes make good cut points, plain word boundaries do not.
func (s *Segmenter) breakConfidence(utts []domain.Utterance, k int) float64 {
	if k >= len(utts)-1 {
		return 1.0
	}
	conf := 0.3
	if utts[k+1].Start-utts[k].End >= s.cfg.PauseThreshold {
		conf += 0.5
	}
	if speakerChange(utts[k], utts[k+1]) {
		conf += 0.2
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

// build materialises segments from boundaries. Each segment runs from its
// first utterance's start to the next segment's first utterance start;
// the final segment ends at the transcript end.
func (s *Segmenter) build(t *domain.Transcript, bounds []boundary) []domain.Segment {
	utts := t.Utterances
	segments := make([]domain.Segment, 0, len(bounds))

	start := 0
	for i, b := range bounds {
		segUtts := utts[start : b.index+1]

		segStart := segUtts[0].Start
		if i == 0 {
			segStart = t.Start()
		}
		segEnd := t.End()
		if b.index+1 < len(utts) {
			segEnd = utts[b.index+1].Start
		}

		segments = append(segments, domain.Segment{
			ID:                 uuid.New().String(),
			TranscriptID:       t.ID,
			Start:              segStart,
			End:                segEnd,
			Utterances:         segUtts,
			Text:               joinUtterances(segUtts),
			BoundaryConfidence: b.confidence,
		})
		start = b.index + 1
	}
	return segments
}

func speakerChange(a, b domain.Utterance) bool {
	return a.Speaker != "" && b.Speaker != "" && a.Speaker != b.Speaker
}

// joinUtterances flattens utterance texts into one line of segment text.
func joinUtterances(utts []domain.Utterance) string {
	parts := make([]string, 0, len(utts))
	for _, u := range utts {
		text := strings.TrimSpace(strings.ReplaceAll(u.Text, "\n", " "))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
