// Package export writes pipeline run results to JSON files.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
)

// Writer serialises run results into a directory, one file per
// transcript, named <transcript-id>.json.
type Writer struct {
	dir string
}

// NewWriter creates a writer targeting dir. The directory is created on
// first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// runDocument is the on-disk shape of a run result.
type runDocument struct {
	TranscriptID    string        `json:"transcript_id"`
	IntervieweeName string        `json:"interviewee_name,omitempty"`
	GeneratedAt     time.Time     `json:"generated_at"`
	Segments        []segmentDoc  `json:"segments"`
	Selected        []selectedDoc `json:"selected_segments"`
	Enriched        []enrichedDoc `json:"enriched_segments"`
	Summary         summaryDoc    `json:"summary"`
}

type segmentDoc struct {
	ID                 string  `json:"id"`
	Start              string  `json:"start"`
	End                string  `json:"end"`
	DurationSeconds    float64 `json:"duration_seconds"`
	Text               string  `json:"text"`
	BoundaryConfidence float64 `json:"boundary_confidence"`
}

type selectedDoc struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type enrichedDoc struct {
	ID      string     `json:"id"`
	Title   string     `json:"title,omitempty"`
	Score   float64    `json:"score"`
	Matches []matchDoc `json:"matches"`
}

type matchDoc struct {
	ConceptID  string  `json:"concept_id"`
	Label      string  `json:"label"`
	Method     string  `json:"method"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

type summaryDoc struct {
	SegmentCount   int      `json:"segment_count"`
	SelectedCount  int      `json:"selected_count"`
	CandidateCount int      `json:"candidate_count"`
	ValidatorCalls int      `json:"validator_calls"`
	CacheHits      int      `json:"cache_hits"`
	UnresolvedIDs  []string `json:"unresolved_concept_ids,omitempty"`
	ElapsedSeconds float64  `json:"elapsed_seconds"`
}

// Write serialises one run result and returns the path written.
func (w *Writer) Write(result *domain.RunResult) (string, error) {
	if result == nil || result.TranscriptID == "" {
		return "", fmt.Errorf("%w: result missing transcript id", domain.ErrInvalidInput)
	}

	if err := os.MkdirAll(w.dir, 0750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	doc := buildDocument(result, time.Now().UTC())
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result for %s: %w", result.TranscriptID, err)
	}

	path := filepath.Join(w.dir, result.TranscriptID+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("write result for %s: %w", result.TranscriptID, err)
	}
	return path, nil
}

func buildDocument(result *domain.RunResult, now time.Time) runDocument {
	doc := runDocument{
		TranscriptID:    result.TranscriptID,
		IntervieweeName: result.IntervieweeName,
		GeneratedAt:     now,
		Segments:        make([]segmentDoc, 0, len(result.Segments)),
		Selected:        make([]selectedDoc, 0, len(result.Selected)),
		Enriched:        make([]enrichedDoc, 0, len(result.Enriched)),
		Summary: summaryDoc{
			SegmentCount:   result.Summary.SegmentCount,
			SelectedCount:  result.Summary.SelectedCount,
			CandidateCount: result.Summary.CandidateCount,
			ValidatorCalls: result.Summary.ValidatorCalls,
			CacheHits:      result.Summary.CacheHits,
			ElapsedSeconds: result.Summary.Elapsed.Seconds(),
		},
	}

	for _, s := range result.Segments {
		doc.Segments = append(doc.Segments, segmentDoc{
			ID:                 s.ID,
			Start:              formatOffset(s.Start),
			End:                formatOffset(s.End),
			DurationSeconds:    s.Duration().Seconds(),
			Text:               s.Text,
			BoundaryConfidence: s.BoundaryConfidence,
		})
	}
	for _, s := range result.Selected {
		doc.Selected = append(doc.Selected, selectedDoc{ID: s.ID, Score: s.Score})
	}
	for _, e := range result.Enriched {
		ed := enrichedDoc{
			ID:      e.ID,
			Title:   e.Title,
			Score:   e.Score,
			Matches: make([]matchDoc, 0, len(e.Matches)),
		}
		for _, m := range e.Matches {
			ed.Matches = append(ed.Matches, matchDoc{
				ConceptID:  m.ConceptID,
				Label:      m.Label,
				Method:     string(m.Method),
				Confidence: m.Confidence,
				Source:     string(m.Source),
			})
		}
		doc.Enriched = append(doc.Enriched, ed)
	}
	for _, u := range result.Summary.Unresolved {
		doc.Summary.UnresolvedIDs = append(doc.Summary.UnresolvedIDs, u.ConceptID)
	}

	return doc
}

// formatOffset renders a transcript offset as HH:MM:SS.mmm.
func formatOffset(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	ms := (d - s*time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
