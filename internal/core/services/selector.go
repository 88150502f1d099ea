package services

import (
	"sort"
	"strings"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/logger"
)

// Selector scores segments and picks the subset worth enriching.
// It performs no I/O and is fully deterministic for fixed inputs.
type Selector struct {
	cfg domain.SelectorConfig
}

// NewSelector creates a selector with the given configuration.
func NewSelector(cfg domain.SelectorConfig) *Selector {
	if !cfg.Policy.IsValid() {
		cfg.Policy = domain.DefaultSelectorConfig().Policy
	}
	zero := domain.ScoringWeights{}
	if cfg.Weights == zero {
		cfg.Weights = domain.DefaultSelectorConfig().Weights
	}
	return &Selector{cfg: cfg}
}

// Select scores every segment and returns the selected subset in the
// original segment order. Ties are broken by earliest start time, then
// by segment ID, so repeated runs yield bit-identical output.
func (s *Selector) Select(segments []domain.Segment) []domain.ScoredSegment {
	if len(segments) == 0 {
		return []domain.ScoredSegment{}
	}

	scored := make([]domain.ScoredSegment, len(segments))
	maxDur := segments[0].Duration()
	for _, seg := range segments {
		if d := seg.Duration(); d > maxDur {
			maxDur = d
		}
	}

	for i, seg := range segments {
		normDur := 0.0
		if maxDur > 0 {
			normDur = float64(seg.Duration()) / float64(maxDur)
		}
		score := s.cfg.Weights.Duration*normDur +
			s.cfg.Weights.LexicalDensity*lexicalDensity(seg.Text) +
			s.cfg.Weights.BoundaryConfidence*seg.BoundaryConfidence
		scored[i] = domain.ScoredSegment{Segment: seg, Score: score}
	}

	var selected []domain.ScoredSegment
	switch s.cfg.Policy {
	case domain.SelectTopK:
		selected = topK(scored, s.cfg.TopK)
	default:
		selected = make([]domain.ScoredSegment, 0, len(scored))
		for _, sc := range scored {
			if sc.Score >= s.cfg.Threshold {
				selected = append(selected, sc)
			}
		}
	}

	logger.Debug("Selected %d of %d segments (policy %s)", len(selected), len(segments), s.cfg.Policy)
	return selected
}

// topK keeps the K highest-scoring segments and restores input order.
func topK(scored []domain.ScoredSegment, k int) []domain.ScoredSegment {
	if k <= 0 {
		return []domain.ScoredSegment{}
	}
	if k >= len(scored) {
		out := make([]domain.ScoredSegment, len(scored))
		copy(out, scored)
		return out
	}

	ranked := make([]domain.ScoredSegment, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Start != ranked[j].Start {
			return ranked[i].Start < ranked[j].Start
		}
		return ranked[i].ID < ranked[j].ID
	})

	keep := make(map[string]struct{}, k)
	for _, sc := range ranked[:k] {
		keep[sc.ID] = struct{}{}
	}

	out := make([]domain.ScoredSegment, 0, k)
	for _, sc := range scored {
		if _, ok := keep[sc.ID]; ok {
			out = append(out, sc)
		}
	}
	return out
}

// stopwords are high-frequency function words excluded from the lexical
// density signal. Dutch first (the archive's interviews are Dutch),
// English second.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		// Dutch
		"de", "het", "een", "en", "van", "ik", "je", "dat", "die", "in",
		"te", "is", "was", "op", "aan", "met", "als", "voor", "er", "maar",
		"om", "dan", "zou", "of", "wat", "mijn", "men", "dit", "zo", "door",
		"over", "ze", "zich", "bij", "ook", "tot", "uit", "naar", "heb",
		"hoe", "heeft", "hebben", "deze", "u", "want", "nog", "zal", "me",
		"zij", "nu", "ga", "geen", "omdat", "iets", "worden", "toch", "al",
		"waren", "veel", "meer", "doen", "toen", "moet", "ben", "zonder",
		"kan", "hun", "dus", "alles", "onder", "ja", "eens", "hier", "wie",
		"werd", "altijd", "doch", "wordt", "wezen", "kunnen", "ons", "zelf",
		"tegen", "na", "reeds", "wil", "kon", "niets", "uw", "iemand",
		"geweest", "andere", "niet", "wel", "hij", "we",
		// English
		"the", "a", "an", "and", "or", "but", "of", "to", "in", "on", "at",
		"is", "was", "were", "are", "be", "been", "it", "that", "this",
		"i", "you", "he", "she", "they", "we", "my", "your", "his", "her",
		"for", "with", "as", "so", "then", "there", "what", "when", "how",
		"not", "no", "yes", "do", "did", "have", "has", "had",
	} {
		stopwords[w] = struct{}{}
	}
}

// lexicalDensity returns the share of content words in the text (0-1).
func lexicalDensity(text string) float64 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
	if len(words) == 0 {
		return 0
	}
	content := 0
	for _, w := range words {
		if _, stop := stopwords[w]; !stop {
			content++
		}
	}
	return float64(content) / float64(len(words))
}

func isWordRune(r rune) bool {
	return r == '\'' || r == '-' ||
		('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') ||
		('0' <= r && r <= '9') || r > 127
}
