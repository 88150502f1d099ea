package domain

import "strings"

// ConceptCategory groups thesaurus concepts by the scheme they belong to.
// Categories drive which matching method applies to a concept: named
// entities (camps, locations) suit exact occurrence; descriptive concepts
// suit embedding similarity.
type ConceptCategory string

// Available concept categories.
const (
	// CategoryCamp marks internment and concentration camp entries.
	CategoryCamp ConceptCategory = "camp"

	// CategoryLocation marks geographic entries.
	CategoryLocation ConceptCategory = "location"

	// CategoryOther marks descriptive (topical) entries.
	CategoryOther ConceptCategory = "other"
)

// IsValid returns true if the concept category is recognised.
func (c ConceptCategory) IsValid() bool {
	return c == CategoryCamp || c == CategoryLocation || c == CategoryOther
}

// Concept is a controlled-vocabulary entry from the thesaurus.
// Concepts are loaded once per run and read-only afterwards; only the
// Embedding field is populated lazily during index construction.
type Concept struct {
	// ID is the concept identifier (URI in SKOS sources).
	// Unique within one thesaurus version.
	ID string

	// PrefLabel is the preferred display label.
	PrefLabel string

	// AltLabels are alternate labels, also usable for exact lookup.
	AltLabels []string

	// ScopeNote is an optional free-text description.
	ScopeNote string

	// Category classifies the concept by source scheme.
	Category ConceptCategory

	// TopConcept is true for scheme roots of the hierarchy.
	TopConcept bool

	// Broader and Narrower hold related concept IDs.
	Broader  []string
	Narrower []string

	// Embedding is the label embedding, nil until computed. A concept
	// whose embedding could not be computed stays available for exact
	// lookup but is excluded from similarity search.
	Embedding []float32
}

// EmbeddingText builds the text embedded for similarity search:
// preferred label, alternate labels, and scope note joined together.
func (c Concept) EmbeddingText() string {
	parts := []string{c.PrefLabel}
	if len(c.AltLabels) > 0 {
		parts = append(parts, strings.Join(c.AltLabels, " / "))
	}
	if c.ScopeNote != "" {
		parts = append(parts, c.ScopeNote)
	}
	return strings.Join(parts, " | ")
}

// Labels returns the preferred label followed by all alternate labels.
func (c Concept) Labels() []string {
	labels := make([]string, 0, 1+len(c.AltLabels))
	labels = append(labels, c.PrefLabel)
	labels = append(labels, c.AltLabels...)
	return labels
}

// Thesaurus is a loaded concept graph plus its version tag.
// The version changes whenever the source data changes and is part of
// every validation cache key, so stale decisions never leak across
// thesaurus updates.
type Thesaurus struct {
	// Version tags the loaded data, typically a content hash of the source.
	Version string

	// Concepts holds every loaded concept.
	Concepts []Concept
}

// Validate checks the thesaurus is usable and IDs are unique.
func (t *Thesaurus) Validate() error {
	if len(t.Concepts) == 0 {
		return ErrEmptyThesaurus
	}
	seen := make(map[string]struct{}, len(t.Concepts))
	for _, c := range t.Concepts {
		if _, dup := seen[c.ID]; dup {
			return ErrInvalidInput
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// ByID returns a lookup map from concept ID to concept.
func (t *Thesaurus) ByID() map[string]Concept {
	m := make(map[string]Concept, len(t.Concepts))
	for _, c := range t.Concepts {
		m[c.ID] = c
	}
	return m
}
