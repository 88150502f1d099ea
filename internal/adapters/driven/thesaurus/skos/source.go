// Package skos loads a thesaurus from a SKOS vocabulary exported as
// N-Triples, either from a local file or over HTTP.
package skos

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.ThesaurusSource = (*Source)(nil)

// SKOS and RDF predicate IRIs.
const (
	rdfType          = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	skosConcept      = "http://www.w3.org/2004/02/skos/core#Concept"
	skosPrefLabel    = "http://www.w3.org/2004/02/skos/core#prefLabel"
	skosAltLabel     = "http://www.w3.org/2004/02/skos/core#altLabel"
	skosScopeNote    = "http://www.w3.org/2004/02/skos/core#scopeNote"
	skosBroader      = "http://www.w3.org/2004/02/skos/core#broader"
	skosNarrower     = "http://www.w3.org/2004/02/skos/core#narrower"
	skosInScheme     = "http://www.w3.org/2004/02/skos/core#inScheme"
	skosTopConceptOf = "http://www.w3.org/2004/02/skos/core#topConceptOf"
)

// Scheme IRIs of the WO2 thesaurus published by Oorlogsbronnen. Concepts
// in the camps and locations schemes become named entities suited for
// exact lookup; everything else is descriptive.
const (
	DefaultCampScheme     = "https://data.niod.nl/WO2_Thesaurus/kampen/3650"
	DefaultLocationScheme = "https://data.niod.nl/WO2_Thesaurus/6564"

	// defaultExcludedScheme holds technical list entries that are not
	// real concepts.
	defaultExcludedScheme = "https://data.niod.nl/WO2_Thesaurus/11183"

	// excludeFlagPredicate marks concepts the publisher flags out of
	// scope. Flagged concepts are skipped unless they are scheme roots.
	excludeFlagPredicate = "https://data.niod.nl/thesaurus_wo2/ImagesWW2/oorlogDichtbijConcept"
)

// DefaultHTTPTimeout bounds a thesaurus download.
const DefaultHTTPTimeout = 60 * time.Second

// Config holds loader configuration.
type Config struct {
	// PreferredLanguage selects among language-tagged preferred labels
	// (default: "nl"). Labels in other languages are used as fallback.
	PreferredLanguage string

	// CampSchemes and LocationSchemes map inScheme IRIs to concept
	// categories. Defaults cover the WO2 thesaurus.
	CampSchemes     []string
	LocationSchemes []string

	// ExcludedSchemes lists scheme IRIs whose concepts are dropped.
	ExcludedSchemes []string

	// HTTPTimeout bounds a download when the location is a URL
	// (default: 60s).
	HTTPTimeout time.Duration
}

// Source loads a SKOS thesaurus from an N-Triples file or URL.
// The thesaurus version is a content hash of the raw export, so any
// change to the source data invalidates cached validation decisions.
type Source struct {
	location  string
	client    *http.Client
	prefLang  string
	camps     map[string]struct{}
	locations map[string]struct{}
	excluded  map[string]struct{}
}

// New creates a Source for the given location. Locations starting with
// http:// or https:// are downloaded; anything else is read as a file.
func New(location string, config Config) *Source {
	if config.PreferredLanguage == "" {
		config.PreferredLanguage = "nl"
	}
	if len(config.CampSchemes) == 0 {
		config.CampSchemes = []string{DefaultCampScheme}
	}
	if len(config.LocationSchemes) == 0 {
		config.LocationSchemes = []string{DefaultLocationScheme}
	}
	if config.ExcludedSchemes == nil {
		config.ExcludedSchemes = []string{defaultExcludedScheme}
	}
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = DefaultHTTPTimeout
	}
	return &Source{
		location:  location,
		client:    &http.Client{Timeout: config.HTTPTimeout},
		prefLang:  config.PreferredLanguage,
		camps:     toSet(config.CampSchemes),
		locations: toSet(config.LocationSchemes),
		excluded:  toSet(config.ExcludedSchemes),
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

// Load reads the export, parses it and assembles the concept graph.
func (s *Source) Load(ctx context.Context) (*domain.Thesaurus, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read thesaurus: %w", err)
	}

	sum := sha256.Sum256(data)
	concepts, err := s.parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse thesaurus: %w", err)
	}

	thesaurus := &domain.Thesaurus{
		Version:  hex.EncodeToString(sum[:]),
		Concepts: concepts,
	}
	if err := thesaurus.Validate(); err != nil {
		return nil, err
	}
	return thesaurus, nil
}

func (s *Source) read(ctx context.Context) ([]byte, error) {
	if strings.HasPrefix(s.location, "http://") || strings.HasPrefix(s.location, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.location, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("download %s: status %d", s.location, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(s.location)
}

// subject accumulates the triples seen for one IRI before it is turned
// into a domain concept.
type subject struct {
	isConcept  bool
	prefLabels []literal
	altLabels  []string
	scopeNote  string
	broader    []string
	narrower   []string
	inScheme   []string
	topConcept bool
	flaggedOut bool
}

// literal is a language-tagged string value.
type literal struct {
	value string
	lang  string
}

func (s *Source) parse(data []byte) ([]domain.Concept, error) {
	subjects := make(map[string]*subject)

	lineNo := 0
	for len(data) > 0 {
		lineNo++
		line := data
		if idx := indexNewline(data); idx >= 0 {
			line = data[:idx]
			data = data[idx+1:]
		} else {
			data = nil
		}

		t, ok, err := parseLine(string(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !ok {
			continue
		}

		sub := subjects[t.subject]
		if sub == nil {
			sub = &subject{}
			subjects[t.subject] = sub
		}

		switch t.predicate {
		case rdfType:
			if t.object.value == skosConcept {
				sub.isConcept = true
			}
		case skosPrefLabel:
			sub.prefLabels = append(sub.prefLabels, literal{value: t.object.value, lang: t.object.lang})
		case skosAltLabel:
			sub.altLabels = append(sub.altLabels, t.object.value)
		case skosScopeNote:
			if sub.scopeNote == "" {
				sub.scopeNote = t.object.value
			}
		case skosBroader:
			sub.broader = append(sub.broader, t.object.value)
		case skosNarrower:
			sub.narrower = append(sub.narrower, t.object.value)
		case skosInScheme:
			sub.inScheme = append(sub.inScheme, t.object.value)
		case skosTopConceptOf:
			sub.topConcept = true
		case excludeFlagPredicate:
			if strings.EqualFold(strings.TrimSpace(t.object.value), "false") {
				sub.flaggedOut = true
			}
		}
	}

	concepts := make([]domain.Concept, 0, len(subjects))
	for iri, sub := range subjects {
		if !sub.isConcept {
			continue
		}
		if sub.flaggedOut && !sub.topConcept {
			continue
		}
		if s.inExcludedScheme(sub.inScheme) {
			continue
		}

		label := pickLabel(sub.prefLabels, s.prefLang)
		if label == "" {
			continue
		}

		sort.Strings(sub.altLabels)
		sort.Strings(sub.broader)
		sort.Strings(sub.narrower)

		concepts = append(concepts, domain.Concept{
			ID:         iri,
			PrefLabel:  label,
			AltLabels:  sub.altLabels,
			ScopeNote:  sub.scopeNote,
			Category:   s.category(sub.inScheme),
			TopConcept: sub.topConcept,
			Broader:    sub.broader,
			Narrower:   sub.narrower,
		})
	}

	sort.Slice(concepts, func(i, j int) bool { return concepts[i].ID < concepts[j].ID })
	return concepts, nil
}

func (s *Source) inExcludedScheme(schemes []string) bool {
	for _, scheme := range schemes {
		if _, ok := s.excluded[scheme]; ok {
			return true
		}
	}
	return false
}

func (s *Source) category(schemes []string) domain.ConceptCategory {
	for _, scheme := range schemes {
		if _, ok := s.camps[scheme]; ok {
			return domain.CategoryCamp
		}
	}
	for _, scheme := range schemes {
		if _, ok := s.locations[scheme]; ok {
			return domain.CategoryLocation
		}
	}
	return domain.CategoryOther
}

// pickLabel prefers a label in the configured language, then an untagged
// label, then whatever came first.
func pickLabel(labels []literal, lang string) string {
	for _, l := range labels {
		if l.lang == lang {
			return l.value
		}
	}
	for _, l := range labels {
		if l.lang == "" {
			return l.value
		}
	}
	if len(labels) > 0 {
		return labels[0].value
	}
	return ""
}

func indexNewline(data []byte) int {
	for i, b := range data {
		if b == '\n' {
			return i
		}
	}
	return -1
}
