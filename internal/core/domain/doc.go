// Package domain contains the core entities of the enrichment pipeline:
// transcripts, segments, thesaurus concepts, and concept matches.
// It has no dependencies on adapters or external services.
package domain
