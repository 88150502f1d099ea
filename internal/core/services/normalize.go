package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips diacritics: decompose, drop combining marks,
// recompose.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText case-folds and diacritic-normalizes text for exact label
// lookup, so "Boulogne-sur-Mer" and "boulogne-sur-mer" compare equal.
func normalizeText(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// tokenize splits normalized text into word tokens at non-word runes,
// which gives exact lookup its word-boundary guarantee.
func tokenize(s string) []string {
	return strings.FieldsFunc(normalizeText(s), func(r rune) bool {
		return !isWordRune(r)
	})
}
