package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcept_EmbeddingText tests label concatenation for embedding
func TestConcept_EmbeddingText(t *testing.T) {
	c := Concept{
		PrefLabel: "Normandy landings",
		AltLabels: []string{"D-Day", "Operation Overlord"},
		ScopeNote: "Allied invasion of Normandy in June 1944",
	}

	assert.Equal(t,
		"Normandy landings | D-Day / Operation Overlord | Allied invasion of Normandy in June 1944",
		c.EmbeddingText())
}

// TestConcept_EmbeddingTextMinimal tests a concept with only a preferred label
func TestConcept_EmbeddingTextMinimal(t *testing.T) {
	c := Concept{PrefLabel: "Resistance"}

	assert.Equal(t, "Resistance", c.EmbeddingText())
}

// TestConcept_Labels tests that preferred and alternate labels are returned
func TestConcept_Labels(t *testing.T) {
	c := Concept{PrefLabel: "Westerbork", AltLabels: []string{"Kamp Westerbork"}}

	assert.Equal(t, []string{"Westerbork", "Kamp Westerbork"}, c.Labels())
}

// TestThesaurus_Validate tests a valid thesaurus
func TestThesaurus_Validate(t *testing.T) {
	th := Thesaurus{
		Version: "v1",
		Concepts: []Concept{
			{ID: "c1", PrefLabel: "one"},
			{ID: "c2", PrefLabel: "two"},
		},
	}

	require.NoError(t, th.Validate())
}

// TestThesaurus_ValidateEmpty tests rejection of an empty thesaurus
func TestThesaurus_ValidateEmpty(t *testing.T) {
	th := Thesaurus{Version: "v1"}

	assert.ErrorIs(t, th.Validate(), ErrEmptyThesaurus)
}

// TestThesaurus_ValidateDuplicateID tests rejection of duplicate concept IDs
func TestThesaurus_ValidateDuplicateID(t *testing.T) {
	th := Thesaurus{
		Version: "v1",
		Concepts: []Concept{
			{ID: "c1", PrefLabel: "one"},
			{ID: "c1", PrefLabel: "also one"},
		},
	}

	assert.ErrorIs(t, th.Validate(), ErrInvalidInput)
}

// TestThesaurus_ByID tests the ID lookup map
func TestThesaurus_ByID(t *testing.T) {
	th := Thesaurus{
		Concepts: []Concept{
			{ID: "c1", PrefLabel: "one"},
			{ID: "c2", PrefLabel: "two"},
		},
	}

	byID := th.ByID()
	require.Len(t, byID, 2)
	assert.Equal(t, "two", byID["c2"].PrefLabel)
}
