package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
)

func TestNewValidationStore(t *testing.T) {
	store := NewValidationStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.records)
	assert.Equal(t, 0, store.Len())
}

func TestValidationStore_PutAndGet(t *testing.T) {
	store := NewValidationStore()
	ctx := context.Background()

	key := driven.ValidationKey{
		ContentHash:      "abc123",
		ConceptID:        "concept-1",
		ThesaurusVersion: "v1",
	}
	record := driven.ValidationRecord{
		Key:        key,
		Accepted:   true,
		Confidence: 0.92,
		Model:      "llama3",
		CreatedAt:  time.Now(),
	}

	err := store.Put(ctx, record)
	require.NoError(t, err)

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, got.Accepted)
	assert.Equal(t, 0.92, got.Confidence)
	assert.Equal(t, "llama3", got.Model)
}

func TestValidationStore_Get_NotFound(t *testing.T) {
	store := NewValidationStore()
	ctx := context.Background()

	record, err := store.Get(ctx, driven.ValidationKey{
		ContentHash: "missing",
		ConceptID:   "concept-1",
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, record)
}

func TestValidationStore_StoresRejections(t *testing.T) {
	store := NewValidationStore()
	ctx := context.Background()

	key := driven.ValidationKey{
		ContentHash:      "abc123",
		ConceptID:        "concept-1",
		ThesaurusVersion: "v1",
	}
	err := store.Put(ctx, driven.ValidationRecord{
		Key:        key,
		Accepted:   false,
		Confidence: 0.15,
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, got.Accepted)
	assert.Equal(t, 0.15, got.Confidence)
}

func TestValidationStore_Put_Overwrite(t *testing.T) {
	store := NewValidationStore()
	ctx := context.Background()

	key := driven.ValidationKey{ContentHash: "abc", ConceptID: "c1", ThesaurusVersion: "v1"}

	_ = store.Put(ctx, driven.ValidationRecord{Key: key, Accepted: false, Confidence: 0.2})
	_ = store.Put(ctx, driven.ValidationRecord{Key: key, Accepted: true, Confidence: 0.9})

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, got.Accepted)
	assert.Equal(t, 0.9, got.Confidence)
	assert.Equal(t, 1, store.Len())
}

func TestValidationStore_KeyComponents_Distinguish(t *testing.T) {
	store := NewValidationStore()
	ctx := context.Background()

	base := driven.ValidationKey{ContentHash: "hash", ConceptID: "c1", ThesaurusVersion: "v1"}
	otherConcept := driven.ValidationKey{ContentHash: "hash", ConceptID: "c2", ThesaurusVersion: "v1"}
	otherVersion := driven.ValidationKey{ContentHash: "hash", ConceptID: "c1", ThesaurusVersion: "v2"}

	_ = store.Put(ctx, driven.ValidationRecord{Key: base, Accepted: true})

	_, err := store.Get(ctx, base)
	assert.NoError(t, err)

	_, err = store.Get(ctx, otherConcept)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.Get(ctx, otherVersion)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestValidationStore_Concurrency(t *testing.T) {
	store := NewValidationStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	numGoroutines := 50

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			key := driven.ValidationKey{
				ContentHash:      fmt.Sprintf("hash-%d", id),
				ConceptID:        "concept-1",
				ThesaurusVersion: "v1",
			}
			_ = store.Put(ctx, driven.ValidationRecord{Key: key, Accepted: id%2 == 0})
			_, _ = store.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, numGoroutines, store.Len())
}
