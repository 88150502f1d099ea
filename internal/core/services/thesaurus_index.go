package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
	"github.com/archiva-labs/enrich-cli/internal/logger"
)

// embedBatchSize bounds one EmbedBatch call during index construction.
const embedBatchSize = 32

// IndexOptions restricts which concepts participate in each lookup
// method. Nil slices mean no restriction.
type IndexOptions struct {
	// ExactCategories limits exact-label lookup to these categories.
	ExactCategories []domain.ConceptCategory

	// EmbedCategories limits similarity search to these categories.
	EmbedCategories []domain.ConceptCategory

	// ForceReload recomputes concept embeddings even when cached.
	ForceReload bool
}

// Neighbor is one similarity-search hit.
type Neighbor struct {
	// ConceptID is the matched concept.
	ConceptID string

	// Similarity is the cosine similarity (0-1 for normalised inputs).
	Similarity float64
}

// conceptVector pairs a concept with its embedding for brute-force search.
type conceptVector struct {
	id     string
	vector []float32
}

// ThesaurusIndex holds the controlled vocabulary in memory and exposes
// exact-label lookup plus embedding-similarity search. Built once per
// run, read-only afterwards; concurrent readers need no locking.
type ThesaurusIndex struct {
	version  string
	modelTag string
	byID     map[string]domain.Concept

	// labels maps a normalized label (joined tokens) to the concept IDs
	// carrying it.
	labels        map[string][]string
	maxLabelWords int

	vectors []conceptVector
}

// BuildThesaurusIndex loads the concept graph, computes or retrieves the
// label embeddings, and returns the ready index.
//
// The embedding store is consulted first unless opts.ForceReload is set;
// the store key includes the embedder's model tag so provider changes
// invalidate stale vectors. A concept whose embedding cannot be computed
// is excluded from Nearest but stays available for ExactLookup; the
// exclusion is logged, not fatal. A nil embedder disables Nearest
// entirely.
func BuildThesaurusIndex(
	ctx context.Context,
	thesaurus *domain.Thesaurus,
	embedder driven.EmbeddingService,
	store driven.EmbeddingStore,
	opts IndexOptions,
) (*ThesaurusIndex, error) {
	if err := thesaurus.Validate(); err != nil {
		return nil, err
	}

	idx := &ThesaurusIndex{
		version: thesaurus.Version,
		byID:    thesaurus.ByID(),
		labels:  make(map[string][]string),
	}
	if embedder != nil {
		idx.modelTag = embedder.ModelName()
	}

	exactFilter := categorySet(opts.ExactCategories)
	embedFilter := categorySet(opts.EmbedCategories)

	for _, c := range thesaurus.Concepts {
		if exactFilter == nil || inSet(exactFilter, c.Category) {
			idx.indexLabels(c)
		}
	}

	if embedder == nil {
		logger.Info("Thesaurus index built without embeddings: %d concepts, exact lookup only", len(thesaurus.Concepts))
		return idx, nil
	}

	var embeddable []domain.Concept
	for _, c := range thesaurus.Concepts {
		if embedFilter == nil || inSet(embedFilter, c.Category) {
			embeddable = append(embeddable, c)
		}
	}

	if err := idx.embedConcepts(ctx, embeddable, embedder, store, opts.ForceReload); err != nil {
		return nil, err
	}

	logger.Info("Thesaurus index built: %d concepts, %d embedded, model %s",
		len(thesaurus.Concepts), len(idx.vectors), idx.modelTag)
	return idx, nil
}

// embedConcepts fills idx.vectors from the store and the embedder.
func (idx *ThesaurusIndex) embedConcepts(
	ctx context.Context,
	concepts []domain.Concept,
	embedder driven.EmbeddingService,
	store driven.EmbeddingStore,
	forceReload bool,
) error {
	cached := map[string][]float32{}
	if store != nil && !forceReload {
		ids := make([]string, len(concepts))
		for i, c := range concepts {
			ids[i] = c.ID
		}
		var err error
		cached, err = store.GetBatch(ctx, ids, idx.modelTag)
		if err != nil {
			// Cache trouble degrades to recomputation.
			logger.Warn("Embedding cache read failed: %v", err)
			cached = map[string][]float32{}
		}
	}

	var missing []domain.Concept
	for _, c := range concepts {
		if vec, ok := cached[c.ID]; ok {
			idx.vectors = append(idx.vectors, conceptVector{id: c.ID, vector: vec})
			continue
		}
		missing = append(missing, c)
	}
	logger.Debug("Concept embeddings: %d cached, %d to compute", len(idx.vectors), len(missing))

	for lo := 0; lo < len(missing); lo += embedBatchSize {
		hi := lo + embedBatchSize
		if hi > len(missing) {
			hi = len(missing)
		}
		batch := missing[lo:hi]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.EmbeddingText()
		}

		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Provider failure for a batch: those concepts stay
			// exact-only. Recorded, not raised.
			logger.Warn("Embedding failed for %d concepts: %v", len(batch), err)
			continue
		}
		if len(vectors) != len(batch) {
			logger.Warn("Embedding batch returned %d vectors for %d concepts, skipping", len(vectors), len(batch))
			continue
		}

		for i, c := range batch {
			idx.vectors = append(idx.vectors, conceptVector{id: c.ID, vector: vectors[i]})
			if store == nil {
				continue
			}
			if err := store.Put(ctx, c.ID, idx.modelTag, vectors[i]); err != nil {
				// Cache write failure is a no-op, never fatal.
				logger.Warn("Embedding cache write failed for %s: %v", c.ID, err)
			}
		}
	}

	// Deterministic search order regardless of cache hit pattern.
	sort.Slice(idx.vectors, func(i, j int) bool { return idx.vectors[i].id < idx.vectors[j].id })
	return nil
}

// indexLabels registers every label of a concept under its normalized form.
func (idx *ThesaurusIndex) indexLabels(c domain.Concept) {
	for _, label := range c.Labels() {
		tokens := tokenize(label)
		if len(tokens) == 0 {
			continue
		}
		key := strings.Join(tokens, " ")
		idx.labels[key] = append(idx.labels[key], c.ID)
		if len(tokens) > idx.maxLabelWords {
			idx.maxLabelWords = len(tokens)
		}
	}
}

// Version returns the thesaurus version tag.
func (idx *ThesaurusIndex) Version() string {
	return idx.version
}

// EmbeddingModel returns the model tag used for concept vectors.
func (idx *ThesaurusIndex) EmbeddingModel() string {
	return idx.modelTag
}

// Concept returns the concept for an ID.
func (idx *ThesaurusIndex) Concept(id string) (domain.Concept, bool) {
	c, ok := idx.byID[id]
	return c, ok
}

// HasEmbeddings reports whether similarity search is available.
func (idx *ThesaurusIndex) HasEmbeddings() bool {
	return len(idx.vectors) > 0
}

// ExactLookup returns the IDs of concepts whose preferred or alternate
// label occurs in the text, case-folded and diacritic-normalized, as a
// contiguous word n-gram. The result is sorted by concept ID.
func (idx *ThesaurusIndex) ExactLookup(text string) []string {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	found := map[string]struct{}{}
	for n := 1; n <= idx.maxLabelWords && n <= len(tokens); n++ {
		for i := 0; i+n <= len(tokens); i++ {
			key := strings.Join(tokens[i:i+n], " ")
			for _, id := range idx.labels[key] {
				found[id] = struct{}{}
			}
		}
	}
	if len(found) == 0 {
		return nil
	}

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Nearest returns at most topN concepts whose embedding's cosine
// similarity to the query vector is at least minSimilarity, ordered by
// similarity descending, ties broken by concept ID. Lowering
// minSimilarity can only grow the result set.
func (idx *ThesaurusIndex) Nearest(query []float32, topN int, minSimilarity float64) ([]Neighbor, error) {
	if len(idx.vectors) == 0 {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if len(query) == 0 || topN <= 0 {
		return nil, fmt.Errorf("%w: empty query vector or non-positive topN", domain.ErrInvalidInput)
	}

	hits := make([]Neighbor, 0, len(idx.vectors))
	for _, cv := range idx.vectors {
		sim, err := cosineSimilarity(query, cv.vector)
		if err != nil {
			continue
		}
		if sim >= minSimilarity {
			hits = append(hits, Neighbor{ConceptID: cv.id, Similarity: sim})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ConceptID < hits[j].ConceptID
	})
	if len(hits) > topN {
		hits = hits[:topN]
	}
	return hits, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, errors.New("vector dimensions differ")
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, errors.New("zero vector")
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

func categorySet(cats []domain.ConceptCategory) map[domain.ConceptCategory]struct{} {
	if len(cats) == 0 {
		return nil
	}
	set := make(map[domain.ConceptCategory]struct{}, len(cats))
	for _, c := range cats {
		set[c] = struct{}{}
	}
	return set
}

func inSet(set map[domain.ConceptCategory]struct{}, c domain.ConceptCategory) bool {
	_, ok := set[c]
	return ok
}
