package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/archiva-labs/enrich-cli/internal/core/domain"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
	"github.com/archiva-labs/enrich-cli/internal/logger"
)

// EnrichReport aggregates the non-fatal failures and statistics of one
// Enrich call. It is folded into the run summary by the pipeline.
type EnrichReport struct {
	// CandidateCount is the total number of merged candidates examined.
	CandidateCount int

	// ValidatorCalls counts fresh validator invocations (after batching).
	ValidatorCalls int

	// CacheHits counts decisions reused from the validation cache.
	CacheHits int

	// Unresolved lists candidates whose validation exhausted its retries.
	Unresolved []domain.UnresolvedCandidate

	// EmbeddingDegraded lists segment IDs matched exact-only because
	// their embedding could not be computed.
	EmbeddingDegraded []string
}

// MatchingEngine attaches validated thesaurus concepts to segments.
// Candidate generation combines exact lookup and embedding similarity;
// every surviving candidate is confirmed by the validator or by a prior
// cached decision before it reaches the output.
type MatchingEngine struct {
	index     *ThesaurusIndex
	embedder  driven.EmbeddingService
	validator driven.ConceptValidator
	cache     driven.ValidationStore
	cfg       domain.MatcherConfig
	limiter   *rate.Limiter

	// Per-run segment embedding cache, keyed by content hash so a
	// segment's text is embedded at most once per run.
	vecMu       sync.Mutex
	segmentVecs map[string][]float32
}

// NewMatchingEngine creates a matching engine. The embedder and cache
// are optional: without an embedder candidates come from exact lookup
// only, and without a cache every candidate goes to the validator.
func NewMatchingEngine(
	index *ThesaurusIndex,
	embedder driven.EmbeddingService,
	validator driven.ConceptValidator,
	cache driven.ValidationStore,
	cfg domain.MatcherConfig,
) *MatchingEngine {
	def := domain.DefaultMatcherConfig()
	if cfg.TopN <= 0 {
		cfg.TopN = def.TopN
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = def.RetryBaseDelay
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &MatchingEngine{
		index:       index,
		embedder:    embedder,
		validator:   validator,
		cache:       cache,
		cfg:         cfg,
		limiter:     limiter,
		segmentVecs: make(map[string][]float32),
	}
}

// segmentOutcome carries one worker's result back to Enrich.
type segmentOutcome struct {
	enriched domain.EnrichedSegment
	report   EnrichReport
	done     bool
}

// Enrich produces an enriched segment for every input segment, in input
// order. Validation runs through a bounded worker pool; retry and
// backoff are scoped to one candidate batch and never block other
// in-flight segments.
//
// Cancelling ctx stops new validator calls and lets in-flight ones
// finish or time out. Segments whose candidates were all resolved (or
// explicitly unresolved) before cancellation are returned alongside the
// context error.
func (e *MatchingEngine) Enrich(ctx context.Context, segments []domain.ScoredSegment) ([]domain.EnrichedSegment, EnrichReport, error) {
	outcomes := make([]segmentOutcome, len(segments))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.cfg.Concurrency)

dispatch:
	for i := range segments {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			enriched, report := e.enrichSegment(ctx, segments[i])
			outcomes[i] = segmentOutcome{enriched: enriched, report: report, done: true}
		}(i)
	}
	wg.Wait()

	var total EnrichReport
	enriched := make([]domain.EnrichedSegment, 0, len(segments))
	for _, out := range outcomes {
		if !out.done {
			continue
		}
		enriched = append(enriched, out.enriched)
		total.CandidateCount += out.report.CandidateCount
		total.ValidatorCalls += out.report.ValidatorCalls
		total.CacheHits += out.report.CacheHits
		total.Unresolved = append(total.Unresolved, out.report.Unresolved...)
		total.EmbeddingDegraded = append(total.EmbeddingDegraded, out.report.EmbeddingDegraded...)
	}

	if err := ctx.Err(); err != nil {
		return enriched, total, err
	}
	logger.Info("Enriched %d segments: %d candidates, %d validator calls, %d cache hits, %d unresolved",
		len(enriched), total.CandidateCount, total.ValidatorCalls, total.CacheHits, len(total.Unresolved))
	return enriched, total, nil
}

// enrichSegment resolves every candidate of one segment. The enriched
// segment is complete when this returns: each candidate ended accepted,
// rejected, or unresolved.
func (e *MatchingEngine) enrichSegment(ctx context.Context, seg domain.ScoredSegment) (domain.EnrichedSegment, EnrichReport) {
	var report EnrichReport
	contentHash := hashText(seg.Text)

	// 1. Exact-occurrence candidates.
	var exact []domain.MatchCandidate
	for _, id := range e.index.ExactLookup(seg.Text) {
		exact = append(exact, domain.MatchCandidate{
			SegmentID: seg.ID,
			ConceptID: id,
			Method:    domain.MethodExact,
			RawScore:  1.0,
		})
	}

	// 2. Embedding candidates from the segment's own embedding.
	var embedding []domain.MatchCandidate
	if e.embedder != nil && e.index.HasEmbeddings() {
		vec, err := e.segmentEmbedding(ctx, contentHash, seg.Text)
		if err != nil {
			logger.Warn("Segment %s embedding failed, exact-only matching: %v", seg.ID, err)
			report.EmbeddingDegraded = append(report.EmbeddingDegraded, seg.ID)
		} else {
			neighbors, err := e.index.Nearest(vec, e.cfg.TopN, e.cfg.MinSimilarity)
			if err != nil {
				report.EmbeddingDegraded = append(report.EmbeddingDegraded, seg.ID)
			}
			for _, n := range neighbors {
				embedding = append(embedding, domain.MatchCandidate{
					SegmentID: seg.ID,
					ConceptID: n.ConceptID,
					Method:    domain.MethodEmbedding,
					RawScore:  n.Similarity,
				})
			}
		}
	}

	// 3. Merge with exact precedence.
	candidates := domain.MergeCandidates(exact, embedding)
	report.CandidateCount = len(candidates)

	// 4. Resolve from cache first.
	var matches []domain.ValidatedMatch
	var pending []domain.MatchCandidate
	for _, cand := range candidates {
		if record := e.cachedDecision(ctx, contentHash, cand.ConceptID); record != nil {
			report.CacheHits++
			matches = append(matches, domain.ValidatedMatch{
				MatchCandidate: cand,
				Accepted:       record.Accepted,
				Confidence:     record.Confidence,
				Source:         domain.SourceCache,
			})
			continue
		}
		pending = append(pending, cand)
	}

	// 5. Validate the rest in batched calls.
	for _, batch := range e.batchCandidates(pending) {
		validated, calls, err := e.validateBatch(ctx, seg.Text, contentHash, batch)
		report.ValidatorCalls += calls
		if err != nil {
			// Never silently accept: the whole batch becomes unresolved
			// and is excluded from output.
			for _, cand := range batch {
				report.Unresolved = append(report.Unresolved, domain.UnresolvedCandidate{
					SegmentID: cand.SegmentID,
					ConceptID: cand.ConceptID,
					Method:    cand.Method,
					Reason:    err.Error(),
				})
			}
			continue
		}
		matches = append(matches, validated...)
	}

	// 6. Keep accepted matches only, deduplicated and ordered.
	accepted := make([]domain.ValidatedMatch, 0, len(matches))
	for _, m := range matches {
		if !m.Accepted {
			continue
		}
		if c, ok := e.index.Concept(m.ConceptID); ok {
			m.Label = c.PrefLabel
		}
		accepted = append(accepted, m)
	}
	accepted = domain.DedupeMatches(accepted)
	domain.SortMatches(accepted)

	return domain.EnrichedSegment{ScoredSegment: seg, Matches: accepted}, report
}

// segmentEmbedding embeds segment text at most once per run. Fresh
// requests share the provider rate limiter with validator calls.
func (e *MatchingEngine) segmentEmbedding(ctx context.Context, contentHash, text string) ([]float32, error) {
	e.vecMu.Lock()
	vec, ok := e.segmentVecs[contentHash]
	e.vecMu.Unlock()
	if ok {
		return vec, nil
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.vecMu.Lock()
	e.segmentVecs[contentHash] = vec
	e.vecMu.Unlock()
	return vec, nil
}

// cachedDecision consults the validation store. Read failures count as
// misses and never fail the run.
func (e *MatchingEngine) cachedDecision(ctx context.Context, contentHash, conceptID string) *driven.ValidationRecord {
	if e.cache == nil {
		return nil
	}
	record, err := e.cache.Get(ctx, driven.ValidationKey{
		ContentHash:      contentHash,
		ConceptID:        conceptID,
		ThesaurusVersion: e.index.Version(),
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Validation cache read failed for %s: %v", conceptID, err)
		}
		return nil
	}
	return record
}

// batchCandidates groups pending candidates into validator-sized batches.
func (e *MatchingEngine) batchCandidates(pending []domain.MatchCandidate) [][]domain.MatchCandidate {
	if len(pending) == 0 {
		return nil
	}
	size := e.validator.MaxCandidatesPerCall()
	if size <= 0 || size >= len(pending) {
		return [][]domain.MatchCandidate{pending}
	}
	var batches [][]domain.MatchCandidate
	for lo := 0; lo < len(pending); lo += size {
		hi := lo + size
		if hi > len(pending) {
			hi = len(pending)
		}
		batches = append(batches, pending[lo:hi])
	}
	return batches
}

// validateBatch runs one candidate batch through the validator with
// bounded exponential backoff, writing every decision (acceptances and
// rejections alike) to the cache before returning it, so a repeat run
// over unchanged data makes no validator calls at all.
func (e *MatchingEngine) validateBatch(
	ctx context.Context,
	segmentText, contentHash string,
	batch []domain.MatchCandidate,
) ([]domain.ValidatedMatch, int, error) {
	concepts := make([]domain.Concept, 0, len(batch))
	for _, cand := range batch {
		if c, ok := e.index.Concept(cand.ConceptID); ok {
			concepts = append(concepts, c)
		}
	}
	req := driven.ValidationRequest{
		SegmentText: segmentText,
		Candidates:  concepts,
		TokenLimit:  e.cfg.TokenLimit,
	}

	calls := 0
	var decisions []driven.Decision
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, calls, err
		}
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, calls, err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
		var err error
		decisions, err = e.validator.Validate(callCtx, req)
		cancel()
		calls++

		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, calls, ctx.Err()
		}
		if !domain.IsRetryable(err) || attempt >= e.cfg.MaxRetries {
			return nil, calls, err
		}

		delay := e.cfg.RetryBaseDelay << attempt
		logger.Debug("Validator call failed (attempt %d), retrying in %v: %v", attempt+1, delay, err)
		select {
		case <-ctx.Done():
			return nil, calls, ctx.Err()
		case <-time.After(delay):
		}
	}

	byConcept := make(map[string]driven.Decision, len(decisions))
	for _, d := range decisions {
		byConcept[d.ConceptID] = d
	}

	validated := make([]domain.ValidatedMatch, 0, len(batch))
	for _, cand := range batch {
		// A concept missing from the provider output counts as rejected
		// with zero confidence; the validator port guarantees this, the
		// zero value covers it either way.
		d := byConcept[cand.ConceptID]
		match := domain.ValidatedMatch{
			MatchCandidate: cand,
			Accepted:       d.Accepted,
			Confidence:     d.Confidence,
			Source:         domain.SourceLLM,
		}
		e.storeDecision(ctx, contentHash, match)
		validated = append(validated, match)
	}
	return validated, calls, nil
}

// storeDecision writes a decision to the cache. Write failures are a
// no-op; the next run simply revalidates.
func (e *MatchingEngine) storeDecision(ctx context.Context, contentHash string, match domain.ValidatedMatch) {
	if e.cache == nil {
		return
	}
	err := e.cache.Put(ctx, driven.ValidationRecord{
		Key: driven.ValidationKey{
			ContentHash:      contentHash,
			ConceptID:        match.ConceptID,
			ThesaurusVersion: e.index.Version(),
		},
		Accepted:   match.Accepted,
		Confidence: match.Confidence,
		Model:      e.validator.ModelName(),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		logger.Warn("Validation cache write failed for %s: %v", match.ConceptID, err)
	}
}

// hashText content-addresses segment text for caching.
func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
