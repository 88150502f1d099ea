package domain

import (
	"context"
	"errors"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyTranscript indicates a transcript with no utterances.
	// Processing of that transcript is aborted; other transcripts continue.
	ErrEmptyTranscript = errors.New("empty transcript")

	// ErrEmptyThesaurus indicates the thesaurus contains no concepts.
	ErrEmptyThesaurus = errors.New("empty thesaurus")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured
	// or failed permanently. Matching degrades to exact-label lookup only.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// Validator errors.

	// ErrRateLimited indicates the validator provider rejected a call
	// because of rate limiting. Retryable.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformedResponse indicates the validator returned output that
	// could not be decoded. Retryable.
	ErrMalformedResponse = errors.New("malformed validator response")

	// ErrUnresolved indicates a candidate whose validation could not be
	// completed within the retry budget. The candidate is excluded from
	// output and surfaced in the run summary.
	ErrUnresolved = errors.New("candidate unresolved")
)

// IsRetryable reports whether a validator error is worth retrying.
// Context cancellation is terminal; rate limits, timeouts and malformed
// responses are transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrMalformedResponse) {
		return true
	}
	if errors.Is(err, errors.ErrUnsupported) {
		return false
	}
	// Deadline on a single call is transient; cancellation of the whole
	// pipeline is not, but the caller checks its own context first.
	return errors.Is(err, context.DeadlineExceeded)
}
