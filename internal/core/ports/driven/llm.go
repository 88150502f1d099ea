package driven

import "context"

// LLMService provides language model text generation. It backs the
// concept validator and the best-effort metadata passes (interviewee
// name, segment titles).
//
// Implementations may include:
//   - OpenAI (GPT-4 class models)
//   - Ollama (local models)
type LLMService interface {
	// Generate produces a completion for a single prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// System is an optional system message.
	System string
}
