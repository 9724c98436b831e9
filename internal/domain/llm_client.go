package domain

import "context"

// GenerateOptions carries per-call sampling parameters.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// LLMResponse carries the LLM output and whether the generation finished.
type LLMResponse struct {
	Text string
	Done bool
}

// LLMClient defines the capability to send prompts to an LLM and receive
// textual responses.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*LLMResponse, error)
	Version() string
}

// VectorEncoder defines the interface for generating embeddings.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}
