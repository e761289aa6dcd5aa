// Package llm provides interfaces and implementations for text generation clients.
package llm

import (
	"context"
)

// GenerateOptions configures a generation request.
type GenerateOptions struct {
	// Model specifies the model to use, overriding the client default.
	Model string

	// SystemPrompt sets the system-level instructions for the model.
	SystemPrompt string

	// Temperature controls randomness in generation (0.0 = deterministic).
	Temperature float64

	// MaxTokens limits the maximum number of tokens in the response.
	MaxTokens int
}

// Result is a completed generation with token-usage counters, when the
// backend reports them (zero otherwise).
type Result struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Model        string
}

// LLM defines the interface for text generation clients.
type LLM interface {
	// Generate sends a prompt and returns the complete response. It
	// blocks until the full response is received, the context is
	// cancelled, or an error occurs.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (Result, error)

	// ModelName returns the client's default model.
	ModelName() string
}
