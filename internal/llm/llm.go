// Package llm provides interfaces and implementations for Large Language Model clients.
package llm

import (
	"context"
	"errors"
)

// ErrProvider wraps generation failures at the provider boundary.
var ErrProvider = errors.New("llm provider error")

// GenerateOptions configures a generation request.
type GenerateOptions struct {
	// SystemPrompt sets the system-level instructions for the model.
	SystemPrompt string

	// Temperature controls randomness (0.0 = deterministic). RAG
	// answers default low to stay factual.
	Temperature float32

	// MaxTokens limits the response length; zero means provider default.
	MaxTokens int
}

// StreamChunk represents a single chunk of streamed response text.
type StreamChunk struct {
	// Token contains the generated text fragment.
	Token string

	// Done indicates the final chunk in the stream.
	Done bool

	// Error contains any error that occurred during streaming.
	Error error
}

// LLM defines the interface for Large Language Model clients.
type LLM interface {
	// Generate sends a prompt and blocks until the full response is
	// received or an error occurs.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateStream returns a channel streaming response chunks. The
	// channel is closed when generation completes or fails; callers
	// check StreamChunk.Error and StreamChunk.Done.
	GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan StreamChunk, error)
}
