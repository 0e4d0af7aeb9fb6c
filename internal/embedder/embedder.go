// Package embedder provides interfaces and implementations for text embedding.
package embedder

import (
	"context"
	"errors"
)

// ErrRateLimited is returned when the provider rejects a request for
// quota reasons after retries are exhausted.
var ErrRateLimited = errors.New("embedding provider rate limited")

// ErrProvider wraps any other embedding provider failure.
var ErrProvider = errors.New("embedding provider error")

// Embedder defines the interface for text embedding services. Queries
// and documents are embedded separately because some providers apply
// different task types to each.
type Embedder interface {
	// EmbedQuery generates an embedding vector for a search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments generates embedding vectors for document chunks,
	// in the same order as the input texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the embedding vectors.
	Dimension() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}
