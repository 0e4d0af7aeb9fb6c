// Package reranker provides re-ranking for retrieval results.
//
// Re-ranking scores (query, document) pairs jointly with a cross-encoder,
// which is markedly more precise than comparing independently computed
// embeddings. The cost is an extra model call per query, so rerankers
// only ever see a bounded shortlist of candidates, never the corpus.
package reranker

import (
	"context"
	"errors"

	"github.com/pitwall-ai/pitwall/internal/vectorstore"
)

// ErrUnavailable indicates the reranking model could not be loaded or
// reached. Callers degrade to vector-similarity order instead of
// failing the request.
var ErrUnavailable = errors.New("reranker unavailable")

// Reranker re-orders search results by joint query-document relevance.
type Reranker interface {
	// Rerank replaces each result's score with the model's relevance
	// score, sorts descending, and returns the first topK. An empty
	// input returns empty; a single result is returned without a model
	// call.
	Rerank(ctx context.Context, query string, results []vectorstore.SearchResult, topK int) ([]vectorstore.SearchResult, error)

	// Available reports whether the underlying model can be used.
	// Probing is cheap after the first call.
	Available(ctx context.Context) bool
}
