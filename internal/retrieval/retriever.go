// Package retrieval implements the query-to-context pipeline: race
// context extraction, synonym expansion, multi-collection vector
// search, keyword boosting, deduplication and optional reranking.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pitwall-ai/pitwall/internal/reranker"
	"github.com/pitwall-ai/pitwall/internal/vectorstore"
)

// ErrEmptyQuery is returned when the query is empty or whitespace.
var ErrEmptyQuery = errors.New("retrieval: query must not be empty")

// DefaultTopK is the number of results kept per collection.
const DefaultTopK = 5

// overFetchFactor widens the candidate pool when a reranker will get a
// chance to reorder it.
const overFetchFactor = 4

// Retriever runs the retrieval pipeline against a vector store. The
// reranker is optional; without one, results keep their vector-search
// order after boosting and deduplication.
type Retriever struct {
	store    vectorstore.VectorStore
	reranker reranker.Reranker
	logger   *slog.Logger
	topK     int
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithReranker installs a cross-encoder reranking stage.
func WithReranker(rr reranker.Reranker) RetrieverOption {
	return func(r *Retriever) {
		r.reranker = rr
	}
}

// WithTopK overrides the per-collection result count.
func WithTopK(k int) RetrieverOption {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// NewRetriever creates a Retriever backed by the given store.
func NewRetriever(store vectorstore.VectorStore, opts ...RetrieverOption) (*Retriever, error) {
	if store == nil {
		return nil, fmt.Errorf("retrieval: vector store is required")
	}
	r := &Retriever{
		store:  store,
		logger: slog.Default(),
		topK:   DefaultTopK,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Retrieve runs the full pipeline for a query and returns context from
// all three collections. The collections are searched concurrently and
// independently: a provider failure in one collection is logged and
// yields an empty list there, never an error for the whole call.
func (r *Retriever) Retrieve(ctx context.Context, query string, qc QueryContext) (*RetrievalContext, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	expanded := ExpandQuery(query)

	// Over-fetch only when a reranker is around to benefit from the
	// wider candidate pool.
	retrieveK := r.topK
	if r.reranker != nil {
		retrieveK = r.topK * overFetchFactor
	}

	var raceFilter vectorstore.Filter
	if qc.Season != 0 {
		raceFilter = vectorstore.Filter{"season": qc.Season}
	}

	rc := &RetrievalContext{Query: query}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rc.Regulations = r.searchCollection(gctx, expanded, vectorstore.RegulationsCollection, retrieveK, nil)
		return nil
	})
	g.Go(func() error {
		rc.StewardsDecisions = r.searchCollection(gctx, expanded, vectorstore.StewardsCollection, retrieveK, nil)
		return nil
	})
	g.Go(func() error {
		rc.RaceData = r.searchCollection(gctx, expanded, vectorstore.RaceDataCollection, retrieveK, raceFilter)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rc.Regulations = r.finalize(ctx, query, rc.Regulations)
	rc.StewardsDecisions = r.finalize(ctx, query, rc.StewardsDecisions)
	rc.RaceData = r.finalize(ctx, query, rc.RaceData)

	r.logger.Debug("retrieval complete",
		"query", query,
		"regulations", len(rc.Regulations),
		"stewards_decisions", len(rc.StewardsDecisions),
		"race_data", len(rc.RaceData))
	return rc, nil
}

// searchCollection queries one collection, retrying without the filter
// when a filtered search matches nothing. Too-strict metadata is a
// worse failure mode than loosely relevant results. Provider errors are
// absorbed into an empty result set.
func (r *Retriever) searchCollection(ctx context.Context, query, collection string, topK int, filter vectorstore.Filter) []vectorstore.SearchResult {
	results, err := r.store.Search(ctx, query, collection, topK, filter)
	if err != nil {
		r.logger.Warn("collection search failed", "collection", collection, "error", err)
		return nil
	}
	if len(results) == 0 && filter != nil {
		results, err = r.store.Search(ctx, query, collection, topK, nil)
		if err != nil {
			r.logger.Warn("unfiltered retry failed", "collection", collection, "error", err)
			return nil
		}
	}
	return results
}

// finalize applies boosting, deduplication and the rerank-or-truncate
// step to one collection's candidates. The boost uses the original
// query, not the expanded one.
func (r *Retriever) finalize(ctx context.Context, query string, results []vectorstore.SearchResult) []vectorstore.SearchResult {
	results = BoostKeywordMatches(results, query)
	results = Deduplicate(results)

	if r.reranker != nil && len(results) > 0 {
		reranked, err := r.reranker.Rerank(ctx, query, results, r.topK)
		if err == nil {
			return reranked
		}
		if errors.Is(err, reranker.ErrUnavailable) {
			r.logger.Debug("reranker unavailable, keeping vector order")
		} else {
			r.logger.Warn("rerank failed, keeping vector order", "error", err)
		}
	}

	if len(results) > r.topK {
		results = results[:r.topK]
	}
	return results
}
