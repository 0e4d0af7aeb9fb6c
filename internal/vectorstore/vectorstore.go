// Package vectorstore provides interfaces and implementations for vector
// similarity search over the F1 knowledge base.
package vectorstore

import (
	"context"
	"errors"
)

// Canonical collection names, one per document type.
const (
	RegulationsCollection = "regulations"
	StewardsCollection    = "stewards_decisions"
	RaceDataCollection    = "race_data"
)

// Collections lists every collection the store manages.
var Collections = []string{RegulationsCollection, StewardsCollection, RaceDataCollection}

// ErrSearchProvider wraps connection or query failures against the
// backing store so the retriever can treat them uniformly.
var ErrSearchProvider = errors.New("search provider error")

// MetaValue is a scalar metadata value (string or int).
type MetaValue any

// Document represents one indexed chunk. Immutable once created.
type Document struct {
	Content  string
	Metadata map[string]MetaValue
	DocID    string
}

// MetaString returns the named metadata field as a string, or empty.
func (d Document) MetaString(key string) string {
	if v, ok := d.Metadata[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// MetaInt returns the named metadata field as an int, or zero.
func (d Document) MetaInt(key string) int {
	switch v := d.Metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// SearchResult pairs a document with its relevance score. Scores are
// cosine-similarity derived and kept in [0, 1]; the booster and the
// reranker mutate Score in place.
type SearchResult struct {
	Document Document
	Score    float32
}

// Filter is an equality-only metadata constraint: every key must match
// its value exactly. Ranges and negations are not supported.
type Filter map[string]MetaValue

// CollectionStats reports the size and health of one collection.
type CollectionStats struct {
	Name   string `json:"name"`
	Count  uint64 `json:"count"`
	Status string `json:"status"`
}

// VectorStore defines the retrieval port the core depends on. The store
// embeds queries and documents internally; results come back ordered by
// descending similarity with everything below the 0.5 relevance floor
// already excluded.
type VectorStore interface {
	// AddDocuments indexes documents into the named collection and
	// returns the number added.
	AddDocuments(ctx context.Context, docs []Document, collection string) (int, error)

	// Search returns up to topK results for the query, optionally
	// narrowed by an equality filter.
	Search(ctx context.Context, query, collection string, topK int, filter Filter) ([]SearchResult, error)

	// CollectionStats returns document count and status for a collection.
	CollectionStats(ctx context.Context, collection string) (CollectionStats, error)

	// Reset drops and recreates all collections.
	Reset(ctx context.Context) error
}
