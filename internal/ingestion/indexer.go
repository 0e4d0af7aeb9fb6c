package ingestion

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pitwall-ai/pitwall/internal/sources"
	"github.com/pitwall-ai/pitwall/internal/vectorstore"
)

// Indexer chunks documents and writes them into the vector store.
type Indexer struct {
	store   vectorstore.VectorStore
	chunker *Chunker
	logger  *slog.Logger
}

// NewIndexer creates an Indexer. A nil chunker gets the defaults.
func NewIndexer(store vectorstore.VectorStore, chunker *Chunker, logger *slog.Logger) (*Indexer, error) {
	if store == nil {
		return nil, fmt.Errorf("ingestion: vector store is required")
	}
	if chunker == nil {
		var err error
		chunker, err = NewChunker(0, 0)
		if err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: store, chunker: chunker, logger: logger}, nil
}

// IndexFIADocument chunks a scraped document and indexes it into the
// collection matching its type. Returns the number of chunks indexed.
// Document IDs carry a title+URL hash so re-scraping the same document
// overwrites instead of duplicating.
func (ix *Indexer) IndexFIADocument(ctx context.Context, doc *sources.FIADocument) (int, error) {
	if doc.TextContent == "" {
		ix.logger.Warn("no text content, skipping", "title", doc.Title)
		return 0, nil
	}

	chunks := ix.chunker.Chunk(doc.TextContent)
	titleHash := shortHash(doc.Title + "_" + doc.URL)

	docs := make([]vectorstore.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, vectorstore.Document{
			Content: chunk,
			Metadata: map[string]vectorstore.MetaValue{
				"source":      doc.Title,
				"doc_type":    doc.DocType,
				"event":       doc.EventName,
				"season":      doc.Season,
				"chunk_index": i,
				"url":         doc.URL,
			},
			DocID: fmt.Sprintf("%s_%s_%d", doc.DocType, titleHash, i),
		})
	}

	collection := vectorstore.StewardsCollection
	if doc.DocType == sources.DocTypeRegulation {
		collection = vectorstore.RegulationsCollection
	}
	return ix.store.AddDocuments(ctx, docs, collection)
}

// IndexPenaltyEvent indexes one race control event as a readable
// document in the race data collection.
func (ix *Indexer) IndexPenaltyEvent(ctx context.Context, event *sources.PenaltyEvent) (int, error) {
	driver := event.Driver
	if driver == "" {
		driver = "Unknown"
	}
	timestamp := "Unknown"
	if !event.Time.IsZero() {
		timestamp = event.Time.Format("2006-01-02 15:04:05")
	}

	content := fmt.Sprintf(
		"Race: %s %d\nSession: %s\nCategory: %s\nDriver: %s\nTime: %s\n\nMessage: %s",
		event.RaceName, event.Season, event.Session, event.Category,
		driver, timestamp, event.Message)
	if event.Details != "" {
		content += "\n\n" + event.Details
	}

	msgHash := shortHash(fmt.Sprintf("%s_%d_%s", event.RaceName, event.Season, event.Message))
	docID := strings.ReplaceAll(
		fmt.Sprintf("penalty_%s_%d_%s", event.RaceName, event.Season, msgHash), " ", "_")

	doc := vectorstore.Document{
		Content: content,
		Metadata: map[string]vectorstore.MetaValue{
			"race":     event.RaceName,
			"season":   event.Season,
			"session":  event.Session,
			"category": event.Category,
			"driver":   event.Driver,
		},
		DocID: docID,
	}
	return ix.store.AddDocuments(ctx, []vectorstore.Document{doc}, vectorstore.RaceDataCollection)
}

// shortHash is an 8-hex-char content fingerprint for document IDs.
func shortHash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:8]
}
