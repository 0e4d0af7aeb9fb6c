package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/pitwall-ai/pitwall/internal/sources"
	"github.com/pitwall-ai/pitwall/internal/vectorstore"
)

// captureStore records AddDocuments calls.
type captureStore struct {
	docs       []vectorstore.Document
	collection string
}

func (c *captureStore) AddDocuments(_ context.Context, docs []vectorstore.Document, collection string) (int, error) {
	c.docs = append(c.docs, docs...)
	c.collection = collection
	return len(docs), nil
}

func (c *captureStore) Search(context.Context, string, string, int, vectorstore.Filter) ([]vectorstore.SearchResult, error) {
	return nil, errors.New("not implemented")
}

func (c *captureStore) CollectionStats(context.Context, string) (vectorstore.CollectionStats, error) {
	return vectorstore.CollectionStats{}, errors.New("not implemented")
}

func (c *captureStore) Reset(context.Context) error { return errors.New("not implemented") }

func newTestIndexer(t *testing.T, store vectorstore.VectorStore) *Indexer {
	t.Helper()
	ix, err := NewIndexer(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	return ix
}

func TestIndexFIADocument(t *testing.T) {
	store := &captureStore{}
	ix := newTestIndexer(t, store)

	doc := &sources.FIADocument{
		Title:       "2025 Formula 1 Sporting Regulations",
		URL:         "https://www.fia.com/2025_sporting_regulations.pdf",
		DocType:     sources.DocTypeRegulation,
		Season:      2025,
		TextContent: strings.Repeat("Drivers must use the track at all times. ", 60),
	}

	count, err := ix.IndexFIADocument(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if count < 2 {
		t.Fatalf("count = %d, want multiple chunks for ~2400 chars", count)
	}
	if store.collection != vectorstore.RegulationsCollection {
		t.Errorf("collection = %q, want regulations", store.collection)
	}

	first := store.docs[0]
	if first.MetaString("source") != doc.Title {
		t.Errorf("source = %q", first.MetaString("source"))
	}
	if first.MetaInt("season") != 2025 || first.MetaInt("chunk_index") != 0 {
		t.Errorf("metadata = %v", first.Metadata)
	}
	if !strings.HasPrefix(first.DocID, "regulation_") || !strings.HasSuffix(first.DocID, "_0") {
		t.Errorf("doc id = %q", first.DocID)
	}
	// Same title+URL must produce the same ID prefix on re-index.
	if !strings.HasPrefix(store.docs[1].DocID, first.DocID[:len(first.DocID)-2]) {
		t.Errorf("chunk ids diverge: %q vs %q", first.DocID, store.docs[1].DocID)
	}
}

func TestIndexFIADocumentStewards(t *testing.T) {
	store := &captureStore{}
	ix := newTestIndexer(t, store)

	doc := &sources.FIADocument{
		Title:       "Doc 44 - Offence - Car 1",
		URL:         "https://www.fia.com/doc44.pdf",
		DocType:     sources.DocTypeStewardsDecision,
		EventName:   "Austria",
		Season:      2025,
		TextContent: "The Stewards received a report from the Race Director.",
	}

	if _, err := ix.IndexFIADocument(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	if store.collection != vectorstore.StewardsCollection {
		t.Errorf("collection = %q, want stewards_decisions", store.collection)
	}
	if store.docs[0].MetaString("event") != "Austria" {
		t.Errorf("event = %q", store.docs[0].MetaString("event"))
	}
}

func TestIndexFIADocumentEmptyContent(t *testing.T) {
	store := &captureStore{}
	ix := newTestIndexer(t, store)

	count, err := ix.IndexFIADocument(context.Background(), &sources.FIADocument{Title: "empty"})
	if err != nil || count != 0 {
		t.Errorf("count = %d, err = %v, want 0 and nil", count, err)
	}
	if len(store.docs) != 0 {
		t.Error("empty document reached the store")
	}
}

func TestIndexPenaltyEvent(t *testing.T) {
	store := &captureStore{}
	ix := newTestIndexer(t, store)

	event := &sources.PenaltyEvent{
		Message:  "CAR 1 (VER) LAP TIME DELETED - TRACK LIMITS AT TURN 9",
		Driver:   "Car 1",
		Time:     time.Date(2024, 7, 7, 15, 3, 0, 0, time.UTC),
		Category: sources.CategoryTrackLimits,
		Session:  "Race",
		RaceName: "British Grand Prix",
		Season:   2024,
	}

	count, err := ix.IndexPenaltyEvent(context.Background(), event)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if store.collection != vectorstore.RaceDataCollection {
		t.Errorf("collection = %q, want race_data", store.collection)
	}

	doc := store.docs[0]
	for _, want := range []string{
		"Race: British Grand Prix 2024",
		"Session: Race",
		"Category: Track Limits",
		"Driver: Car 1",
		"Message: CAR 1 (VER) LAP TIME DELETED",
	} {
		if !strings.Contains(doc.Content, want) {
			t.Errorf("content missing %q:\n%s", want, doc.Content)
		}
	}
	if strings.Contains(doc.DocID, " ") {
		t.Errorf("doc id contains spaces: %q", doc.DocID)
	}
	if doc.MetaInt("season") != 2024 || doc.MetaString("race") != "British Grand Prix" {
		t.Errorf("metadata = %v", doc.Metadata)
	}
}
