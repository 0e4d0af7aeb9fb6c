package vectorstore

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"github.com/pitwall-ai/pitwall/internal/textutil"
)

// minScore is the relevance floor: results scoring below it are excluded
// before they ever reach the retrieval pipeline.
const minScore = 0.5

// Embedder is the embedding port the store uses internally. Queries and
// documents use distinct task types on some providers, hence two methods.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// QdrantStore implements VectorStore using Qdrant.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	logger   *slog.Logger

	ensureOnce sync.Once
	ensureErr  error
}

// QdrantConfig holds connection settings for the Qdrant cluster.
type QdrantConfig struct {
	// URL is "host:port" for the gRPC endpoint (default port 6334).
	URL    string
	APIKey string
	UseTLS bool
	Logger *slog.Logger
}

// NewQdrantStore creates a Qdrant-backed vector store. Collections are
// created lazily on first use so construction stays cheap.
func NewQdrantStore(cfg QdrantConfig, embedder Embedder) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(cfg.URL)
	if err != nil {
		host = cfg.URL
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: textutil.Sanitize(cfg.APIKey),
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QdrantStore{client: client, embedder: embedder, logger: logger}, nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// ensureCollections creates any missing collections. Guarded by a
// one-time init so concurrent first requests do not race on creation.
func (s *QdrantStore) ensureCollections(ctx context.Context) error {
	s.ensureOnce.Do(func() {
		s.ensureErr = s.createCollections(ctx)
	})
	return s.ensureErr
}

func (s *QdrantStore) createCollections(ctx context.Context) error {
	for _, name := range Collections {
		exists, err := s.client.CollectionExists(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to check collection %s: %w", name, err)
		}
		if exists {
			continue
		}

		s.logger.Info("creating collection", "collection", name)
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.embedder.Dimension()),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	}
	return nil
}

// AddDocuments embeds and upserts documents into the named collection.
// Content and string metadata are normalized before storage so BOM
// characters never enter the index.
func (s *QdrantStore) AddDocuments(ctx context.Context, docs []Document, collection string) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	if err := s.ensureCollections(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSearchProvider, err)
	}

	contents := make([]string, len(docs))
	for i, doc := range docs {
		contents[i] = textutil.Normalize(doc.Content)
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, contents)
	if err != nil {
		return 0, fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		payload := map[string]*qdrant.Value{
			"content": qdrant.NewValueString(contents[i]),
			"doc_id":  qdrant.NewValueString(doc.DocID),
		}
		for k, v := range doc.Metadata {
			payload[k] = metaToValue(v)
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(pointID(doc.DocID, collection, i)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		}
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert points: %w", err)
	}

	s.logger.Info("indexed documents", "collection", collection, "count", len(docs))
	return len(docs), nil
}

// Search embeds the query and returns up to topK results above the
// relevance floor, ordered by descending similarity.
func (s *QdrantStore) Search(ctx context.Context, query, collection string, topK int, filter Filter) ([]SearchResult, error) {
	if err := s.ensureCollections(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchProvider, err)
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %v", ErrSearchProvider, err)
	}

	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: qdrant.PtrOf(float32(minScore)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query failed for %s: %v", ErrSearchProvider, collection, err)
	}

	results := make([]SearchResult, 0, len(response))
	for _, point := range response {
		doc := Document{Metadata: make(map[string]MetaValue)}

		for k, v := range point.Payload {
			switch k {
			case "content":
				doc.Content = textutil.Normalize(v.GetStringValue())
			case "doc_id":
				doc.DocID = v.GetStringValue()
			default:
				doc.Metadata[k] = valueToMeta(v)
			}
		}

		results = append(results, SearchResult{Document: doc, Score: point.Score})
	}

	return results, nil
}

// CollectionStats returns the point count for a collection.
func (s *QdrantStore) CollectionStats(ctx context.Context, collection string) (CollectionStats, error) {
	if err := s.ensureCollections(ctx); err != nil {
		return CollectionStats{}, fmt.Errorf("%w: %v", ErrSearchProvider, err)
	}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return CollectionStats{Name: collection, Status: "unavailable"},
			fmt.Errorf("%w: count failed for %s: %v", ErrSearchProvider, collection, err)
	}

	return CollectionStats{Name: collection, Count: count, Status: "ready"}, nil
}

// Reset deletes and recreates every collection.
func (s *QdrantStore) Reset(ctx context.Context) error {
	for _, name := range Collections {
		if err := s.client.DeleteCollection(ctx, name); err != nil {
			s.logger.Debug("collection deletion skipped", "collection", name, "error", err)
		}
	}

	// Recreate immediately so subsequent calls see empty collections.
	s.ensureOnce = sync.Once{}
	if err := s.ensureCollections(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSearchProvider, err)
	}

	s.logger.Info("vector store reset complete")
	return nil
}

func buildFilter(filter Filter) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}

	conditions := make([]*qdrant.Condition, 0, len(filter))
	for key, value := range filter {
		switch v := value.(type) {
		case string:
			conditions = append(conditions, qdrant.NewMatch(key, v))
		case int:
			conditions = append(conditions, qdrant.NewMatchInt(key, int64(v)))
		case int64:
			conditions = append(conditions, qdrant.NewMatchInt(key, v))
		}
	}
	if len(conditions) == 0 {
		return nil
	}

	return &qdrant.Filter{Must: conditions}
}

func metaToValue(v MetaValue) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return qdrant.NewValueString(textutil.Normalize(val))
	case int:
		return qdrant.NewValueInt(int64(val))
	case int64:
		return qdrant.NewValueInt(val)
	case bool:
		return qdrant.NewValueBool(val)
	default:
		return qdrant.NewValueString(fmt.Sprintf("%v", val))
	}
}

func valueToMeta(v *qdrant.Value) MetaValue {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return textutil.Normalize(kind.StringValue)
	case *qdrant.Value_IntegerValue:
		return int(kind.IntegerValue)
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	default:
		return ""
	}
}

// pointID derives a stable numeric point ID so re-indexing the same
// document overwrites rather than duplicates.
func pointID(docID, collection string, index int) uint64 {
	h := fnv.New64a()
	if docID != "" {
		h.Write([]byte(docID))
	} else {
		fmt.Fprintf(h, "%s_%d", collection, index)
	}
	return h.Sum64()
}

// Ensure QdrantStore implements VectorStore.
var _ VectorStore = (*QdrantStore)(nil)
