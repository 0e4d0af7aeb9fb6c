package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/pitwall-ai/pitwall/internal/vectorstore"
)

const (
	// DefaultCrossEncoderModel is an MS MARCO model tuned for passage
	// re-ranking, served by a text-embeddings-inference instance.
	DefaultCrossEncoderModel = "cross-encoder/ms-marco-MiniLM-L-6-v2"

	// maxPairContent truncates document content sent for scoring so a
	// long chunk cannot blow the model's sequence limit.
	maxPairContent = 2000
)

// CrossEncoder scores (query, document) pairs against an HTTP reranking
// endpoint (text-embeddings-inference /rerank API). The endpoint is
// probed lazily on first use; a failed probe marks the reranker
// unavailable for the process lifetime and is logged once, not per call.
type CrossEncoder struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *slog.Logger

	probeOnce sync.Once
	probeErr  error
}

// CrossEncoderOption is a functional option for configuring CrossEncoder.
type CrossEncoderOption func(*CrossEncoder)

// WithModel sets the cross-encoder model identifier.
func WithModel(model string) CrossEncoderOption {
	return func(r *CrossEncoder) {
		r.model = model
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) CrossEncoderOption {
	return func(r *CrossEncoder) {
		r.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CrossEncoderOption {
	return func(r *CrossEncoder) {
		r.logger = logger
	}
}

// NewCrossEncoder creates a cross-encoder client for the given endpoint.
func NewCrossEncoder(baseURL string, opts ...CrossEncoderOption) *CrossEncoder {
	r := &CrossEncoder{
		baseURL: baseURL,
		model:   DefaultCrossEncoderModel,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// probe checks the endpoint once and caches the outcome.
func (r *CrossEncoder) probe(ctx context.Context) error {
	r.probeOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
		if err != nil {
			r.probeErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			return
		}

		resp, err := r.client.Do(req)
		if err != nil {
			r.probeErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			r.logger.Warn("cross-encoder endpoint unreachable, falling back to vector ranking",
				"url", r.baseURL, "error", err)
			return
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			r.probeErr = fmt.Errorf("%w: health status %d", ErrUnavailable, resp.StatusCode)
			r.logger.Warn("cross-encoder endpoint unhealthy, falling back to vector ranking",
				"url", r.baseURL, "status", resp.StatusCode)
			return
		}

		r.logger.Info("cross-encoder reranking enabled", "model", r.model, "url", r.baseURL)
	})
	return r.probeErr
}

// Available reports whether the reranking endpoint can be used.
func (r *CrossEncoder) Available(ctx context.Context) bool {
	return r.probe(ctx) == nil
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankEntry struct {
	Index int     `json:"index"`
	Score float32 `json:"score"`
}

// Rerank scores every (query, content) pair jointly, replaces the vector
// scores with the model's, and returns the topK results by new score.
func (r *CrossEncoder) Rerank(ctx context.Context, query string, results []vectorstore.SearchResult, topK int) ([]vectorstore.SearchResult, error) {
	if len(results) == 0 {
		return nil, nil
	}
	if len(results) == 1 {
		return results[:min(1, topK)], nil
	}

	if err := r.probe(ctx); err != nil {
		return nil, err
	}

	texts := make([]string, len(results))
	for i, res := range results {
		content := res.Document.Content
		if len(content) > maxPairContent {
			content = content[:maxPairContent]
		}
		texts[i] = content
	}

	body, err := json.Marshal(rerankRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: rerank status %d: %s", ErrUnavailable, resp.StatusCode, string(respBody))
	}

	var entries []rerankEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding rerank response: %w", err)
	}

	reranked := make([]vectorstore.SearchResult, len(results))
	copy(reranked, results)
	for _, entry := range entries {
		if entry.Index >= 0 && entry.Index < len(reranked) {
			reranked[entry.Index].Score = clamp01(entry.Score)
		}
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	if topK > 0 && len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked, nil
}

func clamp01(score float32) float32 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Ensure CrossEncoder implements Reranker.
var _ Reranker = (*CrossEncoder)(nil)
