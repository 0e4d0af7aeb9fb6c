package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/pitwall-ai/pitwall/internal/textutil"
)

const (
	// DefaultOpenAIModel is the default embedding model.
	DefaultOpenAIModel = "text-embedding-3-small"

	// DefaultOpenAIDimension is the dimension for text-embedding-3-small.
	DefaultOpenAIDimension = 1536

	// maxRetries bounds retry attempts against transient provider errors.
	maxRetries = 3

	// embedBatchSize caps how many texts go into one API request.
	embedBatchSize = 64
)

// OpenAIConfig holds settings for an OpenAI-compatible embedding provider.
// Setting BaseURL points the client at alternative backends (Gemini's
// OpenAI-compatible endpoint, Nebius, a local server) without code changes.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int

	// RequestsPerMinute enables a blocking token-bucket limiter toward
	// the provider; zero disables limiting.
	RequestsPerMinute int

	Logger *slog.Logger
}

// OpenAIEmbedder implements Embedder using the OpenAI-compatible API.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewOpenAIEmbedder creates an OpenAI-compatible embedding provider.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	clientCfg := openai.DefaultConfig(textutil.Sanitize(cfg.APIKey))
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = DefaultOpenAIDimension
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     openai.EmbeddingModel(model),
		dimension: dimension,
		limiter:   limiter,
		logger:    logger,
	}
}

// EmbedQuery generates an embedding vector for a search query.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments generates embedding vectors for document chunks in
// provider-sized batches.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch starting at %d: %w", start, err)
		}
		all = append(all, vectors...)
	}
	return all, nil
}

// embed issues one embedding request with rate limiting and bounded
// exponential backoff on transient failures.
func (e *OpenAIEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrProvider, err)
			}
		}

		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err == nil {
			if len(resp.Data) != len(texts) {
				return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrProvider, len(resp.Data), len(texts))
			}
			vectors := make([][]float32, len(resp.Data))
			for i, d := range resp.Data {
				vectors[i] = d.Embedding
			}
			return vectors, nil
		}

		lastErr = classifyAPIError(err)
		if !errors.Is(lastErr, ErrRateLimited) && attempt == 0 {
			// First retry for non-quota errors is immediate; every
			// later attempt, and all quota errors, back off.
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(1<<attempt) * time.Second):
		}
	}

	e.logger.Warn("embedding request failed after retries", "model", e.model, "error", lastErr)
	return nil, lastErr
}

// classifyAPIError maps provider errors onto the package taxonomy so the
// caller's handling is a kind check, not string matching.
func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
		}
		return fmt.Errorf("%w: status %d: %s", ErrProvider, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 429 {
			return fmt.Errorf("%w: %s", ErrRateLimited, string(reqErr.Body))
		}
		return fmt.Errorf("%w: status %d: %s", ErrProvider, reqErr.HTTPStatusCode, string(reqErr.Body))
	}

	return fmt.Errorf("%w: %v", ErrProvider, err)
}

// Dimension returns the dimensionality of the embedding vectors.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// ModelName returns the name of the embedding model being used.
func (e *OpenAIEmbedder) ModelName() string {
	return string(e.model)
}

// Ensure OpenAIEmbedder implements Embedder.
var _ Embedder = (*OpenAIEmbedder)(nil)
