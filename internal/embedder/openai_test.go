package embedder

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewOpenAIEmbedderDefaults(t *testing.T) {
	e := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k"})
	if e.ModelName() != DefaultOpenAIModel {
		t.Errorf("model = %q, want %q", e.ModelName(), DefaultOpenAIModel)
	}
	if e.Dimension() != DefaultOpenAIDimension {
		t.Errorf("dimension = %d, want %d", e.Dimension(), DefaultOpenAIDimension)
	}
	if e.limiter != nil {
		t.Error("limiter configured without a rate limit")
	}
}

func TestNewOpenAIEmbedderRateLimiter(t *testing.T) {
	e := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k", RequestsPerMinute: 120})
	if e.limiter == nil {
		t.Fatal("limiter = nil with RequestsPerMinute set")
	}
	if got := e.limiter.Burst(); got != 120 {
		t.Errorf("burst = %d, want 120", got)
	}
}

func TestOpenAIEmbedQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1, 0.2, 0.3}, "index": 0},
			},
		})
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{
		APIKey:            "k",
		BaseURL:           srv.URL,
		RequestsPerMinute: 60,
		Logger:            testLogger(),
	})

	vec, err := e.EmbedQuery(context.Background(), "track limits penalty")
	if err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("vector = %v", vec)
	}
}
