package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.TopKResults != 5 {
		t.Errorf("TopKResults = %d, want 5", cfg.TopKResults)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 {
		t.Errorf("chunking = %d/%d, want 1000/200", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v, want 1h", cfg.SessionTTL)
	}
	if cfg.EmbeddingProvider != "openai" {
		t.Errorf("EmbeddingProvider = %q, want openai", cfg.EmbeddingProvider)
	}
	if cfg.EmbeddingRateLimit != 0 {
		t.Errorf("EmbeddingRateLimit = %d, want 0 (unlimited)", cfg.EmbeddingRateLimit)
	}
	if cfg.RerankerProvider != "crossencoder" {
		t.Errorf("RerankerProvider = %q, want crossencoder", cfg.RerankerProvider)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("USE_RERANKER", "true")
	t.Setenv("RERANKER_PROVIDER", "llm")
	t.Setenv("EMBEDDING_RATE_LIMIT", "120")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPPort != 9999 {
		t.Errorf("HTTPPort = %d, want 9999", cfg.HTTPPort)
	}
	if cfg.LLMProvider != "ollama" {
		t.Errorf("LLMProvider = %q, want ollama", cfg.LLMProvider)
	}
	if !cfg.UseReranker {
		t.Error("UseReranker = false, want true")
	}
	if cfg.RerankerProvider != "llm" {
		t.Errorf("RerankerProvider = %q, want llm", cfg.RerankerProvider)
	}
	if cfg.EmbeddingRateLimit != 120 {
		t.Errorf("EmbeddingRateLimit = %d, want 120", cfg.EmbeddingRateLimit)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown embedding provider", "EMBEDDING_PROVIDER", "cohere"},
		{"unknown llm provider", "LLM_PROVIDER", "bard"},
		{"zero top k", "TOP_K_RESULTS", "0"},
		{"overlap exceeds size", "CHUNK_OVERLAP", "1000"},
		{"unknown reranker provider", "RERANKER_PROVIDER", "cohere"},
		{"negative rate limit", "EMBEDDING_RATE_LIMIT", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load accepted %s=%s", tt.key, tt.value)
			}
		})
	}
}
