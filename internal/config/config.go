// Package config loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the assistant service
type Config struct {
	// Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// PostgreSQL (optional; analytics queries are disabled when empty)
	DatabaseURL string `env:"DATABASE_URL"`

	// Redis (optional; conversation history falls back to in-process storage)
	RedisURL      string        `env:"REDIS_URL"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"1h"`

	// Qdrant
	QdrantURL    string `env:"QDRANT_URL" envDefault:"localhost:6334"`
	QdrantAPIKey string `env:"QDRANT_API_KEY"`
	QdrantUseTLS bool   `env:"QDRANT_USE_TLS" envDefault:"false"`

	// Embeddings
	EmbeddingProvider  string `env:"EMBEDDING_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey       string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string `env:"OPENAI_BASE_URL"`
	EmbeddingModel     string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingRateLimit int    `env:"EMBEDDING_RATE_LIMIT" envDefault:"0"` // requests/minute, 0 = unlimited

	// Ollama (used when EMBEDDING_PROVIDER=ollama or LLM_PROVIDER=ollama)
	OllamaURL            string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaEmbeddingModel string `env:"OLLAMA_EMBEDDING_MODEL" envDefault:"nomic-embed-text"`
	OllamaLLMModel       string `env:"OLLAMA_LLM_MODEL" envDefault:"llama3.2"`

	// LLM
	LLMProvider  string `env:"LLM_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	LLMBaseURL   string `env:"LLM_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	ChatModel    string `env:"CHAT_MODEL" envDefault:"gemini-2.0-flash"`

	// Retrieval
	TopKResults      int    `env:"TOP_K_RESULTS" envDefault:"5"`
	MaxContextChars  int    `env:"MAX_CONTEXT_CHARS" envDefault:"8000"`
	UseReranker      bool   `env:"USE_RERANKER" envDefault:"false"`
	RerankerProvider string `env:"RERANKER_PROVIDER" envDefault:"crossencoder"`
	RerankerURL      string `env:"RERANKER_URL" envDefault:"http://localhost:8787"`

	// Ingestion
	DataDir      string `env:"DATA_DIR" envDefault:"./data"`
	ChunkSize    int    `env:"CHUNK_SIZE" envDefault:"1000"`
	ChunkOverlap int    `env:"CHUNK_OVERLAP" envDefault:"200"`

	// Auth
	JWTSecret   string        `env:"JWT_SECRET" envDefault:"change-this-in-production"`
	JWTExpiry   time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	AdminAPIKey string        `env:"ADMIN_API_KEY"`
}

// Load loads configuration from .env file (if present) and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.EmbeddingProvider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider)
	}
	switch c.LLMProvider {
	case "gemini", "openai", "ollama":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.RerankerProvider {
	case "crossencoder", "llm":
	default:
		return fmt.Errorf("unknown RERANKER_PROVIDER %q", c.RerankerProvider)
	}
	if c.TopKResults <= 0 {
		return fmt.Errorf("TOP_K_RESULTS must be positive, got %d", c.TopKResults)
	}
	if c.EmbeddingRateLimit < 0 {
		return fmt.Errorf("EMBEDDING_RATE_LIMIT must not be negative, got %d", c.EmbeddingRateLimit)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}
