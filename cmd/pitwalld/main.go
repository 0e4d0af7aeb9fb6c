package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pitwall-ai/pitwall/internal/agent"
	"github.com/pitwall-ai/pitwall/internal/auth"
	"github.com/pitwall-ai/pitwall/internal/config"
	"github.com/pitwall-ai/pitwall/internal/embedder"
	"github.com/pitwall-ai/pitwall/internal/ingestion"
	"github.com/pitwall-ai/pitwall/internal/llm"
	"github.com/pitwall-ai/pitwall/internal/memory"
	"github.com/pitwall-ai/pitwall/internal/repository"
	"github.com/pitwall-ai/pitwall/internal/repository/postgres"
	"github.com/pitwall-ai/pitwall/internal/reranker"
	"github.com/pitwall-ai/pitwall/internal/retrieval"
	"github.com/pitwall-ai/pitwall/internal/server"
	"github.com/pitwall-ai/pitwall/internal/sources"
	"github.com/pitwall-ai/pitwall/internal/vectorstore"
)

func main() {
	logLevel := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting pitwall",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"embedding_provider", cfg.EmbeddingProvider,
	)

	embed, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}

	store, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
		URL:    cfg.QdrantURL,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: cfg.QdrantUseTLS,
		Logger: slog.Default(),
	}, embed)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()
	slog.Info("connected to Qdrant")

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return err
	}

	retrieverOpts := []retrieval.RetrieverOption{
		retrieval.WithTopK(cfg.TopKResults),
		retrieval.WithLogger(slog.Default()),
	}
	if cfg.UseReranker {
		retrieverOpts = append(retrieverOpts, retrieval.WithReranker(buildReranker(cfg, llmClient)))
	}
	retriever, err := retrieval.NewRetriever(store, retrieverOpts...)
	if err != nil {
		return fmt.Errorf("failed to create retriever: %w", err)
	}

	agentOpts := []agent.Option{
		agent.WithLogger(slog.Default()),
		agent.WithMaxContextChars(cfg.MaxContextChars),
	}

	history, closeHistory, err := buildHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeHistory()
	agentOpts = append(agentOpts, agent.WithHistory(history))

	var statsRepo repository.StatsRepository
	if cfg.DatabaseURL != "" {
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		statsRepo = postgres.NewPenaltyRepo(db)
		agentOpts = append(agentOpts, agent.WithStats(statsRepo))
		slog.Info("connected to PostgreSQL, analytics enabled")
	}

	assistant, err := agent.New(llmClient, retriever, agentOpts...)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	pipeline, err := buildPipeline(cfg, store, statsRepo)
	if err != nil {
		return err
	}

	sessions := auth.NewJWTManager(&auth.JWTConfig{
		Secret: cfg.JWTSecret,
		Expiry: cfg.JWTExpiry,
	})

	httpServer, err := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		AdminAPIKey:    cfg.AdminAPIKey,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
	}, server.Dependencies{
		Assistant: assistant,
		Ingestor:  pipeline,
		Store:     store,
		Stats:     statsRepo,
		Sessions:  sessions,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server", "port", cfg.HTTPPort)
		if err := httpServer.Start(); err != nil {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

func buildEmbedder(cfg *config.Config) (vectorstore.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "ollama":
		slog.Info("using Ollama embedder", "model", cfg.OllamaEmbeddingModel)
		return embedder.NewOllamaEmbedder(embedder.OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaEmbeddingModel,
		}), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai embedding provider")
		}
		slog.Info("using OpenAI embedder", "model", cfg.EmbeddingModel)
		return embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{
			APIKey:            cfg.OpenAIAPIKey,
			BaseURL:           cfg.OpenAIBaseURL,
			Model:             cfg.EmbeddingModel,
			RequestsPerMinute: cfg.EmbeddingRateLimit,
			Logger:            slog.Default(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

func buildLLM(cfg *config.Config) (llm.LLM, error) {
	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		slog.Info("using Gemini via OpenAI-compatible API", "model", cfg.ChatModel)
		return llm.NewOpenAIClient(cfg.GeminiAPIKey,
			llm.WithBaseURL(cfg.LLMBaseURL),
			llm.WithChatModel(cfg.ChatModel),
		), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		slog.Info("using OpenAI LLM", "model", cfg.ChatModel)
		return llm.NewOpenAIClient(cfg.OpenAIAPIKey,
			llm.WithBaseURL(cfg.OpenAIBaseURL),
			llm.WithChatModel(cfg.ChatModel),
		), nil
	case "ollama":
		slog.Info("using Ollama LLM", "model", cfg.OllamaLLMModel)
		return llm.NewOllamaClient(
			llm.WithOllamaBaseURL(cfg.OllamaURL),
			llm.WithOllamaModel(cfg.OllamaLLMModel),
		), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func buildReranker(cfg *config.Config, llmClient llm.LLM) reranker.Reranker {
	if cfg.RerankerProvider == "llm" {
		slog.Info("reranking enabled", "provider", "llm")
		return reranker.NewLLMReranker(llmClient)
	}
	slog.Info("reranking enabled", "provider", "crossencoder", "url", cfg.RerankerURL)
	return reranker.NewCrossEncoder(cfg.RerankerURL, reranker.WithLogger(slog.Default()))
}

func buildHistory(ctx context.Context, cfg *config.Config) (memory.History, func(), error) {
	if cfg.RedisURL == "" {
		slog.Info("using in-process conversation history")
		store := memory.NewStore(20, cfg.SessionTTL)
		return store, func() {}, nil
	}

	history, err := memory.NewRedisHistory(ctx, memory.RedisConfig{
		Addrs:    []string{cfg.RedisURL},
		Password: cfg.RedisPassword,
		TTL:      cfg.SessionTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	slog.Info("using Redis conversation history", "addr", cfg.RedisURL)
	return history, history.Close, nil
}

func buildPipeline(cfg *config.Config, store vectorstore.VectorStore, statsRepo repository.StatsRepository) (*ingestion.Pipeline, error) {
	scraper, err := sources.NewFIAScraper(cfg.DataDir, sources.WithFIALogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to create FIA scraper: %w", err)
	}

	chunker, err := ingestion.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}

	indexer, err := ingestion.NewIndexer(store, chunker, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer: %w", err)
	}

	pipelineOpts := []ingestion.PipelineOption{
		ingestion.WithPipelineLogger(slog.Default()),
		ingestion.WithSchedule(sources.NewJolpicaClient()),
	}
	if statsRepo != nil {
		pipelineOpts = append(pipelineOpts, ingestion.WithStatsRepository(statsRepo))
	}
	return ingestion.NewPipeline(scraper, sources.NewRaceControlClient(), indexer, pipelineOpts...)
}

// Ensure interfaces are satisfied at compile time
var (
	_ server.Assistant           = (*agent.Agent)(nil)
	_ server.Ingestor            = (*ingestion.Pipeline)(nil)
	_ vectorstore.VectorStore    = (*vectorstore.QdrantStore)(nil)
	_ repository.StatsRepository = (*postgres.PenaltyRepo)(nil)
	_ memory.History             = (*memory.RedisHistory)(nil)
	_ llm.LLM                    = (*llm.OpenAIClient)(nil)
	_ vectorstore.Embedder       = (*embedder.OpenAIEmbedder)(nil)
)
