// Package server exposes the assistant over a JSON HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pitwall-ai/pitwall/internal/agent"
	"github.com/pitwall-ai/pitwall/internal/auth"
	"github.com/pitwall-ai/pitwall/internal/ingestion"
	"github.com/pitwall-ai/pitwall/internal/repository"
	"github.com/pitwall-ai/pitwall/internal/vectorstore"
)

// Assistant answers questions. Satisfied by *agent.Agent.
type Assistant interface {
	Ask(ctx context.Context, query, sessionID string) (*agent.Response, error)
	AskStream(ctx context.Context, query, sessionID string) (*agent.StreamResponse, error)
	SaveExchange(ctx context.Context, sessionID, question, answer string)
}

// Ingestor runs data loading jobs. Satisfied by *ingestion.Pipeline.
type Ingestor interface {
	IngestRegulations(ctx context.Context, season int) (*ingestion.IngestResult, error)
	IngestStewardsDecisions(ctx context.Context, season int, raceName string) (*ingestion.IngestResult, error)
	IngestRaceControl(ctx context.Context, season int, raceName, sessionType string) (*ingestion.IngestResult, error)
	IngestSeasonRaceControl(ctx context.Context, season int, sessionType string) (*ingestion.IngestResult, error)
}

// HTTPServer serves the assistant API over chi.
type HTTPServer struct {
	server *http.Server
	router *chi.Mux
	logger *slog.Logger

	assistant Assistant
	ingestor  Ingestor
	store     vectorstore.VectorStore
	stats     repository.StatsRepository
	sessions  *auth.JWTManager
}

// HTTPServerConfig holds configuration for the HTTP server
type HTTPServerConfig struct {
	Port           int
	AdminAPIKey    string
	Logger         *slog.Logger
	AllowedOrigins []string // CORS allowed origins
}

// Dependencies collects the components the handlers delegate to.
// Ingestor and Stats are optional; their endpoints return 503 when
// absent.
type Dependencies struct {
	Assistant Assistant
	Ingestor  Ingestor
	Store     vectorstore.VectorStore
	Stats     repository.StatsRepository
	Sessions  *auth.JWTManager
}

// NewHTTPServer creates the HTTP server and mounts all routes.
func NewHTTPServer(cfg HTTPServerConfig, deps Dependencies) (*HTTPServer, error) {
	if deps.Assistant == nil {
		return nil, fmt.Errorf("server: assistant is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("server: vector store is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("server: session manager is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &HTTPServer{
		logger:    logger,
		assistant: deps.Assistant,
		ingestor:  deps.Ingestor,
		store:     deps.Store,
		stats:     deps.Stats,
		sessions:  deps.Sessions,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	router.Get("/healthz", s.handleHealth)
	router.Get("/readyz", s.handleReady)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/session", s.handleNewSession)
		r.Get("/stats", s.handleStats)

		r.Group(func(r chi.Router) {
			r.Use(auth.SessionMiddleware(deps.Sessions))
			r.Post("/ask", s.handleAsk)
			r.Post("/ask/stream", s.handleAskStream)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAPIKey(cfg.AdminAPIKey))
			r.Post("/setup/regulations", s.handleIngestRegulations)
			r.Post("/setup/stewards", s.handleIngestStewards)
			r.Post("/setup/racecontrol", s.handleIngestRaceControl)
			r.Post("/setup/reset", s.handleReset)
		})
	})

	s.router = router
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Increased for streaming LLM responses
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying chi router, mostly for tests.
func (s *HTTPServer) Router() *chi.Mux {
	return s.router
}

// requestLoggingMiddleware logs HTTP requests
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 {
				allowed = true
				origin = "*"
			} else {
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID, X-Api-Key")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
