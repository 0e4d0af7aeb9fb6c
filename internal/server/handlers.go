package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pitwall-ai/pitwall/internal/agent"
	"github.com/pitwall-ai/pitwall/internal/auth"
	"github.com/pitwall-ai/pitwall/internal/vectorstore"
)

const maxRequestBody = 1 << 20 // 1 MiB

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

type askResponse struct {
	Answer    string          `json:"answer"`
	QueryType agent.QueryType `json:"query_type"`
	Sources   []agent.Source  `json:"sources"`
	SessionID string          `json:"session_id"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

type ingestRequest struct {
	Season      int    `json:"season"`
	RaceName    string `json:"race_name,omitempty"`
	SessionType string `json:"session_type,omitempty"`
}

type statsResponse struct {
	Collections []vectorstore.CollectionStats `json:"collections"`
	Penalties   *int64                        `json:"penalties,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports readiness by probing the vector store. A failing
// probe means searches would fail too, so the instance should not
// receive traffic yet.
func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.CollectionStats(r.Context(), vectorstore.RegulationsCollection); err != nil {
		writeError(w, http.StatusServiceUnavailable, "vector store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) handleNewSession(w http.ResponseWriter, r *http.Request) {
	sessionID, token, err := s.sessions.NewSession()
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: sessionID, Token: token})
}

func (s *HTTPServer) handleAsk(w http.ResponseWriter, r *http.Request) {
	req, sessionID, ok := s.decodeAsk(w, r)
	if !ok {
		return
	}

	resp, err := s.assistant.Ask(r.Context(), req.Question, sessionID)
	if err != nil {
		s.writeAskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Answer:    resp.Answer,
		QueryType: resp.QueryType,
		Sources:   resp.Sources,
		SessionID: sessionID,
	})
}

// handleAskStream streams the answer as server-sent events. The
// metadata event arrives first, then one token event per chunk, then
// done. The exchange is recorded once the full answer is accumulated.
func (s *HTTPServer) handleAskStream(w http.ResponseWriter, r *http.Request) {
	req, sessionID, ok := s.decodeAsk(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	stream, err := s.assistant.AskStream(r.Context(), req.Question, sessionID)
	if err != nil {
		s.writeAskError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeSSE(w, "metadata", map[string]any{
		"query_type": stream.QueryType,
		"sources":    stream.Sources,
		"session_id": sessionID,
	})
	flusher.Flush()

	var answer strings.Builder
	for chunk := range stream.Chunks {
		if chunk.Error != nil {
			writeSSE(w, "error", errorResponse{Error: "generation failed"})
			flusher.Flush()
			s.logger.Error("stream failed", "error", chunk.Error, "session_id", sessionID)
			return
		}
		if chunk.Token != "" {
			answer.WriteString(chunk.Token)
			writeSSE(w, "token", map[string]string{"token": chunk.Token})
			flusher.Flush()
		}
		if chunk.Done {
			break
		}
	}

	writeSSE(w, "done", map[string]string{"status": "complete"})
	flusher.Flush()

	s.assistant.SaveExchange(r.Context(), sessionID, req.Question, answer.String())
}

func (s *HTTPServer) handleIngestRegulations(w http.ResponseWriter, r *http.Request) {
	s.runIngest(w, r, func(r *http.Request, req ingestRequest) (any, error) {
		return s.ingestor.IngestRegulations(r.Context(), req.Season)
	})
}

func (s *HTTPServer) handleIngestStewards(w http.ResponseWriter, r *http.Request) {
	s.runIngest(w, r, func(r *http.Request, req ingestRequest) (any, error) {
		return s.ingestor.IngestStewardsDecisions(r.Context(), req.Season, req.RaceName)
	})
}

// handleIngestRaceControl ingests one race when race_name is given,
// otherwise the whole season calendar.
func (s *HTTPServer) handleIngestRaceControl(w http.ResponseWriter, r *http.Request) {
	s.runIngest(w, r, func(r *http.Request, req ingestRequest) (any, error) {
		if req.RaceName == "" {
			return s.ingestor.IngestSeasonRaceControl(r.Context(), req.Season, req.SessionType)
		}
		return s.ingestor.IngestRaceControl(r.Context(), req.Season, req.RaceName, req.SessionType)
	})
}

func (s *HTTPServer) runIngest(w http.ResponseWriter, r *http.Request, run func(*http.Request, ingestRequest) (any, error)) {
	if s.ingestor == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion is not configured")
		return
	}

	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Season == 0 {
		req.Season = time.Now().Year()
	}

	result, err := run(r, req)
	if err != nil {
		s.logger.Error("ingest failed", "error", err, "season", req.Season)
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(r.Context()); err != nil {
		s.logger.Error("reset failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{}
	for _, name := range vectorstore.Collections {
		stats, err := s.store.CollectionStats(r.Context(), name)
		if err != nil {
			s.logger.Warn("collection stats failed", "collection", name, "error", err)
			stats = vectorstore.CollectionStats{Name: name, Status: "unavailable"}
		}
		resp.Collections = append(resp.Collections, stats)
	}

	if s.stats != nil {
		count, err := s.stats.CountBySeason(r.Context(), time.Now().Year())
		if err != nil {
			s.logger.Warn("penalty count failed", "error", err)
		} else {
			resp.Penalties = &count
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// decodeAsk parses an ask request and resolves the session. A session
// bound to the bearer token wins over one named in the body; anonymous
// requests get a fresh ID so history still accumulates per response.
func (s *HTTPServer) decodeAsk(w http.ResponseWriter, r *http.Request) (askRequest, string, bool) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, "", false
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question must not be empty")
		return req, "", false
	}

	sessionID := auth.SessionFromContext(r.Context())
	if sessionID == "" {
		sessionID = req.SessionID
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return req, sessionID, true
}

func (s *HTTPServer) writeAskError(w http.ResponseWriter, err error) {
	if errors.Is(err, agent.ErrEmptyQuery) {
		writeError(w, http.StatusBadRequest, "question must not be empty")
		return
	}
	s.logger.Error("ask failed", "error", err)
	writeError(w, http.StatusInternalServerError, "failed to answer question")
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
