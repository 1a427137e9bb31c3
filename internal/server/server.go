// Package server exposes the conversation agent over HTTP: one endpoint
// to start a conversation, one to continue it, and static serving of the
// generated output files.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"geoagent/internal/agent"
	"geoagent/internal/config"
	"geoagent/internal/logger"
	"geoagent/internal/session"
)

type Server struct {
	agent    *agent.Agent
	store    session.Store
	cfg      *config.Config
	turnTime time.Duration

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	ConversationID   string   `json:"conversation_id"`
	Answer           string   `json:"answer"`
	RequiresFollowUp bool     `json:"requires_follow_up"`
	GeneratedFiles   []string `json:"generated_files"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(a *agent.Agent, store session.Store, cfg *config.Config) *Server {
	return &Server{
		agent:    a,
		store:    store,
		cfg:      cfg,
		turnTime: time.Duration(cfg.Model.TimeoutSecs) * time.Second,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /chat/start", s.handleStart)
	mux.HandleFunc("POST /chat/continue/{id}", s.handleContinue)
	mux.Handle("GET /outputs/", http.StripPrefix("/outputs/",
		http.FileServer(http.Dir(s.cfg.OutputsDir))))
	return mux
}

// ListenAndServe runs the HTTP server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Server.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Successf("Listening on %s", s.cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Conversational geospatial analysis agent. POST /chat/start to begin.",
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.turnTime)
	defer cancel()

	result, err := s.agent.StartTurn(ctx, req.Query)
	if err != nil {
		logger.Errorf("Turn failed: %v", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "model request failed"})
		return
	}

	id := session.NewID()
	if err := s.store.Put(id, result.Conversation); err != nil {
		logger.Errorf("Failed to store conversation %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to store conversation"})
		return
	}

	logger.Infof("Started conversation %s", id)
	writeJSON(w, http.StatusCreated, s.buildResponse(id, result))
}

func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	// Turns on the same conversation must not interleave; the loop owns
	// the conversation exclusively for the duration of a turn.
	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.store.Get(id)
	if errors.Is(err, session.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "conversation ID not found"})
		return
	}
	if err != nil {
		logger.Errorf("Failed to load conversation %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load conversation"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.turnTime)
	defer cancel()

	result, err := s.agent.ContinueTurn(ctx, conv, req.Query)
	if errors.Is(err, agent.ErrInvalidState) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "conversation is mid-round and cannot be continued"})
		return
	}
	if err != nil {
		logger.Errorf("Turn failed for conversation %s: %v", id, err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "model request failed"})
		return
	}

	if err := s.store.Put(id, result.Conversation); err != nil {
		logger.Errorf("Failed to store conversation %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to store conversation"})
		return
	}

	writeJSON(w, http.StatusOK, s.buildResponse(id, result))
}

func (s *Server) sessionLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// buildResponse turns bare generated filenames into URLs under /outputs/.
func (s *Server) buildResponse(id string, result *agent.TurnResult) chatResponse {
	base := strings.TrimSuffix(s.cfg.Server.BaseURL, "/")
	urls := make([]string, 0, len(result.GeneratedFiles))
	for _, file := range result.GeneratedFiles {
		urls = append(urls, fmt.Sprintf("%s/outputs/%s", base, file))
	}

	return chatResponse{
		ConversationID:   id,
		Answer:           result.Answer,
		RequiresFollowUp: result.RequiresFollowUp,
		GeneratedFiles:   urls,
	}
}

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return req, false
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}
