// Package server exposes the inbound HTTP surface: one chat endpoint per
// customer and a health check.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/caresbot/caresbot/internal/agent"
	"github.com/caresbot/caresbot/internal/core"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server routes customer messages into the orchestration loop.
type Server struct {
	Addr   string
	Loop   *agent.Loop
	logger *log.Logger
}

// New creates the HTTP server.
func New(addr string, loop *agent.Loop) *Server {
	return &Server{
		Addr:   addr,
		Loop:   loop,
		logger: log.New(log.Writer(), "[SERVER] ", log.LstdFlags),
	}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/health", s.handleHealth)
	r.Post("/chat/{customer_id}", s.handleChat)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", s.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.logger.Printf("shutting down")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat accepts one customer utterance and returns the assistant
// reply. The session id is minted server-side on the first message and
// echoed back so the client can continue the conversation.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	customerID := strings.TrimSpace(chi.URLParam(r, "customer_id"))
	if customerID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "customer_id is required"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	reply, err := s.Loop.HandleUtterance(r.Context(), sessionID, customerID, req.Message)
	if err != nil {
		if errors.Is(err, core.ErrIdentityConflict) {
			writeJSON(w, http.StatusConflict, chatResponse{Reply: reply, SessionID: sessionID})
			return
		}
		s.logger.Printf("chat failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, chatResponse{Reply: agent.Apology, SessionID: sessionID})
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply, SessionID: sessionID})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[SERVER] write response: %v", err)
	}
}
