package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/pilothouse-sh/pilothouse/internal/db"
	"github.com/pilothouse-sh/pilothouse/internal/logger"
)

// Server exposes the session/message/repo primitives over a local JSON API.
// The process-supervision collaborator and the dashboard both speak to this
// surface; neither gets its own storage access.
type Server struct {
	queries *db.Queries
	httpSrv *http.Server
	ln      net.Listener
	addr    string
}

func New(queries *db.Queries) *Server {
	s := &Server{queries: queries}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("PATCH /api/sessions/{id}", s.handleUpdateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/messages", s.handleListMessages)
	mux.HandleFunc("POST /api/sessions/{id}/messages", s.handleAppendMessage)
	mux.HandleFunc("GET /api/repos", s.handleListRepos)
	mux.HandleFunc("POST /api/repos", s.handleCreateRepo)
	mux.HandleFunc("GET /api/repos/{id}", s.handleGetRepo)
	mux.HandleFunc("DELETE /api/repos/{id}", s.handleDeleteRepo)
	mux.HandleFunc("POST /api/repos/{id}/branch", s.handleProposeBranch)

	s.httpSrv = &http.Server{Handler: mux}
	return s
}

// Listen binds the server to addr. An addr port of 0 picks a free port; use
// Addr afterwards for the resolved address. Call Serve to start handling
// requests.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	s.ln = ln
	s.addr = ln.Addr().String()
	return nil
}

// Serve starts handling HTTP requests. Blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.httpSrv.Shutdown(context.Background())
	}()

	logger.Info("pilothouse listening", "addr", s.addr)
	if err := s.httpSrv.Serve(s.ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	logger.Info("shutting down")
	return nil
}

func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the routing handler, for tests that drive the mux without
// a listener.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encoding response", "error", err)
	}
}

// writeError maps the store taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, db.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, db.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, db.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, db.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding request body: %s: %w", err, db.ErrValidation)
	}
	return nil
}
