package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pilothouse-sh/pilothouse/internal/db"
	"github.com/pilothouse-sh/pilothouse/internal/github"
	"github.com/pilothouse-sh/pilothouse/internal/models"
	"github.com/pilothouse-sh/pilothouse/internal/repo"
)

type sessionJSON struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	ClaudeSessionID *string  `json:"claudeSessionId,omitempty"`
	Status          string   `json:"status"`
	CWD             *string  `json:"cwd,omitempty"`
	AllowedTools    []string `json:"allowedTools,omitempty"`
	LastPrompt      *string  `json:"lastPrompt,omitempty"`
	UserID          *string  `json:"userId,omitempty"`
	GithubRepoID    *string  `json:"githubRepoId,omitempty"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`
}

func toSessionJSON(s *models.Session) sessionJSON {
	return sessionJSON{
		ID:              s.ID,
		Title:           s.Title,
		ClaudeSessionID: s.ClaudeSessionID,
		Status:          string(s.Status),
		CWD:             s.CWD,
		AllowedTools:    s.AllowedTools,
		LastPrompt:      s.LastPrompt,
		UserID:          s.UserID,
		GithubRepoID:    s.GithubRepoID,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       s.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.queries.ListSessions()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]sessionJSON, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionJSON(&sessions[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title        string   `json:"title"`
		CWD          *string  `json:"cwd"`
		AllowedTools []string `json:"allowedTools"`
		UserID       *string  `json:"userId"`
		GithubRepoID *string  `json:"githubRepoId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := s.queries.CreateSession(db.CreateSessionParams{
		Title:        req.Title,
		CWD:          req.CWD,
		AllowedTools: req.AllowedTools,
		UserID:       req.UserID,
		GithubRepoID: req.GithubRepoID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionJSON(session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.queries.GetSession(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(session))
}

// handleUpdateSession applies a partial update. Absent fields stay untouched,
// and a request that fails validation is rejected before any field is
// written; detachRepo discards the repository reference.
func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Title           *string   `json:"title"`
		Status          *string   `json:"status"`
		LastPrompt      *string   `json:"lastPrompt"`
		ClaudeSessionID *string   `json:"claudeSessionId"`
		CWD             *string   `json:"cwd"`
		AllowedTools    *[]string `json:"allowedTools"`
		GithubRepoID    *string   `json:"githubRepoId"`
		DetachRepo      bool      `json:"detachRepo"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	// Validate the whole request against the current row first, so a
	// rejection never leaves a partial write behind.
	current, err := s.queries.GetSession(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(w, fmt.Errorf("title is required: %w", db.ErrValidation))
		return
	}
	if req.Status != nil {
		next := models.Status(*req.Status)
		if !next.Valid() {
			writeError(w, fmt.Errorf("invalid status %q: %w", *req.Status, db.ErrValidation))
			return
		}
		if !current.Status.CanTransitionTo(next) {
			writeError(w, fmt.Errorf("%s -> %s: %w", current.Status, next, db.ErrInvalidTransition))
			return
		}
	}
	if req.GithubRepoID != nil {
		if _, err := s.queries.GetRepo(*req.GithubRepoID); err != nil {
			writeError(w, err)
			return
		}
	}

	apply := func(err error) bool {
		if err != nil {
			writeError(w, err)
			return false
		}
		return true
	}
	if req.Title != nil && !apply(s.queries.UpdateSessionTitle(id, *req.Title)) {
		return
	}
	if req.Status != nil && !apply(s.queries.UpdateSessionStatus(id, models.Status(*req.Status))) {
		return
	}
	if req.LastPrompt != nil && !apply(s.queries.UpdateSessionPrompt(id, *req.LastPrompt)) {
		return
	}
	if req.ClaudeSessionID != nil && !apply(s.queries.UpdateSessionClaudeID(id, *req.ClaudeSessionID)) {
		return
	}
	if req.CWD != nil && !apply(s.queries.UpdateSessionCWD(id, *req.CWD)) {
		return
	}
	if req.AllowedTools != nil && !apply(s.queries.UpdateSessionTools(id, *req.AllowedTools)) {
		return
	}
	if req.GithubRepoID != nil && !apply(s.queries.AttachSessionRepo(id, *req.GithubRepoID)) {
		return
	}
	if req.DetachRepo && !apply(s.queries.DetachSessionRepo(id)) {
		return
	}

	session, err := s.queries.GetSession(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionJSON(session))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.queries.DeleteSession(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type messageJSON struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	CreatedAt string          `json:"createdAt"`
}

func toMessageJSON(m *models.Message) messageJSON {
	return messageJSON{
		ID:        m.ID,
		SessionID: m.SessionID,
		Data:      json.RawMessage(m.Data),
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// The session must exist even when its log is empty.
	if _, err := s.queries.GetSession(id); err != nil {
		writeError(w, err)
		return
	}

	var messages []models.Message
	var err error
	if after := r.URL.Query().Get("after"); after != "" {
		messages, err = s.queries.ListMessagesAfter(id, after)
	} else {
		messages, err = s.queries.ListMessages(id)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]messageJSON, 0, len(messages))
	for i := range messages {
		out = append(out, toMessageJSON(&messages[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Data json.RawMessage `json:"data"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Data) == 0 {
		writeError(w, fmt.Errorf("message data is required: %w", db.ErrValidation))
		return
	}

	msg, err := s.queries.AppendMessage(r.PathValue("id"), string(req.Data))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageJSON(msg))
}

type repoJSON struct {
	ID           string  `json:"id"`
	UserID       string  `json:"userId"`
	RepoFullName string  `json:"repoFullName"`
	RepoURL      string  `json:"repoUrl"`
	CloneURL     string  `json:"cloneUrl"`
	LocalPath    string  `json:"localPath"`
	Branch       string  `json:"branch"`
	LastSynced   *string `json:"lastSynced,omitempty"`
	IsPrivate    bool    `json:"isPrivate"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

func toRepoJSON(r *models.GithubRepo) repoJSON {
	out := repoJSON{
		ID:           r.ID,
		UserID:       r.UserID,
		RepoFullName: r.RepoFullName,
		RepoURL:      r.RepoURL,
		CloneURL:     r.CloneURL,
		LocalPath:    r.LocalPath,
		Branch:       r.Branch,
		IsPrivate:    r.IsPrivate,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    r.UpdatedAt.Format(time.RFC3339),
	}
	if r.LastSynced != nil {
		s := r.LastSynced.Format(time.RFC3339)
		out.LastSynced = &s
	}
	return out
}

func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, fmt.Errorf("userId query parameter is required: %w", db.ErrValidation))
		return
	}
	repos, err := s.queries.ListRepos(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]repoJSON, 0, len(repos))
	for i := range repos {
		out = append(out, toRepoJSON(&repos[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateRepo registers a clone of owner/repo for a user. Metadata
// comes from the gh CLI; the clone itself is created lazily unless the
// request asks for it.
func (s *Server) handleCreateRepo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"userId"`
		FullName string `json:"fullName"`
		Branch   string `json:"branch"`
		Clone    bool   `json:"clone"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := repo.ValidateFullName(req.FullName); err != nil {
		writeError(w, fmt.Errorf("%s: %w", err, db.ErrValidation))
		return
	}

	meta, err := github.ViewRepo(r.Context(), req.FullName)
	if err != nil {
		writeError(w, err)
		return
	}
	localPath, err := repo.LocalPath(meta.FullName)
	if err != nil {
		writeError(w, err)
		return
	}

	branch := req.Branch
	if branch == "" {
		branch = meta.Branch.Name
	}
	created, err := s.queries.CreateRepo(db.CreateRepoParams{
		UserID:       req.UserID,
		RepoFullName: meta.FullName,
		RepoURL:      meta.URL,
		CloneURL:     meta.CloneURL(),
		LocalPath:    localPath,
		Branch:       branch,
		IsPrivate:    meta.IsPrivate,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Clone {
		if err := repo.EnsureCloned(r.Context(), created.CloneURL, created.LocalPath); err != nil {
			writeError(w, err)
			return
		}
		if err := s.queries.UpdateRepoSynced(created.ID, created.Branch, time.Now()); err != nil {
			writeError(w, err)
			return
		}
		if created, err = s.queries.GetRepo(created.ID); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, toRepoJSON(created))
}

func (s *Server) handleGetRepo(w http.ResponseWriter, r *http.Request) {
	rec, err := s.queries.GetRepo(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRepoJSON(rec))
}

func (s *Server) handleDeleteRepo(w http.ResponseWriter, r *http.Request) {
	if err := s.queries.DeleteRepo(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleProposeBranch derives a workspace branch name for a task and,
// optionally, creates it in the clone.
func (s *Server) handleProposeBranch(w http.ResponseWriter, r *http.Request) {
	rec, err := s.queries.GetRepo(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Task   string `json:"task"`
		Name   string `json:"name"`
		Create bool   `json:"create"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	branch := repo.ProposeBranch(req.Task, req.Name)
	if req.Create {
		if err := repo.CreateBranch(r.Context(), rec.LocalPath, branch); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"branch": branch})
}
