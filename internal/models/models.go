package models

import "time"

// Status is the lifecycle state of a session. A session starts idle, moves to
// running when a prompt is dispatched, and settles in completed or error. A
// new prompt on a settled session moves it back to running.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Valid reports whether s is one of the defined states.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusRunning, StatusCompleted, StatusError:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine permits moving from s to
// next. Self-transitions are not permitted.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusIdle:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusCompleted || next == StatusError
	case StatusCompleted, StatusError:
		return next == StatusRunning
	}
	return false
}

type Session struct {
	ID              string
	Title           string
	ClaudeSessionID *string // assigned by the external assistant on first run
	Status          Status
	CWD             *string
	AllowedTools    []string
	LastPrompt      *string
	UserID          *string
	GithubRepoID    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Message struct {
	ID        string
	SessionID string
	Data      string // opaque serialized event payload, stored verbatim
	CreatedAt time.Time
}

type GithubRepo struct {
	ID           string
	UserID       string
	RepoFullName string
	RepoURL      string
	CloneURL     string
	LocalPath    string
	Branch       string
	LastSynced   *time.Time
	IsPrivate    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// User rows are owned by the auth collaborator; this core only reads them.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
