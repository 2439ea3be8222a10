package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pilothouse-sh/pilothouse/internal/models"
)

const sessionColumns = `id, title, claude_session_id, status, cwd, allowed_tools, last_prompt, user_id, github_repo_id, created_at, updated_at`

type CreateSessionParams struct {
	Title        string
	CWD          *string
	AllowedTools []string
	UserID       *string
	GithubRepoID *string
}

// CreateSession inserts a new session in the idle state with a generated id.
// Title is required; everything else defaults to absent.
func (q *Queries) CreateSession(p CreateSessionParams) (*models.Session, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, fmt.Errorf("creating session: title is required: %w", ErrValidation)
	}

	id := uuid.New().String()
	ts := now()
	tools, err := marshalTools(p.AllowedTools)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	_, err = q.db.Exec(
		`INSERT INTO sessions (id, title, status, cwd, allowed_tools, user_id, github_repo_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Title, string(models.StatusIdle), p.CWD, tools, p.UserID, p.GithubRepoID, ts, ts,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("creating session: referenced user or repo does not exist: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return q.GetSession(id)
}

func (q *Queries) GetSession(id string) (*models.Session, error) {
	row := q.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("getting session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return s, nil
}

func (q *Queries) ListSessions() ([]models.Session, error) {
	rows, err := q.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	results := []models.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		results = append(results, *s)
	}
	return results, rows.Err()
}

func (q *Queries) UpdateSessionTitle(id, title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("updating session %s: title is required: %w", id, ErrValidation)
	}
	return q.updateSession(id, `UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`, title)
}

// UpdateSessionStatus moves the session through its state machine. The
// transition is validated against the current row before anything is written.
func (q *Queries) UpdateSessionStatus(id string, next models.Status) error {
	if !next.Valid() {
		return fmt.Errorf("updating session %s: invalid status %q: %w", id, next, ErrValidation)
	}
	current, err := q.GetSession(id)
	if err != nil {
		return err
	}
	if !current.Status.CanTransitionTo(next) {
		return fmt.Errorf("updating session %s: %s -> %s: %w", id, current.Status, next, ErrInvalidTransition)
	}
	return q.updateSession(id, `UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`, string(next))
}

// UpdateSessionPrompt records the most recent user input.
func (q *Queries) UpdateSessionPrompt(id, prompt string) error {
	return q.updateSession(id, `UPDATE sessions SET last_prompt = ?, updated_at = ? WHERE id = ?`, prompt)
}

// UpdateSessionClaudeID stores the correlation id the external assistant
// reports for its own session.
func (q *Queries) UpdateSessionClaudeID(id, claudeSessionID string) error {
	return q.updateSession(id, `UPDATE sessions SET claude_session_id = ?, updated_at = ? WHERE id = ?`, claudeSessionID)
}

// UpdateSessionCWD sets the working directory. The tool list is a separate
// concern and is not touched.
func (q *Queries) UpdateSessionCWD(id, cwd string) error {
	return q.updateSession(id, `UPDATE sessions SET cwd = ?, updated_at = ? WHERE id = ?`, cwd)
}

// UpdateSessionTools replaces the permitted tool list.
func (q *Queries) UpdateSessionTools(id string, allowedTools []string) error {
	tools, err := marshalTools(allowedTools)
	if err != nil {
		return fmt.Errorf("updating session %s: %w", id, err)
	}
	return q.updateSession(id, `UPDATE sessions SET allowed_tools = ?, updated_at = ? WHERE id = ?`, tools)
}

// AttachSessionRepo points the session at a cloned repository.
func (q *Queries) AttachSessionRepo(id, repoID string) error {
	res, err := q.db.Exec(`UPDATE sessions SET github_repo_id = ?, updated_at = ? WHERE id = ?`, repoID, now(), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("attaching repo %s to session %s: %w", repoID, id, ErrNotFound)
		}
		return fmt.Errorf("attaching repo %s to session %s: %w", repoID, id, err)
	}
	return requireRow(res, "session", id)
}

// DetachSessionRepo discards the session's repository reference. The repo row
// itself is untouched.
func (q *Queries) DetachSessionRepo(id string) error {
	return q.updateSession(id, `UPDATE sessions SET github_repo_id = ?, updated_at = ? WHERE id = ?`, nil)
}

// DeleteSession removes the session and, by cascade, all of its messages.
func (q *Queries) DeleteSession(id string) error {
	res, err := q.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return requireRow(res, "session", id)
}

func (q *Queries) updateSession(id, stmt string, value any) error {
	res, err := q.db.Exec(stmt, value, now(), id)
	if err != nil {
		return fmt.Errorf("updating session %s: %w", id, err)
	}
	return requireRow(res, "session", id)
}

func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating %s %s: %w", entity, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return nil
}

func marshalTools(tools []string) (*string, error) {
	if tools == nil {
		return nil, nil
	}
	b, err := json.Marshal(tools)
	if err != nil {
		return nil, fmt.Errorf("encoding allowed tools: %w", err)
	}
	s := string(b)
	return &s, nil
}

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	var status, createdAt, updatedAt string
	var tools *string
	err := row.Scan(
		&s.ID, &s.Title, &s.ClaudeSessionID, &status, &s.CWD,
		&tools, &s.LastPrompt, &s.UserID, &s.GithubRepoID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = models.Status(status)
	if tools != nil {
		if err := json.Unmarshal([]byte(*tools), &s.AllowedTools); err != nil {
			return nil, fmt.Errorf("decoding allowed tools: %w", err)
		}
	}
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}
