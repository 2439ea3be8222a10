package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/pilothouse-sh/pilothouse/internal/models"
)

// AppendMessage writes one immutable record to a session's log. The payload
// is stored verbatim; this layer imposes no structure on it. Appending to a
// session that does not exist fails with ErrNotFound (via the foreign key).
func (q *Queries) AppendMessage(sessionID, data string) (*models.Message, error) {
	id := uuid.New().String()
	_, err := q.db.Exec(
		`INSERT INTO messages (id, session_id, data, created_at) VALUES (?, ?, ?, ?)`,
		id, sessionID, data, now(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("appending message: session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("appending message to session %s: %w", sessionID, err)
	}
	return q.GetMessage(id)
}

func (q *Queries) GetMessage(id string) (*models.Message, error) {
	var m models.Message
	var createdAt string
	err := q.db.QueryRow(
		`SELECT id, session_id, data, created_at FROM messages WHERE id = ?`, id,
	).Scan(&m.ID, &m.SessionID, &m.Data, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("getting message %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting message %s: %w", id, err)
	}
	m.CreatedAt = parseTime(createdAt)
	return &m, nil
}

// ListMessages returns the full log for a session in append order. Re-reading
// yields the same prefix plus any records appended since. A session with no
// messages yields an empty slice, not an error.
//
// Ordering ties on created_at (second resolution) are broken by rowid, which
// follows insertion order for an append-only table.
func (q *Queries) ListMessages(sessionID string) ([]models.Message, error) {
	return q.listMessages(
		`SELECT id, session_id, data, created_at FROM messages
		 WHERE session_id = ? ORDER BY created_at ASC, rowid ASC`, sessionID)
}

// ListMessagesAfter returns the suffix of a session's log strictly after the
// message with afterID, for incremental consumption. The anchor message must
// exist.
func (q *Queries) ListMessagesAfter(sessionID, afterID string) ([]models.Message, error) {
	var anchor int64
	err := q.db.QueryRow(`SELECT rowid FROM messages WHERE id = ? AND session_id = ?`, afterID, sessionID).Scan(&anchor)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("listing messages after %s: %w", afterID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("listing messages after %s: %w", afterID, err)
	}
	return q.listMessages(
		`SELECT id, session_id, data, created_at FROM messages
		 WHERE session_id = ? AND rowid > ? ORDER BY created_at ASC, rowid ASC`, sessionID, anchor)
}

func (q *Queries) listMessages(query string, args ...any) ([]models.Message, error) {
	rows, err := q.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	results := []models.Message{}
	for rows.Next() {
		var m models.Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Data, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.CreatedAt = parseTime(createdAt)
		results = append(results, m)
	}
	return results, rows.Err()
}
