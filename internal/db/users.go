package db

import (
	"database/sql"
	"fmt"

	"github.com/pilothouse-sh/pilothouse/internal/models"
)

// GetUser reads a user row. User rows are created and mutated by the auth
// collaborator; this core only reads the id it stamps on sessions and repos.
func (q *Queries) GetUser(id string) (*models.User, error) {
	var u models.User
	var createdAt, updatedAt string
	err := q.db.QueryRow(
		`SELECT id, name, email, created_at, updated_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("getting user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}
