package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

func newTestQueries(t *testing.T) *Queries {
	t.Helper()
	return NewQueries(newTestDB(t))
}

// seedUser simulates the auth collaborator, which owns the users table.
func seedUser(t *testing.T, q *Queries, id string) {
	t.Helper()
	_, err := q.db.Exec(
		`INSERT INTO users (id, name, email) VALUES (?, ?, ?)`,
		id, "Test User", id+"@example.com",
	)
	require.NoError(t, err)
}
