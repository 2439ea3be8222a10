package db

import (
	"database/sql"
	"fmt"
)

// columnMigration adds a column to a table created by an earlier version of
// the schema. Additions are the only post-creation change; columns are never
// dropped or renamed. Each entry is skipped silently when the column already
// exists, so the whole list can run on every startup.
type columnMigration struct {
	table  string
	column string
	ddl    string
}

var columnMigrations = []columnMigration{
	{"sessions", "claude_session_id", `ALTER TABLE sessions ADD COLUMN claude_session_id TEXT`},
	{"sessions", "cwd", `ALTER TABLE sessions ADD COLUMN cwd TEXT`},
	{"sessions", "allowed_tools", `ALTER TABLE sessions ADD COLUMN allowed_tools TEXT`},
	{"sessions", "last_prompt", `ALTER TABLE sessions ADD COLUMN last_prompt TEXT`},
	{"sessions", "user_id", `ALTER TABLE sessions ADD COLUMN user_id TEXT REFERENCES users(id) ON DELETE CASCADE`},
	{"sessions", "github_repo_id", `ALTER TABLE sessions ADD COLUMN github_repo_id TEXT REFERENCES github_repos(id) ON DELETE SET NULL`},
	{"github_repos", "branch", `ALTER TABLE github_repos ADD COLUMN branch TEXT NOT NULL DEFAULT 'main'`},
	{"github_repos", "last_synced", `ALTER TABLE github_repos ADD COLUMN last_synced TEXT`},
	{"github_repos", "is_private", `ALTER TABLE github_repos ADD COLUMN is_private INTEGER NOT NULL DEFAULT 0`},
}

// Migrate brings the database up to the current schema. Every step is
// idempotent, so a run aborted by an error can simply be retried; statements
// already applied become no-ops.
func Migrate(db *sql.DB) error {
	for _, s := range schemaStatements {
		if _, err := db.Exec(s.ddl); err != nil {
			return fmt.Errorf("creating %s: %w", s.name, err)
		}
	}

	for _, m := range columnMigrations {
		has, err := tableHasColumn(db, m.table, m.column)
		if err != nil {
			return fmt.Errorf("inspecting %s.%s: %w", m.table, m.column, err)
		}
		if has {
			continue
		}
		if _, err := db.Exec(m.ddl); err != nil {
			return fmt.Errorf("adding column %s.%s: %w", m.table, m.column, err)
		}
	}

	if err := migrateLegacySessions(db); err != nil {
		return err
	}
	return nil
}

func tableExists(db *sql.DB, table string) (bool, error) {
	var name string
	err := db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func tableHasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(`PRAGMA table_info(` + table + `)`)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// migrateLegacySessions folds rows from the historical claude_sessions table
// (camelCase columns, no user or repo references) into the canonical sessions
// table, then drops it. On databases without the legacy table this is a no-op,
// which also makes the fold itself run at most once.
func migrateLegacySessions(db *sql.DB) error {
	exists, err := tableExists(db, "claude_sessions")
	if err != nil {
		return fmt.Errorf("checking for claude_sessions: %w", err)
	}
	if !exists {
		return nil
	}

	copyStmt := `
		INSERT OR IGNORE INTO sessions
		    (id, title, claude_session_id, status, cwd, allowed_tools, last_prompt, created_at, updated_at)
		SELECT id, title, claudeSessionId, status, cwd, allowedTools, lastPrompt, createdAt, updatedAt
		FROM claude_sessions`
	if _, err := db.Exec(copyStmt); err != nil {
		return fmt.Errorf("copying claude_sessions rows: %w", err)
	}
	if _, err := db.Exec(`DROP TABLE claude_sessions`); err != nil {
		return fmt.Errorf("dropping claude_sessions: %w", err)
	}
	return nil
}
