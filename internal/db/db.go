package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultFilename is the database file used when DATABASE_PATH is unset.
const DefaultFilename = "pilothouse.db"

// Path resolves the database file location: DATABASE_PATH if set, otherwise
// DefaultFilename relative to the working directory.
func Path() string {
	if p := os.Getenv("DATABASE_PATH"); p != "" {
		return p
	}
	return DefaultFilename
}

// Open opens the database file at dbPath, creating it and any parent
// directories if absent, and brings the schema up to date. Safe to call
// repeatedly against the same file.
//
// WAL allows concurrent readers during a writer's transaction; foreign_keys
// must be on before any write touching relations for cascade semantics to
// hold. Both pragmas are per-connection in SQLite, so they ride on the DSN
// and apply to every connection the pool opens.
func Open(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := Migrate(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}
