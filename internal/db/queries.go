package db

import (
	"database/sql"
	"strings"
	"time"
)

type Queries struct {
	db *sql.DB
}

func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// rowScanner lets scan helpers work over both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Timestamps are stored as TEXT in SQLite's datetime('now') format, UTC.
func now() string {
	return time.Now().UTC().Format(time.DateTime)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.DateTime, s)
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t := parseTime(*s)
	return &t
}

// isForeignKeyViolation detects a rejected write whose referenced row does
// not exist. The modernc driver surfaces constraint errors by message.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
