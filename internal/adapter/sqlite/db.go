package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/user/profile-scraper/internal/repository"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// fixed width keeps lexical order equal to chronological order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open opens (creating if needed) the database at path and applies the schema.
// SQLite allows a single writer, so the pool is capped at one connection and
// writers queue on it instead of failing with SQLITE_BUSY.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", repository.ErrStorage, path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA busy_timeout = 5000;"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL;", "PRAGMA synchronous = NORMAL;")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %s: %v", repository.ErrStorage, p, err)
		}
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: apply schema: %v", repository.ErrStorage, err)
	}
	return db, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
