// Package history stores run records in a SQLite database under the work
// directory. It is best effort: callers treat failures as warnings.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// FileName is the database file created inside the work directory.
const FileName = "history.db"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	env           TEXT NOT NULL,
	started_at    TIMESTAMP NOT NULL,
	duration_ms   INTEGER NOT NULL,
	exit_code     INTEGER NOT NULL,
	command_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at DESC);
`

// Record is one environment execution.
type Record struct {
	ID        string
	Env       string
	StartedAt time.Time
	Duration  time.Duration
	ExitCode  int
	Commands  int
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores one record, assigning an id when the caller left it empty.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, env, started_at, duration_ms, exit_code, command_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Env, rec.StartedAt.UTC(), rec.Duration.Milliseconds(), rec.ExitCode, rec.Commands)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, env, started_at, duration_ms, exit_code, command_count
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			rec        Record
			durationMs int64
		)
		if err := rows.Scan(&rec.ID, &rec.Env, &rec.StartedAt, &durationMs, &rec.ExitCode, &rec.Commands); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history rows: %w", err)
	}
	return records, nil
}
