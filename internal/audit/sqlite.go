package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/promptguard/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS safety_events (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	id              TEXT NOT NULL UNIQUE,
	ts              TEXT NOT NULL,
	direction       TEXT NOT NULL,
	safe            INTEGER NOT NULL,
	max_severity    TEXT NOT NULL,
	violations      TEXT NOT NULL,
	content_preview TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_safety_events_direction ON safety_events(direction);
`

// SQLiteSink stores events in an append-only safety_events table.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: apply sqlite schema: %w", err)
	}
	return &SQLiteSink{db: db, path: path}, nil
}

// Name identifies the sink.
func (s *SQLiteSink) Name() string { return "sqlite:" + s.path }

// Write inserts ev.
func (s *SQLiteSink) Write(ctx context.Context, ev model.SafetyEvent) error {
	entry := EntryFromEvent(ev)
	viols, err := json.Marshal(entry.Violations)
	if err != nil {
		return fmt.Errorf("marshal violations: %w", err)
	}
	safe := 0
	if entry.Safe {
		safe = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO safety_events (id, ts, direction, safe, max_severity, violations, content_preview)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp, string(entry.Direction), safe,
		string(entry.MaxSeverity()), string(viols), entry.ContentPreview)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Entries returns stored entries in insertion order, optionally filtered by
// direction. limit <= 0 returns all rows.
func (s *SQLiteSink) Entries(ctx context.Context, direction model.Direction, limit int) ([]Entry, error) {
	query := `SELECT id, ts, direction, safe, violations, content_preview FROM safety_events`
	var args []any
	if direction != "" {
		query += ` WHERE direction = ?`
		args = append(args, string(direction))
	}
	query += ` ORDER BY seq`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e     Entry
			dir   string
			safe  int
			viols string
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &dir, &safe, &viols, &e.ContentPreview); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		e.Direction = model.Direction(dir)
		e.Safe = safe == 1
		if err := json.Unmarshal([]byte(viols), &e.Violations); err != nil {
			return nil, fmt.Errorf("audit: decode violations for %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
