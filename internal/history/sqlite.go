package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/0x6d61/sqlistudio/internal/payload"
)

// timeLayout is fixed-width so recorded_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store using SQLite via modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and if needed creates) the history database at
// dbPath; use ":memory:" for testing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping database: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS applications (
			id          TEXT PRIMARY KEY,
			target_url  TEXT NOT NULL,
			location    TEXT NOT NULL,
			parameter   TEXT NOT NULL,
			payload     TEXT NOT NULL,
			success     INTEGER NOT NULL,
			entry_json  TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_target_url ON applications(target_url)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_recorded_at ON applications(recorded_at)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Record appends e. An empty ID gets a fresh UUID and a zero RecordedAt is
// set to now. Recording an ID twice is an error.
func (s *SQLiteStore) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = s.now()
	}
	e.RecordedAt = e.RecordedAt.UTC()
	if e.TargetURL == "" {
		e.TargetURL = e.Original.URL
	}

	entryJSON, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("history: marshal entry: %w", err)
	}

	query := `
		INSERT INTO applications (id, target_url, location, parameter, payload, success, entry_json, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		e.ID,
		e.TargetURL,
		string(e.Application.InjectionPoint.Location),
		e.Application.InjectionPoint.Parameter,
		e.Application.Suggestion.Payload,
		e.Application.Success,
		string(entryJSON),
		e.RecordedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("history: record entry: %w", err)
	}
	return nil
}

// Get returns the entry with the given ID, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT entry_json FROM applications WHERE id = ?`, id)

	var entryJSON string
	if err := row.Scan(&entryJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("history: scan row: %w", err)
	}

	var e Entry
	if err := json.Unmarshal([]byte(entryJSON), &e); err != nil {
		return nil, fmt.Errorf("history: unmarshal entry: %w", err)
	}
	return &e, nil
}

// List returns summaries, newest first.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]*Summary, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT id, target_url, location, parameter, payload, success, recorded_at FROM applications`)
	if opts.TargetURL != "" {
		sb.WriteString(` WHERE target_url = ?`)
		args = append(args, opts.TargetURL)
	}
	sb.WriteString(` ORDER BY recorded_at DESC, rowid DESC`)
	if opts.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("history: list entries: %w", err)
	}
	defer rows.Close()

	var summaries []*Summary
	for rows.Next() {
		var (
			sum        Summary
			location   string
			recordedAt string
		)
		if err := rows.Scan(&sum.ID, &sum.TargetURL, &location, &sum.Parameter, &sum.Payload, &sum.Success, &recordedAt); err != nil {
			return nil, fmt.Errorf("history: scan summary row: %w", err)
		}
		t, err := time.Parse(timeLayout, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("history: parse recorded_at %q: %w", recordedAt, err)
		}
		sum.Location = payload.Location(location)
		sum.RecordedAt = t
		summaries = append(summaries, &sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate rows: %w", err)
	}
	return summaries, nil
}

// Delete removes an entry by ID. Deleting an unknown ID returns ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("history: delete entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("history: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Cleanup removes entries recorded more than maxAge ago and returns how
// many were deleted.
func (s *SQLiteStore) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-maxAge).Format(timeLayout)

	result, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: cleanup entries: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: rows affected: %w", err)
	}
	return deleted, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
