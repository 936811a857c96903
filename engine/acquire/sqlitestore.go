package acquire

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	_ "modernc.org/sqlite"
)

const processingLogSchema = `CREATE TABLE IF NOT EXISTS processing_log (
	url         TEXT PRIMARY KEY,
	timestamp   TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT,
	retries     INTEGER NOT NULL DEFAULT 0,
	output_path TEXT
)`

// SQLiteLogStore keeps the processing log in a SQLite table.
type SQLiteLogStore struct {
	db *sql.DB
}

// OpenSQLiteLogStore opens or creates the database at path.
func OpenSQLiteLogStore(ctx context.Context, path string) (*SQLiteLogStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("acquire: create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("acquire: open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("acquire: apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, processingLogSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("acquire: create schema: %w", err)
	}
	return &SQLiteLogStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteLogStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get implements LogStore.
func (s *SQLiteLogStore) Get(ctx context.Context, url string) (domain.ProcessingLogEntry, bool, error) {
	return getEntry(ctx, s.db, url)
}

// Put implements LogStore.
func (s *SQLiteLogStore) Put(ctx context.Context, e domain.ProcessingLogEntry) error {
	return putEntry(ctx, s.db, e)
}

// Update implements LogStore inside one transaction.
func (s *SQLiteLogStore) Update(ctx context.Context, url string, f UpdateFunc) (domain.ProcessingLogEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ProcessingLogEntry{}, fmt.Errorf("acquire: begin log update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prev, found, err := getEntry(ctx, tx, url)
	if err != nil {
		return domain.ProcessingLogEntry{}, err
	}
	next, write := f(prev, found)
	if !write {
		return prev, nil
	}
	next.URL = url
	if err := putEntry(ctx, tx, next); err != nil {
		return domain.ProcessingLogEntry{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ProcessingLogEntry{}, fmt.Errorf("acquire: commit log update: %w", err)
	}
	return next, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getEntry(ctx context.Context, q querier, url string) (domain.ProcessingLogEntry, bool, error) {
	row := q.QueryRowContext(ctx,
		`SELECT url, timestamp, status, error, retries, output_path FROM processing_log WHERE url = ?`, url)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProcessingLogEntry{}, false, nil
	}
	if err != nil {
		return domain.ProcessingLogEntry{}, false, fmt.Errorf("acquire: get log entry: %w", err)
	}
	return entry, true, nil
}

func putEntry(ctx context.Context, q querier, e domain.ProcessingLogEntry) error {
	if e.URL == "" {
		return errors.New("acquire: log entry without url")
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO processing_log (url, timestamp, status, error, retries, output_path)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
		   timestamp = excluded.timestamp,
		   status = excluded.status,
		   error = excluded.error,
		   retries = excluded.retries,
		   output_path = excluded.output_path`,
		e.URL, e.Timestamp.UTC().Format(time.RFC3339Nano), string(e.Status),
		nullString(e.Error), e.Retries, nullString(e.OutputPath))
	if err != nil {
		return fmt.Errorf("acquire: put log entry: %w", err)
	}
	return nil
}

// List implements LogStore.
func (s *SQLiteLogStore) List(ctx context.Context) ([]domain.ProcessingLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, timestamp, status, error, retries, output_path FROM processing_log ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("acquire: list log: %w", err)
	}
	defer rows.Close()

	var out []domain.ProcessingLogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("acquire: scan log entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (domain.ProcessingLogEntry, error) {
	var (
		e          domain.ProcessingLogEntry
		ts, status string
		errText    sql.NullString
		outputPath sql.NullString
	)
	if err := sc.Scan(&e.URL, &ts, &status, &errText, &e.Retries, &outputPath); err != nil {
		return e, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return e, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	e.Timestamp = parsed
	e.Status = domain.Status(status)
	e.Error = errText.String
	e.OutputPath = outputPath.String
	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
