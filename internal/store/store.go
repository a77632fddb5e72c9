// Package store owns the relational side of the analysis: schema bootstrap,
// ingest of quality-report extracts, the aggregation queries the derived
// metrics are computed from, and persistence of finished analysis runs.
//
// Two drivers are supported: modernc.org/sqlite for a local analysis file
// and pgx for a shared Postgres source. All SQL stays in the common subset
// of both dialects; anything dialect-specific (string aggregation, upsert
// syntax) is done in Go instead.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"pjimarket/internal/types"
)

// Store wraps the analysis database.
type Store struct {
	db     *sql.DB
	driver string
	dsn    string
	mu     sync.RWMutex
}

// Open opens (and for sqlite, creates) the analysis database and ensures
// the schema exists.
func Open(driver, dsn string) (*Store, error) {
	var db *sql.DB
	var err error

	switch driver {
	case "sqlite":
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		// Single sequential pass; one connection keeps sqlite happy.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
		}
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set journal_mode: %w", err)
		}
	case "postgres":
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres database: %w", err)
		}
		db.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	s := &Store{db: db, driver: driver, dsn: dsn}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the configured DSN (the file path for sqlite).
func (s *Store) Path() string {
	return s.dsn
}

// initSchema creates the tables if they do not exist.
func (s *Store) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS hospitals (
			ik TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			beds INTEGER NOT NULL DEFAULT 0 CHECK (beds >= 0),
			state TEXT NOT NULL,
			hospital_type TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS departments (
			ik TEXT NOT NULL,
			code TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (ik, code)
		)`,
		`CREATE TABLE IF NOT EXISTS procedures (
			ik TEXT NOT NULL,
			year INTEGER NOT NULL,
			code TEXT NOT NULL,
			cnt INTEGER NOT NULL CHECK (cnt >= 0),
			PRIMARY KEY (ik, year, code)
		)`,
		`CREATE TABLE IF NOT EXISTS diagnoses (
			ik TEXT NOT NULL,
			year INTEGER NOT NULL,
			code TEXT NOT NULL,
			cnt INTEGER NOT NULL CHECK (cnt >= 0),
			PRIMARY KEY (ik, year, code)
		)`,
		`CREATE TABLE IF NOT EXISTS text_signals (
			ik TEXT NOT NULL,
			year INTEGER NOT NULL,
			field TEXT NOT NULL,
			content TEXT NOT NULL,
			PRIMARY KEY (ik, year, field)
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			year_from INTEGER NOT NULL,
			year_to INTEGER NOT NULL,
			result_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_procedures_year ON procedures(year)`,
		`CREATE INDEX IF NOT EXISTS idx_procedures_code ON procedures(code)`,
		`CREATE INDEX IF NOT EXISTS idx_diagnoses_code ON diagnoses(code)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// TableCounts reports row counts per table for the status command.
func (s *Store) TableCounts(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, table := range []string{"hospitals", "departments", "procedures", "diagnoses", "text_signals", "runs"} {
		var n int
		// Table names come from the fixed list above, never from input.
		row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table)
		if err := row.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// SaveRun persists a finished analysis result.
func (s *Store) SaveRun(ctx context.Context, result *types.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	yearFrom, yearTo := 0, 0
	if len(result.Years) > 0 {
		yearFrom = result.Years[0]
		yearTo = result.Years[len(result.Years)-1]
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, year_from, year_to, result_json) VALUES ($1, $2, $3, $4, $5)`,
		result.RunID, result.GeneratedAt.UTC(), yearFrom, yearTo, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", result.RunID, err)
	}
	return nil
}

// LatestRun returns the most recent persisted analysis result, or nil if
// none exists.
func (s *Store) LatestRun(ctx context.Context) (*types.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	row := s.db.QueryRowContext(ctx,
		`SELECT result_json FROM runs ORDER BY created_at DESC, id DESC LIMIT 1`)
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}
	var result types.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to decode run payload: %w", err)
	}
	return &result, nil
}

// LastRunInfo returns run ID and timestamp of the latest run for status
// output without decoding the full payload.
func (s *Store) LastRunInfo(ctx context.Context) (string, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	var created time.Time
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM runs ORDER BY created_at DESC, id DESC LIMIT 1`)
	if err := row.Scan(&id, &created); err != nil {
		if err == sql.ErrNoRows {
			return "", time.Time{}, nil
		}
		return "", time.Time{}, fmt.Errorf("failed to load run info: %w", err)
	}
	return id, created, nil
}
