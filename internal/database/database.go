// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

// Package database provides the embedded DuckDB store and the analytical
// queries (cohort retention, activation funnel, product KPIs, experiment
// metric extraction) that run against it.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/config"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/logging"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	stmtMu sync.RWMutex
	stmts  map[string]*sql.Stmt
}

// New creates a new database connection and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure parent directory exists for file-backed databases.
	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	// Disable auto-install/auto-load to prevent hangs in restricted network
	// environments. No extensions are needed for the analytics queries.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:  conn,
		cfg:   cfg,
		stmts: make(map[string]*sql.Stmt),
	}

	if err := db.createTables(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", numThreads).
		Msg("Database opened")

	return db, nil
}

// Conn exposes the underlying connection for tests and migrations.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes cached prepared statements and the database connection.
func (db *DB) Close() error {
	db.stmtMu.Lock()
	for _, stmt := range db.stmts {
		closeQuietly(stmt)
	}
	db.stmts = nil
	db.stmtMu.Unlock()

	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// prepared returns a cached prepared statement for the query, preparing it on
// first use. The analytics queries are few and fixed, so the cache is unbounded.
func (db *DB) prepared(ctx context.Context, query string) (*sql.Stmt, error) {
	db.stmtMu.RLock()
	stmt, ok := db.stmts[query]
	db.stmtMu.RUnlock()
	if ok {
		return stmt, nil
	}

	db.stmtMu.Lock()
	defer db.stmtMu.Unlock()
	if stmt, ok := db.stmts[query]; ok {
		return stmt, nil
	}

	stmt, err := db.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", err)
	}
	if db.stmts == nil {
		db.stmts = make(map[string]*sql.Stmt)
	}
	db.stmts[query] = stmt
	return stmt, nil
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// createTables creates the event and dimension tables. Loads are
// whole-dataset rebuilds, so tables are truncated rather than migrated.
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS events (
			user_id INTEGER NOT NULL,
			item_id INTEGER NOT NULL,
			kind VARCHAR NOT NULL,
			rating DOUBLE NOT NULL,
			ts TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			gender VARCHAR,
			age INTEGER,
			occupation INTEGER,
			zip_code VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS movies (
			movie_id INTEGER PRIMARY KEY,
			title VARCHAR,
			genres VARCHAR
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user_ts ON events(user_id, ts)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// ensureContext creates a context with 30-second timeout if none provided.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}

	return ctx, func() {}
}

// EventCount returns the number of rows in the events table.
func (db *DB) EventCount(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// GetEventSample returns up to limit events ordered by timestamp, for the
// dashboard's raw-data preview.
func (db *DB) GetEventSample(ctx context.Context, limit int) ([]models.Event, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT user_id, item_id, kind, rating, ts FROM events ORDER BY ts, user_id, item_id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query event sample: %w", err)
	}
	defer closeQuietly(rows)

	events := make([]models.Event, 0, limit)
	for rows.Next() {
		var e models.Event
		var kind string
		if err := rows.Scan(&e.UserID, &e.ItemID, &kind, &e.Rating, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.Kind = models.EventKind(kind)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use this for cleanup operations in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() // Explicitly ignore error - cleanup is best-effort
	}
}
