// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage owns the SQLite database: connection lifecycle,
// schema creation, the findings table, and the append-only events
// table the audit ledger writes to.
//
// Design decisions:
//   - WAL journal mode, so ledger appends do not block status reads.
//   - Foreign keys enforced.
//   - CREATE TABLE IF NOT EXISTS - idempotent, safe on every start.
//   - Append-only enforcement lives IN the database: triggers abort
//     any UPDATE or DELETE against events rows. This is deliberately
//     redundant with the ledger's own contract, so a caller bypassing
//     the ledger API still cannot rewrite history.
package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SchemaVersion is bumped when tables change.
const SchemaVersion = 1

const schemaSQL = `
-- Findings: each broker profile being tracked
CREATE TABLE IF NOT EXISTS findings (
    finding_id   TEXT PRIMARY KEY,
    broker_name  TEXT NOT NULL,
    url          TEXT,
    status       TEXT NOT NULL DEFAULT 'discovered',
    created_utc  TEXT NOT NULL,
    updated_utc  TEXT NOT NULL
);

-- Append-only event log (the audit trail)
CREATE TABLE IF NOT EXISTS events (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    finding_id   TEXT    NOT NULL,
    from_status  TEXT    NOT NULL,
    to_status    TEXT    NOT NULL,
    at_utc       TEXT    NOT NULL,
    entry_hash   TEXT    NOT NULL,
    prev_hash    TEXT    NOT NULL DEFAULT '',
    notes        TEXT    NOT NULL DEFAULT '',
    FOREIGN KEY (finding_id) REFERENCES findings(finding_id)
);

-- Schema metadata
CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- History is immutable: reject mutation of ledger rows at the storage
-- layer, independently of the ledger's own API contract.
CREATE TRIGGER IF NOT EXISTS events_no_update
BEFORE UPDATE ON events
BEGIN
    SELECT RAISE(ABORT, 'events table is append-only');
END;

CREATE TRIGGER IF NOT EXISTS events_no_delete
BEFORE DELETE ON events
BEGIN
    SELECT RAISE(ABORT, 'events table is append-only');
END;
`

// DB wraps the SQLite connection shared by the findings repository and
// the event store.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the PGO database at dbPath and ensures the
// schema, triggers, and schema-version metadata exist.
func Open(dbPath string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single-writer usage model: one connection avoids SQLITE_BUSY
	// between the findings repository and the event store.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := conn.Exec(
		"INSERT OR IGNORE INTO meta(key, value) VALUES (?, ?)",
		"schema_version", fmt.Sprintf("%d", SchemaVersion),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to record schema version: %w", err)
	}

	logger.Debug("database_opened", "path", dbPath, "schema_version", SchemaVersion)
	return &DB{conn: conn, logger: logger}, nil
}

// Conn exposes the underlying connection for tests and tooling.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
