// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"fmt"

	"github.com/privacyguard/pgo/internal/model"
)

// EventStore persists audit ledger entries. It implements
// audit.EntryStore over the events table; the table's triggers provide
// the storage-side half of the append-only guarantee.
type EventStore struct {
	db *DB
}

// NewEventStore creates an event store over an open database.
func NewEventStore(db *DB) *EventStore {
	return &EventStore{db: db}
}

// LastHash returns the entry_hash of the most recent event, or "" for
// an empty ledger.
func (s *EventStore) LastHash() (string, error) {
	var hash string
	err := s.db.conn.QueryRow(
		"SELECT entry_hash FROM events ORDER BY seq DESC LIMIT 1",
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read ledger head: %w", err)
	}
	return hash, nil
}

// AppendEntry inserts one ledger row and returns its sequence number.
// Entries are never updated afterwards; the events triggers enforce
// that below this API.
func (s *EventStore) AppendEntry(entry model.AuditEntry) (int64, error) {
	res, err := s.db.conn.Exec(
		`INSERT INTO events (finding_id, from_status, to_status, at_utc, entry_hash, prev_hash, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.FindingID,
		string(entry.FromStatus),
		string(entry.ToStatus),
		entry.AtUTC,
		entry.EntryHash,
		entry.PrevHash,
		entry.Notes,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read event sequence: %w", err)
	}
	return seq, nil
}

// ListEntries returns all ledger rows in ascending sequence order.
func (s *EventStore) ListEntries() ([]model.AuditEntry, error) {
	rows, err := s.db.conn.Query(
		`SELECT seq, finding_id, from_status, to_status, at_utc, entry_hash, prev_hash, notes
		 FROM events ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var from, to string
		if err := rows.Scan(&e.Seq, &e.FindingID, &from, &to, &e.AtUTC, &e.EntryHash, &e.PrevHash, &e.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.FromStatus = model.FindingStatus(from)
		e.ToStatus = model.FindingStatus(to)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return entries, nil
}
