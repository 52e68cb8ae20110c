// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"fmt"

	"github.com/privacyguard/pgo/internal/model"
	"github.com/privacyguard/pgo/internal/pii"
	"github.com/privacyguard/pgo/internal/state"
)

// NotFoundError reports an unknown finding ID. Recoverable.
type NotFoundError struct {
	FindingID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("finding not found: %s", e.FindingID)
}

// FindingsRepository is the thin CRUD layer over the findings table.
// Every externally supplied identifier, name, and URL passes the PII
// guard's whitelist before touching SQLite, and every state change
// goes through the state machine. The repository never touches the
// events table - handing the returned TransitionEvent to the audit
// ledger is the caller's job.
type FindingsRepository struct {
	db *DB
}

// NewFindingsRepository creates a repository over an open database.
func NewFindingsRepository(db *DB) *FindingsRepository {
	return &FindingsRepository{db: db}
}

// Create inserts a new finding in the discovered state and returns it
// along with the reserved creation event that seeds the ledger.
func (r *FindingsRepository) Create(findingID, brokerName, url string) (model.Finding, model.TransitionEvent, error) {
	findingID, err := pii.ValidateFindingID(findingID)
	if err != nil {
		return model.Finding{}, model.TransitionEvent{}, err
	}
	brokerName, err = pii.ValidateBrokerName(brokerName)
	if err != nil {
		return model.Finding{}, model.TransitionEvent{}, err
	}
	url, err = pii.ValidateURL(url)
	if err != nil {
		return model.Finding{}, model.TransitionEvent{}, err
	}

	now := model.NowUTC()
	_, err = r.db.conn.Exec(
		`INSERT INTO findings (finding_id, broker_name, url, status, created_utc, updated_utc)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		findingID, brokerName, nullable(url), string(model.StatusDiscovered), now, now,
	)
	if err != nil {
		return model.Finding{}, model.TransitionEvent{}, fmt.Errorf("failed to insert finding: %w", err)
	}

	finding := model.Finding{
		FindingID:  findingID,
		BrokerName: brokerName,
		URL:        url,
		Status:     model.StatusDiscovered,
		CreatedUTC: now,
		UpdatedUTC: now,
	}
	return finding, state.NewCreationEvent(findingID, now), nil
}

// Get fetches a single finding by ID.
func (r *FindingsRepository) Get(findingID string) (model.Finding, error) {
	findingID, err := pii.ValidateFindingID(findingID)
	if err != nil {
		return model.Finding{}, err
	}

	row := r.db.conn.QueryRow(
		`SELECT finding_id, broker_name, url, status, created_utc, updated_utc
		 FROM findings WHERE finding_id = ?`, findingID,
	)
	finding, err := scanFinding(row)
	if err == sql.ErrNoRows {
		return model.Finding{}, &NotFoundError{FindingID: findingID}
	}
	if err != nil {
		return model.Finding{}, fmt.Errorf("failed to load finding: %w", err)
	}
	return finding, nil
}

// List returns all findings ordered by creation date.
func (r *FindingsRepository) List() ([]model.Finding, error) {
	rows, err := r.db.conn.Query(
		`SELECT finding_id, broker_name, url, status, created_utc, updated_utc
		 FROM findings ORDER BY created_utc`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []model.Finding
	for rows.Next() {
		finding, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan finding: %w", err)
		}
		findings = append(findings, finding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate findings: %w", err)
	}
	return findings, nil
}

// Transition moves a finding to a new status. The transition is
// validated by the state machine before the row is touched; the
// returned TransitionEvent carries the same timestamp written to
// updated_utc, so the ledger entry and the row agree on the instant.
func (r *FindingsRepository) Transition(findingID string, to model.FindingStatus) (model.TransitionEvent, error) {
	finding, err := r.Get(findingID)
	if err != nil {
		return model.TransitionEvent{}, err
	}

	event, err := state.Transition(finding.FindingID, finding.Status, to)
	if err != nil {
		return model.TransitionEvent{}, err
	}

	_, err = r.db.conn.Exec(
		"UPDATE findings SET status = ?, updated_utc = ? WHERE finding_id = ?",
		string(to), event.AtUTC, finding.FindingID,
	)
	if err != nil {
		return model.TransitionEvent{}, fmt.Errorf("failed to update finding: %w", err)
	}
	return event, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFinding(s scanner) (model.Finding, error) {
	var f model.Finding
	var url sql.NullString
	var status string
	if err := s.Scan(&f.FindingID, &f.BrokerName, &url, &status, &f.CreatedUTC, &f.UpdatedUTC); err != nil {
		return model.Finding{}, err
	}
	f.URL = url.String
	parsed, ok := model.ParseStatus(status)
	if !ok {
		return model.Finding{}, fmt.Errorf("corrupt finding row %s: unknown status %q", f.FindingID, status)
	}
	f.Status = parsed
	return f, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
