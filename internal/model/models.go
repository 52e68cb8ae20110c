// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the core domain types for PGO: findings,
// finding statuses, transition events, and audit ledger entries.
package model

import "time"

// =============================================================================
// FINDING STATUS
// =============================================================================

// FindingStatus is the lifecycle state of a broker finding.
// The set is closed; legality of moves between statuses is governed by
// the transition table in the state package, not by ordering.
type FindingStatus string

const (
	// StatusDiscovered is the initial state of every finding.
	StatusDiscovered FindingStatus = "discovered"
	// StatusConfirmed means the listing was manually verified to be the user.
	StatusConfirmed FindingStatus = "confirmed"
	// StatusSubmitted means an opt-out request was filed with the broker.
	StatusSubmitted FindingStatus = "submitted"
	// StatusPending means the broker acknowledged but has not completed removal.
	StatusPending FindingStatus = "pending"
	// StatusVerified means the listing was confirmed removed.
	StatusVerified FindingStatus = "verified"
	// StatusResurfaced means a previously removed listing reappeared.
	StatusResurfaced FindingStatus = "resurfaced"
)

// AllStatuses lists every valid FindingStatus value.
var AllStatuses = []FindingStatus{
	StatusDiscovered,
	StatusConfirmed,
	StatusSubmitted,
	StatusPending,
	StatusVerified,
	StatusResurfaced,
}

// Valid reports whether s is a member of the closed status set.
func (s FindingStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus converts a stored string into a FindingStatus.
func ParseStatus(raw string) (FindingStatus, bool) {
	s := FindingStatus(raw)
	return s, s.Valid()
}

// =============================================================================
// FINDING
// =============================================================================

// Finding is one data-broker listing being tracked through the opt-out
// lifecycle. Owned exclusively by the findings repository; the audit
// ledger only observes state changes as events.
type Finding struct {
	FindingID  string        `json:"finding_id"`
	BrokerName string        `json:"broker_name"`
	URL        string        `json:"url,omitempty"` // empty means not set
	Status     FindingStatus `json:"status"`
	CreatedUTC string        `json:"created_utc"`
	UpdatedUTC string        `json:"updated_utc"`
}

// =============================================================================
// TRANSITION EVENT
// =============================================================================

// TransitionEvent is the immutable hand-off between the findings
// repository and the audit ledger. It is produced once per legal
// transition and consumed exactly once to create a ledger entry; it is
// never persisted on its own.
type TransitionEvent struct {
	FindingID  string        `json:"finding_id"`
	FromStatus FindingStatus `json:"from_status"`
	ToStatus   FindingStatus `json:"to_status"`
	AtUTC      string        `json:"at_utc"` // RFC 3339, UTC
}

// =============================================================================
// AUDIT ENTRY
// =============================================================================

// AuditEntry is one row of the append-only hash-chained ledger.
// EntryHash = SHA-256(canonical(entry fields) || PrevHash); the first
// entry's PrevHash is the empty string. Entries are write-once.
type AuditEntry struct {
	Seq        int64         `json:"seq"`
	FindingID  string        `json:"finding_id"`
	FromStatus FindingStatus `json:"from_status"`
	ToStatus   FindingStatus `json:"to_status"`
	AtUTC      string        `json:"at_utc"`
	EntryHash  string        `json:"entry_hash"`
	PrevHash   string        `json:"prev_hash"`
	Notes      string        `json:"notes"`
}

// =============================================================================
// EVIDENCE RECEIPT
// =============================================================================

// EvidenceReceipt is returned by the vault after storing evidence.
// IntegrityHash is the SHA-256 of the plaintext, computed before
// encryption so it stays verifiable even if the vault key is lost.
// The hash is NOT stored inside the encrypted blob; callers that want
// it checked later record it through the audit ledger's notes channel.
type EvidenceReceipt struct {
	FindingID     string `json:"finding_id"`
	IntegrityHash string `json:"integrity_hash"`
	StoredAtUTC   string `json:"stored_at_utc"`
	Path          string `json:"path"`
}

// NowUTC returns the current time as the RFC 3339 UTC string used for
// every timestamp that enters the ledger or the findings table.
func NowUTC() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
