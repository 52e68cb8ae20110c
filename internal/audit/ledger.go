// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit implements the append-only, hash-chained transition
// ledger - the core integrity guarantee of PGO.
//
// How it works:
//
//  1. Every state transition produces a model.TransitionEvent.
//  2. Append sanitises the notes through the PII boundary, serialises
//     the entry canonically (sorted keys, no whitespace), and computes
//     entry_hash = SHA-256(canonical || prev_hash).
//  3. The entry is persisted as an immutable row. Rows are never
//     updated or deleted - the storage layer enforces this a second
//     time with triggers, independently of this package's contract.
//
// Verify replays all entries in sequence order, recomputing each hash.
// If any stored field was edited, or a row was deleted or reordered,
// the chain breaks and a ChainError pinpoints the first bad sequence.
package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/privacyguard/pgo/internal/model"
	"github.com/privacyguard/pgo/internal/pii"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// ExportHMACKeyEnvVar is the environment variable consulted for the
// optional export-signing key. The hash chain is the primary
// guarantee; the export HMAC is defence in depth only.
const ExportHMACKeyEnvVar = "PGO_AUDIT_HMAC_KEY"

// =============================================================================
// ERRORS
// =============================================================================

// ChainError reports a broken hash chain. This is not automatically
// recoverable: the ledger must be treated as compromised until the
// integrity incident is investigated.
type ChainError struct {
	Seq    int64
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("audit chain broken at seq=%d: %s", e.Seq, e.Reason)
}

// =============================================================================
// STORE CONTRACT
// =============================================================================

// EntryStore is the persistence collaborator for the ledger. The store
// MUST additionally reject updates and deletes against historical rows
// at its own layer, so a caller bypassing the Ledger API still cannot
// rewrite history.
type EntryStore interface {
	// LastHash returns the entry_hash of the most recent entry, or ""
	// for an empty ledger.
	LastHash() (string, error)
	// AppendEntry persists one fully populated entry and returns its
	// assigned sequence number.
	AppendEntry(entry model.AuditEntry) (int64, error)
	// ListEntries returns all entries in ascending sequence order.
	ListEntries() ([]model.AuditEntry, error)
}

// Sanitizer prepares free-text notes before they are hashed and
// persisted. Injected so tests can substitute a fake; production use
// is the PII guard.
type Sanitizer func(string) string

// =============================================================================
// LEDGER
// =============================================================================

// Ledger appends canonicalised, hash-chained entries to an EntryStore
// and verifies the chain. Appends are serialised by a mutex so two
// goroutines in one process cannot race the head-hash read; callers in
// separate processes are expected to coordinate externally
// (single-writer model).
type Ledger struct {
	store    EntryStore
	sanitize Sanitizer
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewLedger creates a ledger over the given store, sanitising notes
// through the PII guard.
func NewLedger(store EntryStore, logger *slog.Logger) *Ledger {
	return NewLedgerWithSanitizer(store, pii.SanitizeNotes, logger)
}

// NewLedgerWithSanitizer creates a ledger with an explicit notes
// sanitizer (for tests).
func NewLedgerWithSanitizer(store EntryStore, sanitize Sanitizer, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, sanitize: sanitize, logger: logger}
}

// Append records one transition event and returns its entry hash.
// Notes pass through the PII boundary before they are canonicalised,
// so the hash commits to the sanitised text that is actually stored.
func (l *Ledger) Append(event model.TransitionEvent, notes string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	notes = l.sanitize(notes)

	prevHash, err := l.store.LastHash()
	if err != nil {
		return "", fmt.Errorf("failed to read ledger head: %w", err)
	}

	canonical, err := canonicalBlob(event.FindingID, event.FromStatus, event.ToStatus, event.AtUTC, notes)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalise entry: %w", err)
	}
	entryHash := chainHash(canonical, prevHash)

	seq, err := l.store.AppendEntry(model.AuditEntry{
		FindingID:  event.FindingID,
		FromStatus: event.FromStatus,
		ToStatus:   event.ToStatus,
		AtUTC:      event.AtUTC,
		EntryHash:  entryHash,
		PrevHash:   prevHash,
		Notes:      notes,
	})
	if err != nil {
		return "", fmt.Errorf("failed to append audit entry: %w", err)
	}

	l.logger.Info("audit_event_appended",
		"finding_id", event.FindingID,
		"transition", fmt.Sprintf("%s->%s", event.FromStatus, event.ToStatus),
		"entry_hash", shortHash(entryHash),
		"seq", seq,
	)
	return entryHash, nil
}

// Verify replays the full chain, recomputing every hash. It returns
// the number of entries checked. The first mismatch aborts immediately
// with a ChainError carrying the offending sequence number: a bad
// prev_hash linkage detects deletion, reordering, or insertion; a bad
// entry_hash detects any field tamper, notes included.
func (l *Ledger) Verify() (int, error) {
	entries, err := l.store.ListEntries()
	if err != nil {
		return 0, fmt.Errorf("failed to read ledger: %w", err)
	}

	expectedPrev := ""
	checked := 0
	for _, entry := range entries {
		if entry.PrevHash != expectedPrev {
			return checked, &ChainError{
				Seq: entry.Seq,
				Reason: fmt.Sprintf("expected prev_hash=%s but found %s",
					shortHash(expectedPrev), shortHash(entry.PrevHash)),
			}
		}

		canonical, err := canonicalBlob(entry.FindingID, entry.FromStatus, entry.ToStatus, entry.AtUTC, entry.Notes)
		if err != nil {
			return checked, fmt.Errorf("failed to canonicalise entry seq=%d: %w", entry.Seq, err)
		}
		recomputed := chainHash(canonical, entry.PrevHash)
		if recomputed != entry.EntryHash {
			return checked, &ChainError{
				Seq: entry.Seq,
				Reason: fmt.Sprintf("recomputed hash=%s does not match stored=%s",
					shortHash(recomputed), shortHash(entry.EntryHash)),
			}
		}

		expectedPrev = entry.EntryHash
		checked++
	}

	l.logger.Info("audit_chain_verified", "events_checked", checked)
	return checked, nil
}

// Export returns the full ledger in ascending sequence order. Plain
// projection - no recomputation, no mutation.
func (l *Ledger) Export() ([]model.AuditEntry, error) {
	return l.store.ListEntries()
}

// =============================================================================
// EXPORT SIGNING
// =============================================================================

// SignExport computes a hex HMAC-SHA256 over an exported blob as a
// second, independent integrity check. If key is empty the environment
// is consulted (PGO_AUDIT_HMAC_KEY, then PGO_VAULT_KEY). A missing key
// is not an error - the chain is the primary guarantee - so the second
// return value reports whether a signature was produced.
func SignExport(blob []byte, key string) (string, bool) {
	if key == "" {
		key = strings.TrimSpace(os.Getenv(ExportHMACKeyEnvVar))
	}
	if key == "" {
		key = strings.TrimSpace(os.Getenv(pii.VaultKeyEnvVar))
	}
	if key == "" {
		return "", false
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(blob)
	return hex.EncodeToString(mac.Sum(nil)), true
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

// canonicalBlob is the deterministic serialisation every hash commits
// to. Marshalling a map gives sorted keys and no whitespace, so the
// exact same bytes are reproduced when a row read back from storage is
// re-hashed during verification, regardless of field ordering at the
// call site.
func canonicalBlob(findingID string, from, to model.FindingStatus, atUTC, notes string) (string, error) {
	blob, err := json.Marshal(map[string]string{
		"at_utc":      atUTC,
		"finding_id":  findingID,
		"from_status": string(from),
		"notes":       notes,
		"to_status":   string(to),
	})
	if err != nil {
		return "", err
	}
	return string(blob), nil
}

func chainHash(canonical, prevHash string) string {
	sum := sha256.Sum256([]byte(canonical + prevHash))
	return hex.EncodeToString(sum[:])
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
