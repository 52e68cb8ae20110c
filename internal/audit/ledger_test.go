// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/privacyguard/pgo/internal/model"
)

// =============================================================================
// IN-MEMORY STORE
// =============================================================================

// memStore is an in-memory EntryStore. It deliberately allows mutation
// through its exported slice so tamper scenarios can be staged.
type memStore struct {
	entries []model.AuditEntry
}

func (s *memStore) LastHash() (string, error) {
	if len(s.entries) == 0 {
		return "", nil
	}
	return s.entries[len(s.entries)-1].EntryHash, nil
}

func (s *memStore) AppendEntry(entry model.AuditEntry) (int64, error) {
	entry.Seq = int64(len(s.entries) + 1)
	s.entries = append(s.entries, entry)
	return entry.Seq, nil
}

func (s *memStore) ListEntries() ([]model.AuditEntry, error) {
	out := make([]model.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

type failingStore struct{ memStore }

func (s *failingStore) LastHash() (string, error) {
	return "", fmt.Errorf("disk on fire")
}

func newTestLedger(store EntryStore) *Ledger {
	return NewLedger(store, nil)
}

func appendN(t *testing.T, ledger *Ledger, n int) {
	t.Helper()
	from := model.StatusDiscovered
	to := model.StatusDiscovered
	for i := 0; i < n; i++ {
		if i > 0 {
			from, to = model.StatusDiscovered, model.StatusConfirmed
		}
		_, err := ledger.Append(model.TransitionEvent{
			FindingID:  "f-1",
			FromStatus: from,
			ToStatus:   to,
			AtUTC:      fmt.Sprintf("2026-08-23T10:00:%02dZ", i),
		}, fmt.Sprintf("note %d", i))
		require.NoError(t, err)
	}
}

// =============================================================================
// APPEND
// =============================================================================

func TestAppendChainsHashes(t *testing.T) {
	store := &memStore{}
	ledger := newTestLedger(store)

	first, err := ledger.Append(model.TransitionEvent{
		FindingID: "f-1", FromStatus: model.StatusDiscovered,
		ToStatus: model.StatusDiscovered, AtUTC: "2026-08-23T10:00:00Z",
	}, "Finding created")
	require.NoError(t, err)
	require.Len(t, first, 64)

	second, err := ledger.Append(model.TransitionEvent{
		FindingID: "f-1", FromStatus: model.StatusDiscovered,
		ToStatus: model.StatusConfirmed, AtUTC: "2026-08-23T10:01:00Z",
	}, "")
	require.NoError(t, err)

	require.Len(t, store.entries, 2)
	require.Equal(t, "", store.entries[0].PrevHash)
	require.Equal(t, first, store.entries[0].EntryHash)
	require.Equal(t, first, store.entries[1].PrevHash)
	require.Equal(t, second, store.entries[1].EntryHash)
	require.NotEqual(t, first, second)
}

func TestAppendSanitisesNotesBeforeHashing(t *testing.T) {
	store := &memStore{}
	ledger := newTestLedger(store)

	_, err := ledger.Append(model.TransitionEvent{
		FindingID: "f-1", FromStatus: model.StatusDiscovered,
		ToStatus: model.StatusDiscovered, AtUTC: "2026-08-23T10:00:00Z",
	}, "broker replied from ops@broker.example")
	require.NoError(t, err)

	// The stored text is the redacted form, and the hash commits to it.
	stored := store.entries[0]
	require.Equal(t, "broker replied from [REDACTED-EMAIL]", stored.Notes)

	_, err = newTestLedger(store).Verify()
	require.NoError(t, err)
}

func TestAppendSurfacesStoreFailure(t *testing.T) {
	ledger := newTestLedger(&failingStore{})
	_, err := ledger.Append(model.TransitionEvent{
		FindingID: "f-1", FromStatus: model.StatusDiscovered,
		ToStatus: model.StatusDiscovered, AtUTC: "2026-08-23T10:00:00Z",
	}, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ledger head")
}

// =============================================================================
// VERIFY
// =============================================================================

func TestVerifyEmptyLedger(t *testing.T) {
	checked, err := newTestLedger(&memStore{}).Verify()
	require.NoError(t, err)
	require.Equal(t, 0, checked)
}

func TestVerifyCleanChain(t *testing.T) {
	store := &memStore{}
	ledger := newTestLedger(store)
	appendN(t, ledger, 10)

	checked, err := ledger.Verify()
	require.NoError(t, err)
	require.Equal(t, 10, checked)
}

func TestVerifyDetectsFieldTamper(t *testing.T) {
	fields := []struct {
		name   string
		mutate func(*model.AuditEntry)
	}{
		{"finding_id", func(e *model.AuditEntry) { e.FindingID = "f-other" }},
		{"from_status", func(e *model.AuditEntry) { e.FromStatus = model.StatusVerified }},
		{"to_status", func(e *model.AuditEntry) { e.ToStatus = model.StatusVerified }},
		{"at_utc", func(e *model.AuditEntry) { e.AtUTC = "2031-01-01T00:00:00Z" }},
		{"notes", func(e *model.AuditEntry) { e.Notes = "history rewritten" }},
	}

	for _, tc := range fields {
		t.Run(tc.name, func(t *testing.T) {
			store := &memStore{}
			ledger := newTestLedger(store)
			appendN(t, ledger, 5)

			tc.mutate(&store.entries[2])

			checked, err := ledger.Verify()
			require.Error(t, err)

			var chainErr *ChainError
			require.ErrorAs(t, err, &chainErr)
			require.Equal(t, int64(3), chainErr.Seq)
			require.Equal(t, 2, checked)
		})
	}
}

func TestVerifyDetectsDeletedEntry(t *testing.T) {
	store := &memStore{}
	ledger := newTestLedger(store)
	appendN(t, ledger, 5)

	// Remove the middle entry; the successor's prev_hash no longer
	// matches the new predecessor's entry_hash.
	store.entries = append(store.entries[:2], store.entries[3:]...)

	_, err := ledger.Verify()
	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	require.Contains(t, chainErr.Reason, "prev_hash")
}

func TestVerifyDetectsTruncationFromHead(t *testing.T) {
	store := &memStore{}
	ledger := newTestLedger(store)
	appendN(t, ledger, 3)

	// Dropping the first entry breaks the genesis prev_hash="" rule.
	store.entries = store.entries[1:]

	_, err := ledger.Verify()
	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	require.Equal(t, int64(2), chainErr.Seq)
}

func TestVerifyDetectsReordering(t *testing.T) {
	store := &memStore{}
	ledger := newTestLedger(store)
	appendN(t, ledger, 4)

	store.entries[1], store.entries[2] = store.entries[2], store.entries[1]

	_, err := ledger.Verify()
	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
}

func TestVerifyDetectsForgedHashPair(t *testing.T) {
	// Rewriting an entry AND recomputing its entry_hash still breaks the
	// chain one link later, because the successor committed to the old
	// hash.
	store := &memStore{}
	ledger := newTestLedger(store)
	appendN(t, ledger, 3)

	victim := &store.entries[1]
	victim.Notes = "forged"
	canonical, err := canonicalBlob(victim.FindingID, victim.FromStatus, victim.ToStatus, victim.AtUTC, victim.Notes)
	require.NoError(t, err)
	victim.EntryHash = chainHash(canonical, victim.PrevHash)

	_, err = ledger.Verify()
	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	require.Equal(t, int64(3), chainErr.Seq)
}

// =============================================================================
// CANONICALISATION
// =============================================================================

func TestCanonicalBlobIsDeterministic(t *testing.T) {
	a, err := canonicalBlob("f-1", model.StatusDiscovered, model.StatusConfirmed, "2026-08-23T10:00:00Z", "n")
	require.NoError(t, err)
	b, err := canonicalBlob("f-1", model.StatusDiscovered, model.StatusConfirmed, "2026-08-23T10:00:00Z", "n")
	require.NoError(t, err)
	require.Equal(t, a, b)

	// Sorted keys, no whitespace.
	require.Equal(t,
		`{"at_utc":"2026-08-23T10:00:00Z","finding_id":"f-1","from_status":"discovered","notes":"n","to_status":"confirmed"}`,
		a)
}

func TestNotesChangeTheHash(t *testing.T) {
	a, err := canonicalBlob("f-1", model.StatusDiscovered, model.StatusConfirmed, "2026-08-23T10:00:00Z", "one")
	require.NoError(t, err)
	b, err := canonicalBlob("f-1", model.StatusDiscovered, model.StatusConfirmed, "2026-08-23T10:00:00Z", "two")
	require.NoError(t, err)
	require.NotEqual(t, chainHash(a, ""), chainHash(b, ""))
}

// =============================================================================
// EXPORT SIGNING
// =============================================================================

func TestSignExportWithExplicitKey(t *testing.T) {
	sig, ok := SignExport([]byte(`[{"seq":1}]`), "secret")
	require.True(t, ok)
	require.Len(t, sig, 64)

	again, ok := SignExport([]byte(`[{"seq":1}]`), "secret")
	require.True(t, ok)
	require.Equal(t, sig, again)

	other, ok := SignExport([]byte(`[{"seq":1}]`), "different")
	require.True(t, ok)
	require.NotEqual(t, sig, other)
}

func TestSignExportWithoutKey(t *testing.T) {
	t.Setenv(ExportHMACKeyEnvVar, "")
	t.Setenv("PGO_VAULT_KEY", "")

	sig, ok := SignExport([]byte("blob"), "")
	require.False(t, ok)
	require.Empty(t, sig)
}

func TestSignExportEnvFallback(t *testing.T) {
	t.Setenv(ExportHMACKeyEnvVar, "")
	t.Setenv("PGO_VAULT_KEY", "vault-secret")

	fromEnv, ok := SignExport([]byte("blob"), "")
	require.True(t, ok)
	explicit, _ := SignExport([]byte("blob"), "vault-secret")
	require.Equal(t, explicit, fromEnv)
}
