// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/privacyguard/pgo/internal/model"
)

// =============================================================================
// TRANSITION TABLE
// =============================================================================

func TestEveryStatusHasATableEntry(t *testing.T) {
	table := AllowedTransitions()
	for _, status := range model.AllStatuses {
		_, ok := table[status]
		require.True(t, ok, "status %s missing from transition table", status)
	}
	require.Len(t, table, len(model.AllStatuses))
}

func TestLegalTransitions(t *testing.T) {
	legal := []struct {
		from, to model.FindingStatus
	}{
		{model.StatusDiscovered, model.StatusConfirmed},
		{model.StatusConfirmed, model.StatusSubmitted},
		{model.StatusSubmitted, model.StatusPending},
		{model.StatusSubmitted, model.StatusVerified},
		{model.StatusPending, model.StatusVerified},
		{model.StatusPending, model.StatusResurfaced},
		{model.StatusVerified, model.StatusResurfaced},
		{model.StatusResurfaced, model.StatusSubmitted},
	}
	for _, tc := range legal {
		require.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}
}

func TestIllegalTransitionsExhaustive(t *testing.T) {
	// Everything not in the legal set must be rejected, including every
	// self loop.
	legal := map[[2]model.FindingStatus]bool{
		{model.StatusDiscovered, model.StatusConfirmed}:  true,
		{model.StatusConfirmed, model.StatusSubmitted}:   true,
		{model.StatusSubmitted, model.StatusPending}:     true,
		{model.StatusSubmitted, model.StatusVerified}:    true,
		{model.StatusPending, model.StatusVerified}:      true,
		{model.StatusPending, model.StatusResurfaced}:    true,
		{model.StatusVerified, model.StatusResurfaced}:   true,
		{model.StatusResurfaced, model.StatusSubmitted}:  true,
	}

	for _, from := range model.AllStatuses {
		for _, to := range model.AllStatuses {
			got := CanTransition(from, to)
			require.Equal(t, legal[[2]model.FindingStatus{from, to}], got,
				"%s -> %s", from, to)
		}
	}
}

func TestSelfLoopsAreNeverLegal(t *testing.T) {
	for _, status := range model.AllStatuses {
		require.False(t, CanTransition(status, status), "%s self loop", status)
	}
}

func TestUnknownStatusHasNoSuccessors(t *testing.T) {
	require.False(t, CanTransition(model.FindingStatus("bogus"), model.StatusConfirmed))
	require.False(t, CanTransition(model.StatusDiscovered, model.FindingStatus("bogus")))
}

func TestAllowedTransitionsReturnsACopy(t *testing.T) {
	table := AllowedTransitions()
	table[model.StatusDiscovered] = append(table[model.StatusDiscovered], model.StatusVerified)

	// The internal table must be unaffected by caller mutation.
	require.False(t, CanTransition(model.StatusDiscovered, model.StatusVerified))
}

// =============================================================================
// EVENT CONSTRUCTION
// =============================================================================

func TestTransitionBuildsEvent(t *testing.T) {
	event, err := Transition("f-1", model.StatusDiscovered, model.StatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, "f-1", event.FindingID)
	require.Equal(t, model.StatusDiscovered, event.FromStatus)
	require.Equal(t, model.StatusConfirmed, event.ToStatus)
	require.NotEmpty(t, event.AtUTC)
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	_, err := Transition("f-1", model.StatusDiscovered, model.StatusVerified)
	require.Error(t, err)

	var invalidErr *InvalidTransitionError
	require.ErrorAs(t, err, &invalidErr)
	require.Equal(t, model.StatusDiscovered, invalidErr.From)
	require.Equal(t, model.StatusVerified, invalidErr.To)
	require.Contains(t, invalidErr.Error(), "discovered -> verified")
}

func TestTransitionRejectsSkippingAhead(t *testing.T) {
	// discovered -> submitted skips confirmation and must fail.
	_, err := Transition("f-1", model.StatusDiscovered, model.StatusSubmitted)
	require.Error(t, err)
}

func TestNewCreationEvent(t *testing.T) {
	at := model.NowUTC()
	event := NewCreationEvent("f-9", at)
	require.Equal(t, "f-9", event.FindingID)
	require.Equal(t, model.StatusDiscovered, event.FromStatus)
	require.Equal(t, model.StatusDiscovered, event.ToStatus)
	require.Equal(t, at, event.AtUTC)

	// The creation event is reserved; the table never legalises it.
	require.False(t, CanTransition(model.StatusDiscovered, model.StatusDiscovered))
}

func TestOptOutRetryLoop(t *testing.T) {
	// resurfaced -> submitted reopens the opt-out workflow; from there
	// the normal submitted successors apply again.
	require.True(t, CanTransition(model.StatusResurfaced, model.StatusSubmitted))
	require.True(t, CanTransition(model.StatusSubmitted, model.StatusVerified))
}
