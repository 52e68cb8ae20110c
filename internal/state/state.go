// Copyright (c) 2025 PrivacyGuard Ops
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package state implements the finding lifecycle state machine.
//
// The machine is a pure decision table: one set of legal successor
// statuses per status. It holds no state of its own and touches no
// storage - the findings repository asks it whether a move is legal
// and, on success, hands the resulting TransitionEvent to the audit
// ledger.
package state

import (
	"fmt"

	"github.com/privacyguard/pgo/internal/model"
)

// =============================================================================
// TRANSITION TABLE
// =============================================================================

// allowedTransitions maps each status to its legal successors.
// Every status appears as a key even when it has an empty successor
// set, so iteration over the table covers the whole enumeration.
var allowedTransitions = map[model.FindingStatus][]model.FindingStatus{
	model.StatusDiscovered: {model.StatusConfirmed},
	model.StatusConfirmed:  {model.StatusSubmitted},
	model.StatusSubmitted:  {model.StatusPending, model.StatusVerified},
	model.StatusPending:    {model.StatusVerified, model.StatusResurfaced},
	model.StatusVerified:   {model.StatusResurfaced},
	model.StatusResurfaced: {model.StatusSubmitted}, // opt-out retry
}

// AllowedTransitions returns a copy of the transition table.
func AllowedTransitions() map[model.FindingStatus][]model.FindingStatus {
	out := make(map[model.FindingStatus][]model.FindingStatus, len(allowedTransitions))
	for from, tos := range allowedTransitions {
		out[from] = append([]model.FindingStatus(nil), tos...)
	}
	return out
}

// =============================================================================
// ERRORS
// =============================================================================

// InvalidTransitionError reports an illegal status change. Always
// recoverable: the caller picks another target or aborts.
type InvalidTransitionError struct {
	From model.FindingStatus
	To   model.FindingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

// =============================================================================
// DECISIONS
// =============================================================================

// CanTransition reports whether moving from one status to another is
// legal. Pure set-membership check against the transition table; self
// loops are never legal here (the creation event is a separate,
// reserved construction - see NewCreationEvent).
func CanTransition(from, to model.FindingStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates the requested move and constructs the
// TransitionEvent the audit ledger will consume. The event timestamp
// is taken once, here, so the findings row and the ledger entry carry
// the same instant.
func Transition(findingID string, from, to model.FindingStatus) (model.TransitionEvent, error) {
	if !CanTransition(from, to) {
		return model.TransitionEvent{}, &InvalidTransitionError{From: from, To: to}
	}
	return model.TransitionEvent{
		FindingID:  findingID,
		FromStatus: from,
		ToStatus:   to,
		AtUTC:      model.NowUTC(),
	}, nil
}

// NewCreationEvent builds the reserved discovered->discovered event
// used solely to seed the ledger when a finding is first created.
// This is a deliberate special case, not a general self-loop:
// CanTransition(discovered, discovered) remains false.
func NewCreationEvent(findingID, atUTC string) model.TransitionEvent {
	return model.TransitionEvent{
		FindingID:  findingID,
		FromStatus: model.StatusDiscovered,
		ToStatus:   model.StatusDiscovered,
		AtUTC:      atUTC,
	}
}
