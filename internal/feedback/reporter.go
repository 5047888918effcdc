// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package feedback closes the learning loop: once the caller has observed the
// real-world result of a routing decision it reports the outcome here, which
// updates the user's historical counters and relaxes the session's escalation
// state.
package feedback

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/routecortex/routecortex/internal/conversation"
	"github.com/routecortex/routecortex/internal/decision"
	"github.com/routecortex/routecortex/internal/profile"
)

var (
	// ErrDuplicateFeedback marks a repeat report for the same decision.
	// Duplicates are logged and ignored; counters are never double-bumped.
	ErrDuplicateFeedback = errors.New("feedback: duplicate report for decision")
	// ErrInvalidOutcome marks an outcome outside {success, failure}.
	ErrInvalidOutcome = errors.New("feedback: invalid outcome")
)

// Outcome is the caller-observed result of acting on a decision.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// ParseOutcome validates an outcome string.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeSuccess, OutcomeFailure:
		return Outcome(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
}

// Reporter applies reported outcomes to the profile store and the session's
// escalation level. Reports are idempotent per decision id.
type Reporter struct {
	decisions *decision.Store
	profiles  profile.Store
	contexts  *conversation.Store
}

// NewReporter wires the feedback loop to its stores.
func NewReporter(decisions *decision.Store, profiles profile.Store, contexts *conversation.Store) *Reporter {
	return &Reporter{decisions: decisions, profiles: profiles, contexts: contexts}
}

// Report records the outcome of a routing decision. A successful outcome
// increments the chosen agent's success counter and decrements the session's
// escalation level (floor zero); a failure increments the failure counter and
// raises escalation. A duplicate report returns ErrDuplicateFeedback without
// touching any counter.
func (r *Reporter) Report(ctx context.Context, decisionID string, outcome Outcome, satisfaction *float64) error {
	if _, err := ParseOutcome(string(outcome)); err != nil {
		return err
	}

	d, err := r.decisions.Get(ctx, decisionID)
	if err != nil {
		return err
	}

	already, err := r.decisions.MarkReported(ctx, decisionID)
	if err != nil {
		return err
	}
	if already {
		log.WithField("decision_id", decisionID).Warn("duplicate feedback ignored")
		return fmt.Errorf("%w: %s", ErrDuplicateFeedback, decisionID)
	}

	success := outcome == OutcomeSuccess

	// Blocked decisions dispatched no agent; there is no counter to update.
	if d.PrimaryAgent != "" {
		if err := r.profiles.RecordOutcome(d.UserID, d.PrimaryAgent, success, satisfaction); err != nil {
			return fmt.Errorf("feedback: record outcome for %s: %w", decisionID, err)
		}
	}

	delta := 1
	if success {
		delta = -1
	}
	if err := r.contexts.AdjustEscalation(d.SessionID, delta); err != nil {
		return fmt.Errorf("feedback: adjust escalation for %s: %w", decisionID, err)
	}

	log.Debugf("feedback recorded for decision %s (agent %s, outcome %s)", decisionID, d.PrimaryAgent, outcome)
	return nil
}
