// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package decision defines the routing decision record and its audit store.
// Decisions are immutable once produced; they are persisted so the feedback
// loop can reference them and audits can replay why a request went where.
package decision

import "time"

// Kind tags the decision's overall shape so callers cannot silently mishandle
// a blocked or escalated outcome as a normal route.
type Kind string

const (
	KindRouted    Kind = "routed"
	KindEscalated Kind = "escalated"
	KindBlocked   Kind = "blocked"
)

// RoutingDecision is the routing engine's output.
type RoutingDecision struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`

	Kind Kind `json:"kind"`

	PrimaryAgent string `json:"primary_agent,omitempty"`
	PrimaryRoute string `json:"primary_route,omitempty"`
	// FallbackAgents is ordered by score descending and never contains the
	// primary agent.
	FallbackAgents []string `json:"fallback_agents,omitempty"`

	Confidence         float64 `json:"confidence"`
	SuccessProbability float64 `json:"success_probability"`

	// RecommendedApproach is direct, escalate, multi_agent or human_handoff.
	RecommendedApproach string `json:"recommended_approach"`

	// RequiresAuth is set when a business rule demands authentication before
	// the primary agent may act on the request.
	RequiresAuth bool `json:"requires_auth,omitempty"`

	ExpectedResolutionMinutes int `json:"expected_resolution_minutes,omitempty"`

	// Reasoning is the human-readable audit trail.
	Reasoning []string `json:"reasoning,omitempty"`
	// ContextFactors records the per-factor inputs the decision was made from.
	ContextFactors map[string]string `json:"context_factors,omitempty"`
	// MatchedRules lists the ids of every business rule that matched.
	MatchedRules []string `json:"matched_rules,omitempty"`

	// Degraded is set when only local heuristics informed the decision.
	Degraded bool `json:"degraded"`

	LatencyMs int64 `json:"latency_ms"`
}
