// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rules provides the business rule engine: an ordered,
// priority-sorted set of declarative predicate→action rules that can force or
// override routing independent of the scored candidates.
package rules

// Action is what a matching rule does to routing.
type Action string

const (
	ActionRouteTo     Action = "route_to"
	ActionEscalate    Action = "escalate"
	ActionRequireAuth Action = "require_auth"
	ActionBlock       Action = "block"
	ActionRedirect    Action = "redirect"
)

// validActions is the closed set of allowed rule actions.
var validActions = map[Action]struct{}{
	ActionRouteTo:     {},
	ActionEscalate:    {},
	ActionRequireAuth: {},
	ActionBlock:       {},
	ActionRedirect:    {},
}

// BusinessRule is one declarative routing rule. Rules are loaded once at
// startup from a static YAML table; changing the table requires an explicit
// reload, never ad hoc mutation.
type BusinessRule struct {
	// ID uniquely identifies the rule; ties in priority are broken by ID
	// ascending so evaluation stays deterministic.
	ID string `yaml:"id" json:"id"`
	// Priority orders evaluation; higher evaluates first.
	Priority int `yaml:"priority" json:"priority"`
	// When is the expr predicate over the evaluation environment.
	When string `yaml:"when" json:"when"`
	// Action is what the rule does when the predicate holds.
	Action Action `yaml:"action" json:"action"`
	// Target is the agent the action applies to, where relevant.
	Target string `yaml:"target,omitempty" json:"target,omitempty"`
	// Route overrides the target agent's default route, where relevant.
	Route string `yaml:"route,omitempty" json:"route,omitempty"`
	// Description is the human-readable audit string.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Env is the typed evaluation environment rule predicates run against.
// Field names are the vocabulary available inside `when` expressions.
type Env struct {
	// Signal-derived features.
	Intent           string  `expr:"Intent"`
	IntentConfidence float64 `expr:"IntentConfidence"`
	Complexity       string  `expr:"Complexity"`
	Degraded         bool    `expr:"Degraded"`

	// Profile features.
	Tier     string `expr:"Tier"`
	TierRank int    `expr:"TierRank"`
	Role     string `expr:"Role"`

	// Conversation features.
	EscalationLevel int    `expr:"EscalationLevel"`
	Sentiment       string `expr:"Sentiment"`
	Urgency         string `expr:"Urgency"`
	MessageCount    int    `expr:"MessageCount"`
}

// RuleMatch records one rule whose predicate held, for audit.
type RuleMatch struct {
	Rule BusinessRule `json:"rule"`
}

// RuleOutcome is the rule engine's evaluation result. All matching rules are
// recorded even when only the highest-priority one is applied.
type RuleOutcome struct {
	// Matched lists every matching rule, sorted by (priority desc, id asc).
	Matched []RuleMatch `json:"matched,omitempty"`
	// Primary is the applied rule, nil when nothing matched.
	Primary *RuleMatch `json:"primary,omitempty"`
	// OverridesDefault is false when zero rules matched and the decision
	// scorer proceeds unconstrained.
	OverridesDefault bool `json:"overrides_default"`
}

// PrimaryAction returns the applied rule's action, or "" when unconstrained.
func (o *RuleOutcome) PrimaryAction() Action {
	if o.Primary == nil {
		return ""
	}
	return o.Primary.Rule.Action
}

// PrimaryTarget returns the applied rule's target agent, or "".
func (o *RuleOutcome) PrimaryTarget() string {
	if o.Primary == nil {
		return ""
	}
	return o.Primary.Rule.Target
}
