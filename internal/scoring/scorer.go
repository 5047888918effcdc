// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scoring provides the decision scorer: it turns candidate agents and
// the gathered routing factors into a weighted, auditable selection with a
// primary route and an ordered fallback chain.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/routecortex/routecortex/internal/config"
	"github.com/routecortex/routecortex/internal/conversation"
	"github.com/routecortex/routecortex/internal/profile"
	"github.com/routecortex/routecortex/internal/registry"
	"github.com/routecortex/routecortex/internal/rules"
	"github.com/routecortex/routecortex/internal/signal"
)

// ErrNoCandidates is returned when the agent catalog is empty: routing without
// a candidate would be a guess, so the request fails instead.
var ErrNoCandidates = errors.New("scoring: no candidate agents configured")

// Approach is the recommended handling approach attached to a decision.
type Approach string

const (
	ApproachDirect       Approach = "direct"
	ApproachEscalate     Approach = "escalate"
	ApproachMultiAgent   Approach = "multi_agent"
	ApproachHumanHandoff Approach = "human_handoff"
)

// Features is the per-candidate factor vector everything else is derived from.
type Features struct {
	HistoryScore      float64 `json:"history_score"`
	ContextScore      float64 `json:"context_score"`
	BusinessScore     float64 `json:"business_score"`
	ComplexityScore   float64 `json:"complexity_score"`
	AvailabilityScore float64 `json:"availability_score"`
}

// Candidate is one agent under consideration.
type Candidate struct {
	Agent                 string   `json:"agent"`
	Route                 string   `json:"route"`
	Style                 string   `json:"style,omitempty"`
	BaseResolutionMinutes int      `json:"base_resolution_minutes,omitempty"`
	Features              Features `json:"features"`
	Composite             float64  `json:"composite"`
	Reasoning             []string `json:"reasoning,omitempty"`
}

// Factors bundles the inputs candidate features are computed from.
type Factors struct {
	Profile     *profile.UserProfile
	Context     *conversation.Context
	Signals     *signal.SignalSet
	RuleOutcome rules.RuleOutcome
}

// Selection is the scorer's output, consumed by the engine when assembling the
// final routing decision.
type Selection struct {
	// PrimaryAgent and PrimaryRoute identify the chosen handler. Empty when
	// the decision is blocked.
	PrimaryAgent string `json:"primary_agent"`
	PrimaryRoute string `json:"primary_route"`
	// Fallbacks is the remaining candidates ordered by score descending. The
	// primary never appears in it.
	Fallbacks []string `json:"fallbacks"`

	Candidates []Candidate `json:"candidates"`

	Confidence         float64  `json:"confidence"`
	SuccessProbability float64  `json:"success_probability"`
	Approach           Approach `json:"approach"`
	// ExpectedResolutionMinutes estimates time to resolution for the primary.
	ExpectedResolutionMinutes int  `json:"expected_resolution_minutes"`
	Blocked                   bool `json:"blocked"`
	// RequiresAuth is set when the applied rule demands authentication before
	// the primary agent may act. A primary is still selected so the caller
	// can dispatch once the requester is verified.
	RequiresAuth bool     `json:"requires_auth"`
	Reasoning    []string `json:"reasoning"`
}

// Scorer computes composite scores under the configured weight policy.
type Scorer struct {
	weights config.ScoringConfig
}

// NewScorer creates a scorer. The weights must already be validated by the
// config layer (non-negative, summing to 1).
func NewScorer(weights config.ScoringConfig) *Scorer {
	return &Scorer{weights: weights}
}

// BuildCandidates derives the feature vector for every agent in the snapshot.
// The snapshot is expected to be name-sorted; candidate order is preserved.
func (s *Scorer) BuildCandidates(agents []registry.AgentInfo, f Factors) []Candidate {
	candidates := make([]Candidate, 0, len(agents))
	for _, a := range agents {
		c := Candidate{
			Agent:                 a.Name,
			Route:                 a.Route,
			Style:                 a.Style,
			BaseResolutionMinutes: a.BaseResolutionMinutes,
			Features: Features{
				HistoryScore:      historyScore(f.Profile, a.Name),
				ContextScore:      contextScore(f, a),
				BusinessScore:     businessScore(f.RuleOutcome, a.Name),
				ComplexityScore:   complexityScore(f, a),
				AvailabilityScore: a.Availability,
			},
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// Score selects the primary agent and fallback chain from the candidates.
// The composite is the documented weighted sum; ties are broken by agent name
// ascending so the decision is reproducible. A rule-mandated route_to target
// is forced as primary regardless of score; block short-circuits with a
// human handoff and no dispatch.
func (s *Scorer) Score(candidates []Candidate, f Factors) (*Selection, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	w := s.weights
	for i := range candidates {
		c := &candidates[i]
		c.Composite = w.HistoryWeight*c.Features.HistoryScore +
			w.ContextWeight*c.Features.ContextScore +
			w.BusinessWeight*c.Features.BusinessScore +
			w.ComplexityWeight*c.Features.ComplexityScore +
			w.AvailabilityWeight*c.Features.AvailabilityScore
		c.Reasoning = append(c.Reasoning, fmt.Sprintf(
			"composite %.3f = %.2f*history(%.2f) + %.2f*context(%.2f) + %.2f*business(%.2f) + %.2f*complexity(%.2f) + %.2f*availability(%.2f)",
			c.Composite,
			w.HistoryWeight, c.Features.HistoryScore,
			w.ContextWeight, c.Features.ContextScore,
			w.BusinessWeight, c.Features.BusinessScore,
			w.ComplexityWeight, c.Features.ComplexityScore,
			w.AvailabilityWeight, c.Features.AvailabilityScore,
		))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Composite != candidates[j].Composite {
			return candidates[i].Composite > candidates[j].Composite
		}
		return candidates[i].Agent < candidates[j].Agent
	})

	sel := &Selection{Candidates: candidates}

	if f.RuleOutcome.PrimaryAction() == rules.ActionBlock {
		sel.Blocked = true
		sel.Approach = ApproachHumanHandoff
		sel.Confidence = 1.0
		sel.Reasoning = append(sel.Reasoning,
			fmt.Sprintf("rule %s blocks automated dispatch; handing off to a human", f.RuleOutcome.Primary.Rule.ID))
		return sel, nil
	}

	if f.RuleOutcome.PrimaryAction() == rules.ActionRequireAuth {
		sel.RequiresAuth = true
		sel.Reasoning = append(sel.Reasoning, fmt.Sprintf(
			"rule %s requires authentication before dispatch", f.RuleOutcome.Primary.Rule.ID))
	}

	primaryIdx := 0
	forcedTarget := ""
	switch f.RuleOutcome.PrimaryAction() {
	case rules.ActionRouteTo, rules.ActionRedirect, rules.ActionEscalate:
		forcedTarget = f.RuleOutcome.PrimaryTarget()
	}
	if forcedTarget != "" {
		found := false
		for i := range candidates {
			if candidates[i].Agent == forcedTarget {
				primaryIdx, found = i, true
				break
			}
		}
		if found {
			sel.Reasoning = append(sel.Reasoning, fmt.Sprintf(
				"rule %s mandates %s as primary; composite scores retained for audit",
				f.RuleOutcome.Primary.Rule.ID, forcedTarget))
		} else {
			sel.Reasoning = append(sel.Reasoning, fmt.Sprintf(
				"rule %s targets unknown agent %s; falling back to scored selection",
				f.RuleOutcome.Primary.Rule.ID, forcedTarget))
		}
	}

	primary := candidates[primaryIdx]
	sel.PrimaryAgent = primary.Agent
	sel.PrimaryRoute = primary.Route
	if f.RuleOutcome.Primary != nil && f.RuleOutcome.Primary.Rule.Route != "" && primary.Agent == forcedTarget {
		sel.PrimaryRoute = f.RuleOutcome.Primary.Rule.Route
	}

	for i := range candidates {
		if i == primaryIdx {
			continue
		}
		sel.Fallbacks = append(sel.Fallbacks, candidates[i].Agent)
	}

	sel.Confidence = s.confidence(candidates, primaryIdx, f)
	sel.Approach = s.approach(candidates, f)
	sel.SuccessProbability = successProbability(f.Profile, primary, sel.Confidence)
	sel.ExpectedResolutionMinutes = expectedResolution(primary, f)
	sel.Reasoning = append(sel.Reasoning, primary.Reasoning...)
	return sel, nil
}

// confidence is a calibrated measure, not a random placeholder: it grows with
// the primary's composite score, the margin over the runner-up, and the
// aggregated signal confidence, and shrinks in degraded mode.
func (s *Scorer) confidence(candidates []Candidate, primaryIdx int, f Factors) float64 {
	primary := candidates[primaryIdx].Composite

	margin := primary
	if len(candidates) > 1 {
		runnerUp := candidates[0].Composite
		if primaryIdx == 0 {
			runnerUp = candidates[1].Composite
		}
		margin = primary - runnerUp
		if margin < 0 {
			// Forced primary scoring below the best candidate.
			margin = 0
		}
	}

	signalConf := 0.0
	degraded := false
	if f.Signals != nil {
		signalConf = f.Signals.Confidence
		degraded = f.Signals.Degraded
	}

	conf := 0.25 + 0.45*primary + 0.15*margin + 0.15*signalConf
	if degraded {
		conf -= 0.15
	}
	return clamp01(conf)
}

// Thresholds of the approach policy.
const (
	multiAgentMargin   = 0.03
	multiAgentMinScore = 0.55
)

func (s *Scorer) approach(candidates []Candidate, f Factors) Approach {
	if f.RuleOutcome.PrimaryAction() == rules.ActionEscalate {
		return ApproachEscalate
	}
	if f.Context != nil && f.Context.EscalationLevel >= s.weights.EscalationThreshold && s.weights.EscalationThreshold > 0 {
		return ApproachEscalate
	}
	if len(candidates) > 1 {
		top, second := candidates[0], candidates[1]
		if top.Composite-second.Composite <= multiAgentMargin &&
			top.Composite >= multiAgentMinScore && second.Composite >= multiAgentMinScore {
			return ApproachMultiAgent
		}
	}
	return ApproachDirect
}

func expectedResolution(primary Candidate, f Factors) int {
	base := primary.BaseResolutionMinutes
	if base <= 0 {
		base = 30
	}
	multiplier := 1.0
	if f.Signals != nil {
		switch f.Signals.Complexity.Level {
		case signal.ComplexitySimple:
			multiplier = 0.6
		case signal.ComplexityComplex:
			multiplier = 1.6
		}
	}
	return int(math.Round(float64(base) * multiplier))
}

// successProbability blends the user's damped historical success rate with
// the decision confidence and the agent's availability.
func successProbability(p *profile.UserProfile, primary Candidate, confidence float64) float64 {
	hist := 0.5
	if p != nil && p.TotalOutcomes(primary.Agent) > 0 {
		hist = p.SuccessRate(primary.Agent)
	}
	return clamp01(0.5*hist + 0.3*confidence + 0.2*primary.Features.AvailabilityScore)
}

// historySamplePool is the outcome count at which the sample damping factor
// saturates at 1.
const historySamplePool = 25

// historyScore rewards agents with more recorded successes for this user.
// The raw success rate is damped for small samples so one lucky outcome does
// not dominate; it is capped at 1.0 and is monotone non-decreasing in the
// success count.
func historyScore(p *profile.UserProfile, agent string) float64 {
	if p == nil {
		return 0
	}
	total := p.TotalOutcomes(agent)
	if total == 0 {
		return 0
	}
	rate := p.SuccessRate(agent)
	damping := math.Log(float64(total)+1) / math.Log(historySamplePool+1)
	if damping > 1 {
		damping = 1
	}
	return clamp01(rate * damping)
}

// contextScore rewards continuity: an ongoing intent the candidate
// specializes in, a calm escalation state, and a stated preference.
func contextScore(f Factors, a registry.AgentInfo) float64 {
	score := 0.4
	if f.Context != nil {
		if f.Context.ActiveIntent != "" && a.Specializes(f.Context.ActiveIntent) {
			score += 0.3
		}
		if f.Context.EscalationLevel == 0 {
			score += 0.2
		}
	} else {
		score += 0.2
	}
	if f.Profile != nil {
		for _, preferred := range f.Profile.Preferences.PreferredAgents {
			if preferred == a.Name {
				score += 0.1
				break
			}
		}
	}
	return clamp01(score)
}

// businessNeutral is the baseline for candidates no rule speaks about.
const businessNeutral = 0.5

func businessScore(outcome rules.RuleOutcome, agent string) float64 {
	if outcome.Primary != nil && outcome.Primary.Rule.Target == agent {
		return 1.0
	}
	return businessNeutral
}

// complexityScore matches the request's complexity against the user's stated
// expertise and the agent's handling style. Complex requests from beginners
// are deliberately steered away from terse-handling agents.
func complexityScore(f Factors, a registry.AgentInfo) float64 {
	level := signal.ComplexityModerate
	if f.Signals != nil {
		level = f.Signals.Complexity.Level
	}
	expertise := "intermediate"
	if f.Profile != nil && f.Profile.Preferences.ComplexityLevel != "" {
		expertise = f.Profile.Preferences.ComplexityLevel
	}

	switch level {
	case signal.ComplexitySimple:
		return 0.8
	case signal.ComplexityComplex:
		if expertise == "beginner" && a.Style == "terse" {
			return 0.2
		}
		if a.Style == "detailed" {
			return 0.9
		}
		if expertise == "expert" {
			return 0.8
		}
		return 0.5
	default:
		if a.Style == "detailed" {
			return 0.8
		}
		return 0.7
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
