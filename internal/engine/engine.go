// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package engine orchestrates one routing decision end to end: it gathers the
// user's profile and conversation state, aggregates classifier signals,
// evaluates the business rule table, scores the agent catalog and persists the
// resulting decision for the feedback loop.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/routecortex/routecortex/internal/config"
	"github.com/routecortex/routecortex/internal/conversation"
	"github.com/routecortex/routecortex/internal/decision"
	"github.com/routecortex/routecortex/internal/profile"
	"github.com/routecortex/routecortex/internal/registry"
	"github.com/routecortex/routecortex/internal/rules"
	"github.com/routecortex/routecortex/internal/scoring"
	"github.com/routecortex/routecortex/internal/signal"
)

// Request is one incoming message to route.
type Request struct {
	// SessionID groups messages into a conversation. Required.
	SessionID string `json:"session_id"`
	// UserID identifies the requester. Required.
	UserID string `json:"user_id"`
	// Content is the free-text message to route. Required.
	Content string `json:"content"`
	// Metadata carries optional caller-supplied context, recorded on the
	// decision's audit trail but never interpreted.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Engine produces routing decisions. All dependencies are injected so tests
// can substitute in-memory stores and static classifiers.
type Engine struct {
	cfg        *config.Config
	profiles   profile.Store
	contexts   *conversation.Store
	agents     *registry.AgentRegistry
	rules      *rules.Engine
	scorer     *scoring.Scorer
	aggregator *signal.Aggregator
	decisions  *decision.Store
}

// New wires an engine from its collaborators.
func New(
	cfg *config.Config,
	profiles profile.Store,
	contexts *conversation.Store,
	agents *registry.AgentRegistry,
	ruleEngine *rules.Engine,
	aggregator *signal.Aggregator,
	decisions *decision.Store,
) *Engine {
	return &Engine{
		cfg:        cfg,
		profiles:   profiles,
		contexts:   contexts,
		agents:     agents,
		rules:      ruleEngine,
		scorer:     scoring.NewScorer(cfg.Scoring),
		aggregator: aggregator,
		decisions:  decisions,
	}
}

// Rules exposes the rule engine for the admin reload endpoint.
func (e *Engine) Rules() *rules.Engine {
	return e.rules
}

// Route makes one routing decision for the given request. The whole call runs
// under the configured decision budget; in-flight classifier calls are
// cancelled when it expires. Identical inputs against identical state yield an
// identical decision apart from its id, timestamp and latency.
func (e *Engine) Route(ctx context.Context, req Request) (*decision.RoutingDecision, error) {
	start := time.Now()

	if budget := e.cfg.Signals.DecisionBudget; budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	prof, err := e.profiles.GetOrCreate(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("engine: load profile %s: %w", req.UserID, err)
	}
	conv, err := e.contexts.GetOrCreate(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("engine: load conversation %s: %w", req.SessionID, err)
	}

	set, err := e.aggregator.Analyze(ctx, req.Content, prof, conv)
	if err != nil {
		return nil, fmt.Errorf("engine: signal analysis: %w", err)
	}

	outcome := e.rules.Evaluate(rules.Env{
		Intent:           set.Intent,
		IntentConfidence: set.Confidence,
		Complexity:       string(set.Complexity.Level),
		Degraded:         set.Degraded,
		Tier:             prof.Tier.String(),
		TierRank:         int(prof.Tier),
		Role:             prof.Role,
		EscalationLevel:  conv.EscalationLevel,
		Sentiment:        set.Sentiment,
		Urgency:          set.Urgency,
		MessageCount:     len(conv.Messages) + 1,
	})

	// The scorer sees the conversation as it stands after this message, so
	// specialty matching responds to the intent just derived.
	if set.Intent != "" {
		conv.ActiveIntent = set.Intent
		conv.IntentConfidence = set.Confidence
	}

	factors := scoring.Factors{
		Profile:     prof,
		Context:     conv,
		Signals:     set,
		RuleOutcome: outcome,
	}
	candidates := e.scorer.BuildCandidates(e.agents.Snapshot(), factors)
	sel, err := e.scorer.Score(candidates, factors)
	if err != nil {
		return nil, err
	}

	d := e.assemble(req, prof, conv, set, outcome, sel)
	d.LatencyMs = time.Since(start).Milliseconds()

	if err := e.decisions.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("engine: persist decision %s: %w", d.ID, err)
	}

	e.commitConversation(req, set, d)

	log.WithFields(log.Fields{
		"decision_id": d.ID,
		"session_id":  d.SessionID,
		"agent":       d.PrimaryAgent,
		"kind":        d.Kind,
		"confidence":  d.Confidence,
		"degraded":    d.Degraded,
		"latency_ms":  d.LatencyMs,
	}).Info("routing decision made")

	return d, nil
}

// assemble turns the scorer's selection into the persisted decision record.
func (e *Engine) assemble(req Request, prof *profile.UserProfile, conv *conversation.Context, set *signal.SignalSet, outcome rules.RuleOutcome, sel *scoring.Selection) *decision.RoutingDecision {
	kind := decision.KindRouted
	switch {
	case sel.Blocked:
		kind = decision.KindBlocked
	case sel.Approach == scoring.ApproachEscalate:
		kind = decision.KindEscalated
	}

	factors := map[string]string{
		"tier":             prof.Tier.String(),
		"role":             prof.Role,
		"intent":           set.Intent,
		"sentiment":        set.Sentiment,
		"urgency":          set.Urgency,
		"complexity":       string(set.Complexity.Level),
		"escalation_level": fmt.Sprintf("%d", conv.EscalationLevel),
	}
	for k, v := range req.Metadata {
		factors["meta."+k] = v
	}

	var matched []string
	for _, m := range outcome.Matched {
		matched = append(matched, m.Rule.ID)
	}

	reasoning := append([]string(nil), sel.Reasoning...)
	reasoning = append(reasoning, set.Notes...)

	return &decision.RoutingDecision{
		ID:                        uuid.NewString(),
		SessionID:                 req.SessionID,
		UserID:                    req.UserID,
		Timestamp:                 time.Now().UTC(),
		Kind:                      kind,
		PrimaryAgent:              sel.PrimaryAgent,
		PrimaryRoute:              sel.PrimaryRoute,
		FallbackAgents:            sel.Fallbacks,
		Confidence:                sel.Confidence,
		SuccessProbability:        sel.SuccessProbability,
		RecommendedApproach:       string(sel.Approach),
		RequiresAuth:              sel.RequiresAuth,
		ExpectedResolutionMinutes: sel.ExpectedResolutionMinutes,
		Reasoning:                 reasoning,
		ContextFactors:            factors,
		MatchedRules:              matched,
		Degraded:                  set.Degraded,
	}
}

// commitConversation appends the routed message and carries the signal-derived
// state forward so the next message in the session sees it.
func (e *Engine) commitConversation(req Request, set *signal.SignalSet, d *decision.RoutingDecision) {
	msg := conversation.Message{
		ID:            uuid.NewString(),
		Content:       req.Content,
		Sender:        conversation.SenderUser,
		Timestamp:     time.Now().UTC(),
		Intent:        set.Intent,
		Entities:      set.Entities,
		Sentiment:     conversation.Sentiment(set.Sentiment),
		HandlingAgent: d.PrimaryAgent,
	}
	if err := e.contexts.AppendMessage(req.SessionID, msg); err != nil {
		log.WithError(err).Warn("append message failed")
	}
	if set.Intent != "" {
		if err := e.contexts.SetActiveIntent(req.SessionID, set.Intent, set.Confidence); err != nil {
			log.WithError(err).Warn("set active intent failed")
		}
	}
	if err := e.contexts.SetUrgency(req.SessionID, conversation.Urgency(set.Urgency)); err != nil {
		log.WithError(err).Warn("set urgency failed")
	}
}
