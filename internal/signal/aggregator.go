// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package signal

import (
	"context"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/routecortex/routecortex/internal/conversation"
	"github.com/routecortex/routecortex/internal/profile"
)

// Aggregator fans requests out to the configured classifiers and folds their
// outputs together with local pattern heuristics into a SignalSet.
type Aggregator struct {
	classifiers []Classifier
	timeout     time.Duration
}

// NewAggregator creates an aggregator over the given classifiers. timeout
// bounds each individual classifier call.
func NewAggregator(classifiers []Classifier, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Aggregator{classifiers: classifiers, timeout: timeout}
}

// Analyze builds the SignalSet for one message. External classifiers run
// concurrently, each under its own timeout; a classifier's failure excludes it
// from the aggregate rather than aborting the analysis. When every classifier
// fails the set is filled from the local keyword heuristic and tagged degraded.
// The caller's cancellation propagates to all in-flight classifier calls.
func (a *Aggregator) Analyze(ctx context.Context, content string, prof *profile.UserProfile, conv *conversation.Context) (*SignalSet, error) {
	set := &SignalSet{
		Entities:  extractEntities(content),
		Sentiment: detectSentiment(content),
		Urgency:   detectUrgency(content),
	}
	set.Complexity = deriveComplexity(content, len(set.Entities))

	results := make([]*Classification, len(a.classifiers))
	failures := make([]string, len(a.classifiers))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range a.classifiers {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, a.timeout)
			defer cancel()

			res, err := c.Classify(callCtx, content)
			if err != nil {
				failures[i] = fmt.Sprintf("classifier %s excluded: %v", c.Name(), err)
				log.Debugf("classifier %s failed: %v", c.Name(), err)
				return nil
			}
			if res.Source == "" {
				res.Source = c.Name()
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		// Caller cancelled the whole analysis; a degraded guess would be
		// returned to nobody.
		return nil, err
	}

	for _, f := range failures {
		if f != "" {
			set.Notes = append(set.Notes, f)
		}
	}
	for _, r := range results {
		if r != nil {
			set.ClassifierResults = append(set.ClassifierResults, *r)
		}
	}
	// Stable result order regardless of arrival order.
	sort.Slice(set.ClassifierResults, func(i, j int) bool {
		return set.ClassifierResults[i].Source < set.ClassifierResults[j].Source
	})

	if len(set.ClassifierResults) == 0 {
		a.fillFromLocalPatterns(set, content)
	} else if best, ok := set.Best(); ok {
		set.Intent = best.Intent
		set.Confidence = best.Confidence
		set.SuggestedAgent = best.Agent
	}

	// Continuity: a session with an established intent and no fresh signal
	// keeps its active intent.
	if set.Intent == "" && conv != nil && conv.ActiveIntent != "" {
		set.Intent = conv.ActiveIntent
		set.Confidence = conv.IntentConfidence
		set.Notes = append(set.Notes, "intent carried over from conversation context")
	}

	// Urgency and sentiment are session state, not per-message state: a calm
	// follow-up does not reset what earlier messages established. The more
	// severe of the stored and fresh values wins.
	if conv != nil {
		if urgencyRank[string(conv.Urgency)] > urgencyRank[set.Urgency] {
			set.Urgency = string(conv.Urgency)
			set.Notes = append(set.Notes, "urgency carried over from conversation context")
		}
		if sentimentRank[string(conv.Sentiment)] > sentimentRank[set.Sentiment] {
			set.Sentiment = string(conv.Sentiment)
			set.Notes = append(set.Notes, "sentiment carried over from conversation context")
		}
	}

	// Preferred agents sharpen the suggestion when the classifiers are split.
	if prof != nil && set.SuggestedAgent == "" && len(prof.Preferences.PreferredAgents) > 0 {
		set.SuggestedAgent = prof.Preferences.PreferredAgents[0]
		set.Notes = append(set.Notes, "agent suggestion from user preference")
	}

	return set, nil
}

// fillFromLocalPatterns applies the declarative keyword tables when no
// external classification is available.
func (a *Aggregator) fillFromLocalPatterns(set *SignalSet, content string) {
	set.Degraded = true
	set.Notes = append(set.Notes, "all external classifiers unavailable, local pattern heuristic used")

	pattern, hits := matchLocalIntent(content)
	if pattern == nil {
		set.Intent = "general_inquiry"
		set.Confidence = 0.2
		return
	}

	set.Intent = pattern.Intent
	set.Confidence = pattern.Confidence
	set.SuggestedAgent = pattern.Agent
	set.LocalPatterns = hits
	set.ClassifierResults = append(set.ClassifierResults, Classification{
		Agent:      pattern.Agent,
		Confidence: pattern.Confidence,
		Intent:     pattern.Intent,
		Source:     "local-patterns",
	})
}
