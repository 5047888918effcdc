// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package signal provides the signal aggregation stage of the routing engine.
// It consults external classifiers concurrently, runs local pattern heuristics,
// and normalizes everything into a single SignalSet feature vector.
package signal

// Classification is the normalized output of one classifier, external or local.
type Classification struct {
	// Agent is the classifier's suggested handler.
	Agent string `json:"agent"`
	// Confidence is the classifier's confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Intent is the detected intent label.
	Intent string `json:"intent"`
	// Source names the classifier that produced this result.
	Source string `json:"source"`
}

// ComplexityLevel buckets a request's complexity.
type ComplexityLevel string

const (
	ComplexitySimple   ComplexityLevel = "simple"
	ComplexityModerate ComplexityLevel = "moderate"
	ComplexityComplex  ComplexityLevel = "complex"
)

// Complexity is the derived complexity signal. The score is computed from an
// explicit rule table over token count, entity count, and marker terms, so the
// derivation stays inspectable.
type Complexity struct {
	Level ComplexityLevel `json:"level"`
	Score float64         `json:"score"`
	// Tokens is the tokenizer count the score was derived from.
	Tokens int `json:"tokens"`
	// Markers lists the high-complexity marker terms that matched.
	Markers []string `json:"markers,omitempty"`
}

// SignalSet is the aggregated feature vector handed to the rule engine and
// decision scorer.
type SignalSet struct {
	// ClassifierResults holds every classifier result that arrived in time,
	// including the local pattern result when it contributed.
	ClassifierResults []Classification `json:"classifier_results"`

	// Intent and Confidence describe the winning classification.
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	// SuggestedAgent is the winning classification's agent suggestion.
	SuggestedAgent string `json:"suggested_agent,omitempty"`

	// LocalPatterns names the local heuristic patterns that matched.
	LocalPatterns []string `json:"local_patterns,omitempty"`

	// Entities maps entity kind to extracted value.
	Entities map[string]string `json:"entities,omitempty"`

	Sentiment  string     `json:"sentiment"`
	Urgency    string     `json:"urgency"`
	Complexity Complexity `json:"complexity"`

	// Degraded is set when no external classifier produced a usable result and
	// the set was filled from local heuristics alone.
	Degraded bool `json:"degraded"`

	// Notes records per-classifier failures for the decision's reasoning trail.
	Notes []string `json:"notes,omitempty"`
}

// Best returns the highest-confidence classification, ties broken by source
// name ascending. The tie-break does not rely on the aggregator's sorted
// result order, so hand-built sets pick deterministically too. Returns false
// when no result is present.
func (s *SignalSet) Best() (Classification, bool) {
	if len(s.ClassifierResults) == 0 {
		return Classification{}, false
	}
	best := s.ClassifierResults[0]
	for _, c := range s.ClassifierResults[1:] {
		if c.Confidence > best.Confidence ||
			(c.Confidence == best.Confidence && c.Source < best.Source) {
			best = c
		}
	}
	return best, true
}
