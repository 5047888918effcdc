// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package signal

import (
	"regexp"
	"strings"
)

// IntentPattern maps keyword matches to an intent and a suggested agent.
// The tables below are the local fallback heuristic: deliberately declarative
// so routing behavior stays auditable without reading code paths.
type IntentPattern struct {
	Intent     string
	Agent      string
	Confidence float64
	Keywords   []string
}

// localIntentPatterns is evaluated in order; the first pattern with a keyword
// hit wins. Order therefore encodes precedence.
var localIntentPatterns = []IntentPattern{
	{
		Intent:     "billing",
		Agent:      "BillingAgent",
		Confidence: 0.6,
		Keywords: []string{
			"invoice", "billing", "charge", "charged", "payment", "refund",
			"subscription", "receipt", "overcharged", "pricing",
		},
	},
	{
		Intent:     "technical_issue",
		Agent:      "TechnicalSpecialistAgent",
		Confidence: 0.6,
		Keywords: []string{
			"error", "bug", "crash", "broken", "not working", "doesn't work",
			"stack trace", "exception", "timeout", "500", "fails",
		},
	},
	{
		Intent:     "account",
		Agent:      "AccountAgent",
		Confidence: 0.55,
		Keywords: []string{
			"password", "login", "log in", "sign in", "locked out", "account",
			"two-factor", "2fa", "reset",
		},
	},
	{
		Intent:     "advanced_features",
		Agent:      "SolutionsAgent",
		Confidence: 0.55,
		Keywords: []string{
			"advanced", "sso", "single sign-on", "api access", "custom integration",
			"webhook", "audit log", "enterprise feature",
		},
	},
	{
		Intent:     "general_inquiry",
		Agent:      "GeneralSupportAgent",
		Confidence: 0.4,
		Keywords: []string{
			"how do i", "how to", "question", "help", "where", "what is",
		},
	},
}

// matchLocalIntent runs the pattern table against lowercased content and
// returns the winning pattern plus the keywords that matched it.
func matchLocalIntent(content string) (*IntentPattern, []string) {
	lower := strings.ToLower(content)
	for i := range localIntentPatterns {
		p := &localIntentPatterns[i]
		var hits []string
		for _, kw := range p.Keywords {
			if strings.Contains(lower, kw) {
				hits = append(hits, kw)
			}
		}
		if len(hits) > 0 {
			return p, hits
		}
	}
	return nil, nil
}

// sentiment keyword tables, checked from strongest to weakest.
var (
	frustratedTerms = []string{
		"ridiculous", "unacceptable", "furious", "fed up", "sick of",
		"third time", "again and again", "terrible", "worst",
	}
	negativeTerms = []string{
		"not working", "broken", "disappointed", "failed", "annoyed",
		"frustrated", "unhappy", "problem",
	}
	positiveTerms = []string{
		"thanks", "thank you", "great", "love", "perfect", "awesome",
	}
)

func detectSentiment(content string) string {
	lower := strings.ToLower(content)
	for _, t := range frustratedTerms {
		if strings.Contains(lower, t) {
			return "frustrated"
		}
	}
	for _, t := range negativeTerms {
		if strings.Contains(lower, t) {
			return "negative"
		}
	}
	for _, t := range positiveTerms {
		if strings.Contains(lower, t) {
			return "positive"
		}
	}
	return "neutral"
}

// urgency keyword tables, checked from most to least urgent.
var (
	criticalTerms = []string{
		"production down", "outage", "security breach", "data loss",
		"everyone is blocked", "completely down",
	}
	highTerms = []string{
		"urgent", "asap", "immediately", "right now", "critical",
	}
	mediumTerms = []string{
		"soon", "today", "blocked", "deadline",
	}
)

func detectUrgency(content string) string {
	lower := strings.ToLower(content)
	for _, t := range criticalTerms {
		if strings.Contains(lower, t) {
			return "critical"
		}
	}
	for _, t := range highTerms {
		if strings.Contains(lower, t) {
			return "high"
		}
	}
	for _, t := range mediumTerms {
		if strings.Contains(lower, t) {
			return "medium"
		}
	}
	return "low"
}

// urgencyRank and sentimentRank order the detected levels by severity so
// session state and fresh per-message signals can be compared. Unknown values
// rank lowest.
var (
	urgencyRank = map[string]int{
		"low":      0,
		"medium":   1,
		"high":     2,
		"critical": 3,
	}
	sentimentRank = map[string]int{
		"neutral":    0,
		"positive":   1,
		"negative":   2,
		"frustrated": 3,
	}
)

// entityPatterns extracts structured values from free text.
var entityPatterns = []struct {
	Kind    string
	Pattern *regexp.Regexp
}{
	{"email", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{"order_id", regexp.MustCompile(`(?i)\b(?:ord|order)[-# ]?(\d{4,})\b`)},
	{"amount", regexp.MustCompile(`\$\d+(?:\.\d{2})?`)},
	{"ticket_id", regexp.MustCompile(`(?i)\b(?:tkt|ticket)[-# ]?(\d{3,})\b`)},
}

func extractEntities(content string) map[string]string {
	entities := make(map[string]string)
	for _, ep := range entityPatterns {
		if m := ep.Pattern.FindString(content); m != "" {
			entities[ep.Kind] = m
		}
	}
	if len(entities) == 0 {
		return nil
	}
	return entities
}
