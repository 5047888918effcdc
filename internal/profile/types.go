// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package profile provides per-user profile storage with routing outcome history.
// Profiles are created on a user's first request and mutated only by the
// feedback loop; deletion is governed by external retention policy.
package profile

import (
	"fmt"
	"time"
)

// Tier is the user's subscription tier. Tiers are ordered: Free < Pro < Enterprise.
type Tier int

const (
	TierFree Tier = iota
	TierPro
	TierEnterprise
)

// String returns the canonical tier name.
func (t Tier) String() string {
	switch t {
	case TierPro:
		return "Pro"
	case TierEnterprise:
		return "Enterprise"
	default:
		return "Free"
	}
}

// ParseTier maps a tier name to its ordered value. Unknown names default to Free.
func ParseTier(s string) Tier {
	switch s {
	case "Pro", "pro":
		return TierPro
	case "Enterprise", "enterprise":
		return TierEnterprise
	default:
		return TierFree
	}
}

// MarshalJSON encodes the tier as its canonical name.
func (t Tier) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", t.String())), nil
}

// UnmarshalJSON decodes a tier name.
func (t *Tier) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	*t = ParseTier(s)
	return nil
}

// Preferences captures the user's stated interaction preferences.
type Preferences struct {
	// CommunicationStyle is "concise" or "detailed".
	CommunicationStyle string `json:"communication_style"`
	// ComplexityLevel is the user's self-reported expertise: "beginner",
	// "intermediate" or "expert".
	ComplexityLevel string `json:"complexity_level"`
	// PreferredAgents lists agents the user has opted to favor.
	PreferredAgents []string `json:"preferred_agents,omitempty"`
}

// SatisfactionWindow bounds the recent satisfaction ring buffer.
const SatisfactionWindow = 20

// UserProfile holds identity, preferences and the running tally of historical
// routing outcomes per agent. Counts never go negative; satisfaction scores are
// bounded to the last SatisfactionWindow entries.
type UserProfile struct {
	UserID      string          `json:"user_id"`
	Tier        Tier            `json:"tier"`
	Role        string          `json:"role"`
	Permissions map[string]bool `json:"permissions,omitempty"`
	Preferences Preferences     `json:"preferences"`

	// SuccessCount and FailureCount tally routing outcomes per agent.
	SuccessCount map[string]int `json:"success_count"`
	FailureCount map[string]int `json:"failure_count"`

	// RecentSatisfaction is a bounded window of the latest satisfaction scores.
	RecentSatisfaction []float64 `json:"recent_satisfaction,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserProfile returns a profile with zero history and default preferences.
func NewUserProfile(userID string) *UserProfile {
	now := time.Now()
	return &UserProfile{
		UserID:       userID,
		Tier:         TierFree,
		Role:         "End User",
		Permissions:  make(map[string]bool),
		SuccessCount: make(map[string]int),
		FailureCount: make(map[string]int),
		Preferences: Preferences{
			CommunicationStyle: "detailed",
			ComplexityLevel:    "intermediate",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TotalOutcomes returns the number of recorded outcomes for an agent.
func (p *UserProfile) TotalOutcomes(agent string) int {
	return p.SuccessCount[agent] + p.FailureCount[agent]
}

// SuccessRate returns the agent's historical success rate for this user,
// or 0 if no outcomes have been recorded.
func (p *UserProfile) SuccessRate(agent string) float64 {
	total := p.TotalOutcomes(agent)
	if total == 0 {
		return 0
	}
	return float64(p.SuccessCount[agent]) / float64(total)
}

// AverageSatisfaction returns the mean of the recent satisfaction window,
// or 0 if no scores have been recorded.
func (p *UserProfile) AverageSatisfaction() float64 {
	if len(p.RecentSatisfaction) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range p.RecentSatisfaction {
		sum += s
	}
	return sum / float64(len(p.RecentSatisfaction))
}

// Clone returns a deep copy so callers never share mutable state with the store.
func (p *UserProfile) Clone() *UserProfile {
	cp := *p
	cp.Permissions = make(map[string]bool, len(p.Permissions))
	for k, v := range p.Permissions {
		cp.Permissions[k] = v
	}
	cp.SuccessCount = make(map[string]int, len(p.SuccessCount))
	for k, v := range p.SuccessCount {
		cp.SuccessCount[k] = v
	}
	cp.FailureCount = make(map[string]int, len(p.FailureCount))
	for k, v := range p.FailureCount {
		cp.FailureCount[k] = v
	}
	cp.RecentSatisfaction = append([]float64(nil), p.RecentSatisfaction...)
	cp.Preferences.PreferredAgents = append([]string(nil), p.Preferences.PreferredAgents...)
	return &cp
}
