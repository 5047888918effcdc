// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry provides centralized management of the downstream agent
// catalog. It tracks each agent's route, specialties and current availability
// so the decision scorer always works from a consistent snapshot.
package registry

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/routecortex/routecortex/internal/config"
)

// AgentInfo describes a downstream agent capable of processing routed requests.
type AgentInfo struct {
	// Name is the unique agent identifier, e.g. "BillingAgent".
	Name string `json:"name"`
	// Route is the logical endpoint/path associated with the agent.
	Route string `json:"route"`
	// Specialties lists the intents this agent specializes in.
	Specialties []string `json:"specialties,omitempty"`
	// Style is the agent's handling style: "terse" or "detailed".
	Style string `json:"style,omitempty"`
	// BaseResolutionMinutes is the expected resolution time at medium complexity.
	BaseResolutionMinutes int `json:"base_resolution_minutes,omitempty"`
	// Availability is the agent's current load/readiness signal in [0,1].
	Availability float64 `json:"availability"`
}

// Specializes reports whether the agent lists intent among its specialties.
func (a *AgentInfo) Specializes(intent string) bool {
	for _, s := range a.Specialties {
		if s == intent {
			return true
		}
	}
	return false
}

// AgentRegistry maintains the agent catalog. Reads take a snapshot so the
// scorer never observes a half-applied availability update.
type AgentRegistry struct {
	mu     sync.RWMutex
	agents map[string]*AgentInfo
}

// NewAgentRegistry builds a registry from the configured agent catalog.
// Agents start fully available until an external load signal says otherwise.
func NewAgentRegistry(agents []config.AgentConfig) *AgentRegistry {
	r := &AgentRegistry{agents: make(map[string]*AgentInfo, len(agents))}
	for _, a := range agents {
		base := a.BaseResolutionMinutes
		if base <= 0 {
			base = 30
		}
		r.agents[a.Name] = &AgentInfo{
			Name:                  a.Name,
			Route:                 a.Route,
			Specialties:           append([]string(nil), a.Specialties...),
			Style:                 a.Style,
			BaseResolutionMinutes: base,
			Availability:          1.0,
		}
	}
	return r
}

// Register adds or replaces an agent at runtime.
func (r *AgentRegistry) Register(info AgentInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info.Availability == 0 {
		info.Availability = 1.0
	}
	r.agents[info.Name] = &info
	log.Debugf("registered agent %s (route %s)", info.Name, info.Route)
}

// Unregister removes an agent from the catalog.
func (r *AgentRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, name)
}

// SetAvailability records the external load/readiness signal for an agent,
// clamped to [0,1]. Unknown agents are ignored.
func (r *AgentRegistry) SetAvailability(name string, availability float64) {
	if availability < 0 {
		availability = 0
	}
	if availability > 1 {
		availability = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[name]; ok {
		a.Availability = availability
	} else {
		log.Warnf("availability update for unknown agent %s ignored", name)
	}
}

// Get returns a copy of the named agent's info.
func (r *AgentRegistry) Get(name string) (AgentInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return AgentInfo{}, false
	}
	return *a, true
}

// Snapshot returns a stable copy of the catalog sorted by agent name.
// Sorting keeps downstream candidate iteration deterministic.
func (r *AgentRegistry) Snapshot() []AgentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]AgentInfo, 0, len(r.agents))
	for _, a := range r.agents {
		cp := *a
		cp.Specialties = append([]string(nil), a.Specialties...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered agents.
func (r *AgentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
