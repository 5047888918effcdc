// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the routecortex server.
// It handles loading and parsing YAML configuration files, and provides structured
// access to application settings including the HTTP listener, scoring weights,
// classifier endpoints, the business rule table, and the agent catalog.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network host/interface on which the API server will bind.
	Host string `yaml:"host" json:"-"`
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port" json:"-"`

	// Debug enables or disables debug-level logging and other debug features.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile controls whether application logs are written to rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogDir is the directory rotating log files are written to when LoggingToFile is set.
	LogDir string `yaml:"log-dir" json:"-"`

	// RulesPath is the YAML file holding the business rule table. The table is
	// loaded once at startup; changing it requires a restart or an explicit
	// admin reload call.
	RulesPath string `yaml:"rules-path" json:"rules-path"`

	// DecisionDB is the SQLite database file used for the routing decision
	// audit trail. Empty selects an in-memory database.
	DecisionDB string `yaml:"decision-db" json:"decision-db"`

	// Scoring holds the multi-factor scoring weights.
	Scoring ScoringConfig `yaml:"scoring" json:"scoring"`

	// Signals configures external classifiers and the analysis budget.
	Signals SignalsConfig `yaml:"signals" json:"signals"`

	// Agents is the catalog of downstream agents candidates are drawn from.
	Agents []AgentConfig `yaml:"agents" json:"agents"`
}

// ScoringConfig holds the weights of the composite routing score. All weights
// must be non-negative and sum to 1; Validate enforces this at load time.
type ScoringConfig struct {
	HistoryWeight      float64 `yaml:"history-weight" json:"history-weight"`
	ContextWeight      float64 `yaml:"context-weight" json:"context-weight"`
	BusinessWeight     float64 `yaml:"business-weight" json:"business-weight"`
	ComplexityWeight   float64 `yaml:"complexity-weight" json:"complexity-weight"`
	AvailabilityWeight float64 `yaml:"availability-weight" json:"availability-weight"`

	// EscalationThreshold is the escalation level at or above which the
	// recommended approach becomes "escalate" even without a matching rule.
	EscalationThreshold int `yaml:"escalation-threshold" json:"escalation-threshold"`
}

// SignalsConfig configures the signal aggregation stage.
type SignalsConfig struct {
	// Classifiers lists the external intent classifiers to consult.
	Classifiers []ClassifierConfig `yaml:"classifiers" json:"classifiers"`

	// ClassifierTimeout bounds each individual classifier call.
	ClassifierTimeout time.Duration `yaml:"classifier-timeout" json:"classifier-timeout"`

	// DecisionBudget bounds the whole route() call. In-flight classifier calls
	// are cancelled when the budget expires.
	DecisionBudget time.Duration `yaml:"decision-budget" json:"decision-budget"`
}

// ClassifierConfig describes one external classifier endpoint.
type ClassifierConfig struct {
	Name   string `yaml:"name" json:"name"`
	URL    string `yaml:"url" json:"url"`
	APIKey string `yaml:"api-key,omitempty" json:"-"`
}

// AgentConfig describes one downstream agent in the catalog.
type AgentConfig struct {
	Name string `yaml:"name" json:"name"`
	// Route is the logical endpoint/path associated with the agent.
	Route string `yaml:"route" json:"route"`
	// Specialties lists the intents the agent is a specialist for.
	Specialties []string `yaml:"specialties" json:"specialties"`
	// Style is the agent's handling style: "terse" or "detailed".
	Style string `yaml:"style" json:"style"`
	// BaseResolutionMinutes is the expected resolution time at medium complexity.
	BaseResolutionMinutes int `yaml:"base-resolution-minutes" json:"base-resolution-minutes"`
}

const weightSumTolerance = 1e-9

// DefaultConfig returns a configuration with the documented default policy.
// The weights are a tunable policy, not constants baked into the scorer.
func DefaultConfig() *Config {
	return &Config{
		Host:      "127.0.0.1",
		Port:      8317,
		RulesPath: "rules.yaml",
		Scoring: ScoringConfig{
			HistoryWeight:       0.30,
			ContextWeight:       0.20,
			BusinessWeight:      0.25,
			ComplexityWeight:    0.15,
			AvailabilityWeight:  0.10,
			EscalationThreshold: 3,
		},
		Signals: SignalsConfig{
			ClassifierTimeout: 2 * time.Second,
			DecisionBudget:    5 * time.Second,
		},
	}
}

// DefaultAgents is the built-in agent catalog, used when the configuration
// file declares none.
func DefaultAgents() []AgentConfig {
	return []AgentConfig{
		{Name: "GeneralSupportAgent", Route: "/agents/general", Specialties: []string{"general_inquiry"}, Style: "detailed", BaseResolutionMinutes: 20},
		{Name: "BillingAgent", Route: "/agents/billing", Specialties: []string{"billing"}, Style: "terse", BaseResolutionMinutes: 25},
		{Name: "AccountAgent", Route: "/agents/account", Specialties: []string{"account"}, Style: "terse", BaseResolutionMinutes: 15},
		{Name: "TechnicalSpecialistAgent", Route: "/agents/technical", Specialties: []string{"technical_issue"}, Style: "detailed", BaseResolutionMinutes: 45},
		{Name: "SolutionsAgent", Route: "/agents/solutions", Specialties: []string{"advanced_features"}, Style: "detailed", BaseResolutionMinutes: 60},
		{Name: "UpgradeAgent", Route: "/agents/upgrade", Specialties: []string{"advanced_features"}, Style: "detailed", BaseResolutionMinutes: 30},
		{Name: "PriorityTriageAgent", Route: "/agents/priority", Style: "terse", BaseResolutionMinutes: 10},
	}
}

// LoadConfig reads and parses the YAML configuration file at path, applies
// environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment environments override the listener and
// storage locations without editing the YAML file. main loads .env via godotenv
// before this runs.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ROUTECORTEX_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("ROUTECORTEX_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("ROUTECORTEX_RULES"); v != "" {
		c.RulesPath = v
	}
	if v := os.Getenv("ROUTECORTEX_DECISION_DB"); v != "" {
		c.DecisionDB = v
	}
}

// Validate checks structural invariants that would make routing decisions
// meaningless if violated. It is called once at load time; a failure here
// refuses startup.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if c.Signals.ClassifierTimeout <= 0 {
		return fmt.Errorf("config: classifier-timeout must be positive")
	}
	if c.Signals.DecisionBudget < c.Signals.ClassifierTimeout {
		return fmt.Errorf("config: decision-budget must be at least classifier-timeout")
	}
	seen := make(map[string]struct{}, len(c.Agents))
	for _, a := range c.Agents {
		if a.Name == "" || a.Route == "" {
			return fmt.Errorf("config: agent entries need both name and route")
		}
		if _, dup := seen[a.Name]; dup {
			return fmt.Errorf("config: duplicate agent %q", a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	return nil
}

// Validate checks the weight policy: all non-negative, summing to 1.
func (s *ScoringConfig) Validate() error {
	weights := []struct {
		name  string
		value float64
	}{
		{"history-weight", s.HistoryWeight},
		{"context-weight", s.ContextWeight},
		{"business-weight", s.BusinessWeight},
		{"complexity-weight", s.ComplexityWeight},
		{"availability-weight", s.AvailabilityWeight},
	}
	sum := 0.0
	for _, w := range weights {
		if w.value < 0 {
			return fmt.Errorf("config: %s must be non-negative, got %v", w.name, w.value)
		}
		sum += w.value
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("config: scoring weights must sum to 1, got %v", sum)
	}
	if s.EscalationThreshold < 0 {
		return fmt.Errorf("config: escalation-threshold must be non-negative")
	}
	return nil
}
