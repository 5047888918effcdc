// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rules

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRuleConfig marks a malformed rule table. It is fatal at load
// time: the engine refuses to start rather than silently skipping rules.
var ErrInvalidRuleConfig = errors.New("rules: invalid rule configuration")

type compiledRule struct {
	rule    BusinessRule
	program *vm.Program
}

// Engine evaluates the rule table. It holds no state beyond the table itself;
// Evaluate is a pure function of its environment. The table is immutable at
// runtime and swapped atomically by Reload.
type Engine struct {
	mu    sync.RWMutex
	rules []compiledRule
	path  string
}

// ruleFile is the YAML shape of the rule table.
type ruleFile struct {
	Rules []BusinessRule `yaml:"rules"`
}

// NewEngine compiles and validates a rule table. Any malformed rule —
// a predicate that does not compile, a predicate that is not boolean, an
// action outside the allowed set, a missing or duplicate id — fails the whole
// load with ErrInvalidRuleConfig.
func NewEngine(table []BusinessRule) (*Engine, error) {
	compiled, err := compileTable(table)
	if err != nil {
		return nil, err
	}
	return &Engine{rules: compiled}, nil
}

// LoadFromFile reads the YAML rule table at path and builds an engine from it.
func LoadFromFile(path string) (*Engine, error) {
	table, err := readTable(path)
	if err != nil {
		return nil, err
	}
	e, err := NewEngine(table)
	if err != nil {
		return nil, err
	}
	e.path = path
	return e, nil
}

func readTable(path string) ([]BusinessRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidRuleConfig, path, err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidRuleConfig, path, err)
	}
	return rf.Rules, nil
}

func compileTable(table []BusinessRule) ([]compiledRule, error) {
	seen := make(map[string]struct{}, len(table))
	compiled := make([]compiledRule, 0, len(table))

	for _, r := range table {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: rule with empty id", ErrInvalidRuleConfig)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate rule id %q", ErrInvalidRuleConfig, r.ID)
		}
		seen[r.ID] = struct{}{}

		if _, ok := validActions[r.Action]; !ok {
			return nil, fmt.Errorf("%w: rule %q: unknown action %q", ErrInvalidRuleConfig, r.ID, r.Action)
		}
		if (r.Action == ActionRouteTo || r.Action == ActionRedirect || r.Action == ActionEscalate) && r.Target == "" {
			return nil, fmt.Errorf("%w: rule %q: action %q needs a target", ErrInvalidRuleConfig, r.ID, r.Action)
		}
		if r.When == "" {
			return nil, fmt.Errorf("%w: rule %q: empty predicate", ErrInvalidRuleConfig, r.ID)
		}

		program, err := expr.Compile(r.When, expr.Env(Env{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: compile predicate: %v", ErrInvalidRuleConfig, r.ID, err)
		}
		compiled = append(compiled, compiledRule{rule: r, program: program})
	}
	return compiled, nil
}

// Reload re-reads the table from the file the engine was loaded from and swaps
// it in atomically. Explicit admin operation only; a broken new table leaves
// the old one serving.
func (e *Engine) Reload() error {
	e.mu.RLock()
	path := e.path
	e.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("rules: engine was not loaded from a file")
	}

	table, err := readTable(path)
	if err != nil {
		return err
	}
	compiled, err := compileTable(table)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.rules = compiled
	e.mu.Unlock()
	log.Infof("rule table reloaded from %s (%d rules)", path, len(compiled))
	return nil
}

// Rules returns a copy of the current table for inspection.
func (e *Engine) Rules() []BusinessRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]BusinessRule, len(e.rules))
	for i, c := range e.rules {
		out[i] = c.rule
	}
	return out
}

// Evaluate runs every predicate against env, sorts the survivors by
// (priority desc, id asc) and applies the first. All matching rules are
// recorded for audit even when not applied. Predicates are compiled against a
// closed typed environment, so a runtime evaluation error is unexpected; such
// a rule is skipped and logged rather than failing the request.
func (e *Engine) Evaluate(env Env) RuleOutcome {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	var matched []RuleMatch
	for _, c := range rules {
		out, err := expr.Run(c.program, env)
		if err != nil {
			log.Warnf("rule %s predicate error, skipped: %v", c.rule.ID, err)
			continue
		}
		if hold, ok := out.(bool); ok && hold {
			matched = append(matched, RuleMatch{Rule: c.rule})
		}
	}

	if len(matched) == 0 {
		return RuleOutcome{OverridesDefault: false}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Rule.Priority != matched[j].Rule.Priority {
			return matched[i].Rule.Priority > matched[j].Rule.Priority
		}
		return matched[i].Rule.ID < matched[j].Rule.ID
	})

	return RuleOutcome{
		Matched:          matched,
		Primary:          &matched[0],
		OverridesDefault: true,
	}
}

// DefaultTable is the rule table the engine ships with when no rules file is
// configured. It encodes the standing routing policy.
func DefaultTable() []BusinessRule {
	return []BusinessRule{
		{
			ID:          "escalated-end-user",
			Priority:    90,
			When:        "EscalationLevel >= 3 && Role == 'End User'",
			Action:      ActionEscalate,
			Target:      "TechnicalSpecialistAgent",
			Description: "repeatedly unresolved end-user conversations go to a technical specialist",
		},
		{
			ID:          "enterprise-high-urgency",
			Priority:    100,
			When:        "Tier == 'Enterprise' && (Urgency == 'high' || Urgency == 'critical')",
			Action:      ActionRouteTo,
			Target:      "PriorityTriageAgent",
			Description: "urgent enterprise traffic is triaged ahead of classification",
		},
		{
			ID:          "free-tier-advanced-features",
			Priority:    80,
			When:        "Tier == 'Free' && Intent == 'advanced_features'",
			Action:      ActionRedirect,
			Target:      "UpgradeAgent",
			Description: "free-tier requests for advanced features go to the upgrade flow",
		},
		{
			ID:          "abusive-content-block",
			Priority:    110,
			When:        "Sentiment == 'frustrated' && EscalationLevel >= 5",
			Action:      ActionBlock,
			Description: "conversations past the escalation ceiling stop automated dispatch",
		},
	}
}
