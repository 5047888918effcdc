package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "port: 9000\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 2*time.Second, cfg.Signals.ClassifierTimeout)
	assert.InDelta(t, 1.0, cfg.Scoring.HistoryWeight+cfg.Scoring.ContextWeight+
		cfg.Scoring.BusinessWeight+cfg.Scoring.ComplexityWeight+cfg.Scoring.AvailabilityWeight, 1e-9)
}

func TestLoadConfig_Agents(t *testing.T) {
	path := writeConfig(t, `
port: 9000
agents:
  - name: BillingAgent
    route: /agents/billing
    specialties: [billing, refund]
    style: detailed
    base-resolution-minutes: 15
  - name: GeneralSupportAgent
    route: /agents/general
    style: terse
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, "BillingAgent", cfg.Agents[0].Name)
	assert.Equal(t, []string{"billing", "refund"}, cfg.Agents[0].Specialties)
}

func TestLoadConfig_DuplicateAgent(t *testing.T) {
	path := writeConfig(t, `
port: 9000
agents:
  - name: BillingAgent
    route: /agents/billing
  - name: BillingAgent
    route: /agents/billing2
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate agent")
}

func TestScoringConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		scoring ScoringConfig
		wantErr string
	}{
		{
			name: "valid default",
			scoring: ScoringConfig{
				HistoryWeight: 0.30, ContextWeight: 0.20, BusinessWeight: 0.25,
				ComplexityWeight: 0.15, AvailabilityWeight: 0.10,
			},
		},
		{
			name: "negative weight",
			scoring: ScoringConfig{
				HistoryWeight: -0.1, ContextWeight: 0.3, BusinessWeight: 0.3,
				ComplexityWeight: 0.3, AvailabilityWeight: 0.2,
			},
			wantErr: "non-negative",
		},
		{
			name: "sum not one",
			scoring: ScoringConfig{
				HistoryWeight: 0.5, ContextWeight: 0.5, BusinessWeight: 0.5,
				ComplexityWeight: 0, AvailabilityWeight: 0,
			},
			wantErr: "sum to 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scoring.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "port: 9000\n")
	t.Setenv("ROUTECORTEX_PORT", "9100")
	t.Setenv("ROUTECORTEX_RULES", "custom-rules.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "custom-rules.yaml", cfg.RulesPath)
}

func TestLoadConfig_BudgetBelowTimeout(t *testing.T) {
	path := writeConfig(t, `
port: 9000
signals:
  classifier-timeout: 3s
  decision-budget: 1s
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decision-budget")
}
