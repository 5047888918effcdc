package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecortex/routecortex/internal/config"
)

func testCatalog() []config.AgentConfig {
	return []config.AgentConfig{
		{Name: "GeneralSupportAgent", Route: "/agents/general", Specialties: []string{"general_inquiry"}, Style: "detailed"},
		{Name: "BillingAgent", Route: "/agents/billing", Specialties: []string{"billing", "refund"}, Style: "detailed", BaseResolutionMinutes: 20},
		{Name: "TechnicalSpecialistAgent", Route: "/agents/technical", Specialties: []string{"technical_issue"}, Style: "terse", BaseResolutionMinutes: 45},
	}
}

func TestNewAgentRegistry(t *testing.T) {
	r := NewAgentRegistry(testCatalog())
	assert.Equal(t, 3, r.Len())

	a, ok := r.Get("BillingAgent")
	require.True(t, ok)
	assert.Equal(t, "/agents/billing", a.Route)
	assert.Equal(t, 1.0, a.Availability)
	assert.Equal(t, 20, a.BaseResolutionMinutes)

	// Default resolution time applied when unset.
	g, ok := r.Get("GeneralSupportAgent")
	require.True(t, ok)
	assert.Equal(t, 30, g.BaseResolutionMinutes)
}

func TestAgentRegistry_SnapshotSorted(t *testing.T) {
	r := NewAgentRegistry(testCatalog())

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "BillingAgent", snap[0].Name)
	assert.Equal(t, "GeneralSupportAgent", snap[1].Name)
	assert.Equal(t, "TechnicalSpecialistAgent", snap[2].Name)
}

func TestAgentRegistry_SetAvailability(t *testing.T) {
	r := NewAgentRegistry(testCatalog())

	r.SetAvailability("BillingAgent", 0.4)
	a, _ := r.Get("BillingAgent")
	assert.Equal(t, 0.4, a.Availability)

	// Clamped to [0,1].
	r.SetAvailability("BillingAgent", 1.7)
	a, _ = r.Get("BillingAgent")
	assert.Equal(t, 1.0, a.Availability)

	r.SetAvailability("BillingAgent", -0.3)
	a, _ = r.Get("BillingAgent")
	assert.Equal(t, 0.0, a.Availability)

	// Unknown agent ignored without panic.
	r.SetAvailability("NoSuchAgent", 0.5)
}

func TestAgentRegistry_SnapshotIsolation(t *testing.T) {
	r := NewAgentRegistry(testCatalog())

	snap := r.Snapshot()
	snap[0].Availability = 0.1
	snap[0].Specialties[0] = "mutated"

	a, _ := r.Get("BillingAgent")
	assert.Equal(t, 1.0, a.Availability)
	assert.Equal(t, "billing", a.Specialties[0])
}

func TestAgentInfo_Specializes(t *testing.T) {
	a := AgentInfo{Name: "BillingAgent", Specialties: []string{"billing", "refund"}}
	assert.True(t, a.Specializes("refund"))
	assert.False(t, a.Specializes("technical_issue"))
}
