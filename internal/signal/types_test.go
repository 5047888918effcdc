package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBest_TieBreaksBySourceOnUnsortedResults(t *testing.T) {
	set := &SignalSet{ClassifierResults: []Classification{
		{Source: "zeta", Agent: "GeneralSupportAgent", Intent: "general_inquiry", Confidence: 0.6},
		{Source: "alpha", Agent: "BillingAgent", Intent: "billing", Confidence: 0.6},
	}}

	best, ok := set.Best()
	require.True(t, ok)
	assert.Equal(t, "alpha", best.Source)
	assert.Equal(t, "billing", best.Intent)
}

func TestBest_Empty(t *testing.T) {
	set := &SignalSet{}

	_, ok := set.Best()
	assert.False(t, ok)
}
