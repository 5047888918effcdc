package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routecortex/routecortex/internal/conversation"
	"github.com/routecortex/routecortex/internal/profile"
)

func TestAggregator_AllClassifiersSucceed(t *testing.T) {
	agg := NewAggregator([]Classifier{
		&StaticClassifier{ClassifierName: "alpha", Result: Classification{Agent: "BillingAgent", Confidence: 0.8, Intent: "billing"}},
		&StaticClassifier{ClassifierName: "beta", Result: Classification{Agent: "GeneralSupportAgent", Confidence: 0.5, Intent: "general_inquiry"}},
	}, time.Second)

	set, err := agg.Analyze(context.Background(), "I was charged twice on my invoice", nil, nil)
	require.NoError(t, err)

	assert.False(t, set.Degraded)
	require.Len(t, set.ClassifierResults, 2)
	assert.Equal(t, "billing", set.Intent)
	assert.Equal(t, 0.8, set.Confidence)
	assert.Equal(t, "BillingAgent", set.SuggestedAgent)
}

func TestAggregator_PartialFailureExcluded(t *testing.T) {
	agg := NewAggregator([]Classifier{
		&StaticClassifier{ClassifierName: "alpha", Err: errors.New("boom")},
		&StaticClassifier{ClassifierName: "beta", Result: Classification{Agent: "BillingAgent", Confidence: 0.7, Intent: "billing"}},
	}, time.Second)

	set, err := agg.Analyze(context.Background(), "refund please", nil, nil)
	require.NoError(t, err)

	assert.False(t, set.Degraded)
	require.Len(t, set.ClassifierResults, 1)
	assert.Equal(t, "beta", set.ClassifierResults[0].Source)
	require.Len(t, set.Notes, 1)
	assert.Contains(t, set.Notes[0], "alpha excluded")
}

func TestAggregator_AllFailDegraded(t *testing.T) {
	agg := NewAggregator([]Classifier{
		&StaticClassifier{ClassifierName: "alpha", Err: errors.New("down")},
		&StaticClassifier{ClassifierName: "beta", Err: errors.New("down")},
	}, time.Second)

	set, err := agg.Analyze(context.Background(), "my invoice shows a double charge", nil, nil)
	require.NoError(t, err)

	assert.True(t, set.Degraded)
	assert.Equal(t, "billing", set.Intent)
	assert.Equal(t, "BillingAgent", set.SuggestedAgent)
	assert.NotEmpty(t, set.LocalPatterns)

	foundFallbackNote := false
	for _, n := range set.Notes {
		if n == "all external classifiers unavailable, local pattern heuristic used" {
			foundFallbackNote = true
		}
	}
	assert.True(t, foundFallbackNote)
}

func TestAggregator_SlowClassifierTimesOut(t *testing.T) {
	agg := NewAggregator([]Classifier{
		&StaticClassifier{ClassifierName: "slow", Delay: 500 * time.Millisecond, Result: Classification{Agent: "A", Confidence: 0.9, Intent: "x"}},
		&StaticClassifier{ClassifierName: "fast", Result: Classification{Agent: "BillingAgent", Confidence: 0.6, Intent: "billing"}},
	}, 50*time.Millisecond)

	start := time.Now()
	set, err := agg.Analyze(context.Background(), "billing question", nil, nil)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 400*time.Millisecond)
	require.Len(t, set.ClassifierResults, 1)
	assert.Equal(t, "fast", set.ClassifierResults[0].Source)
}

func TestAggregator_CallerCancellation(t *testing.T) {
	agg := NewAggregator([]Classifier{
		&StaticClassifier{ClassifierName: "slow", Delay: time.Second, Result: Classification{Intent: "x"}},
	}, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := agg.Analyze(ctx, "anything", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregator_IntentCarryOver(t *testing.T) {
	agg := NewAggregator(nil, time.Second)

	conv := conversation.NewContext("s-1")
	conv.ActiveIntent = "technical_issue"
	conv.IntentConfidence = 0.75

	// Content matching no local pattern keeps the conversation's intent.
	set, err := agg.Analyze(context.Background(), "ok", nil, conv)
	require.NoError(t, err)
	assert.Equal(t, "technical_issue", set.Intent)
	assert.Equal(t, 0.75, set.Confidence)
}

func TestAggregator_PreferredAgentSuggestion(t *testing.T) {
	agg := NewAggregator(nil, time.Second)

	prof := profile.NewUserProfile("u")
	prof.Preferences.PreferredAgents = []string{"BillingAgent"}

	set, err := agg.Analyze(context.Background(), "ok", prof, nil)
	require.NoError(t, err)
	assert.Equal(t, "BillingAgent", set.SuggestedAgent)
}

func TestAggregator_Determinism(t *testing.T) {
	classifiers := []Classifier{
		&StaticClassifier{ClassifierName: "beta", Result: Classification{Agent: "B", Confidence: 0.7, Intent: "billing"}},
		&StaticClassifier{ClassifierName: "alpha", Result: Classification{Agent: "A", Confidence: 0.7, Intent: "account"}},
	}
	agg := NewAggregator(classifiers, time.Second)

	first, err := agg.Analyze(context.Background(), "hello there", nil, nil)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		set, err := agg.Analyze(context.Background(), "hello there", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, first.Intent, set.Intent)
		assert.Equal(t, first.SuggestedAgent, set.SuggestedAgent)
		assert.Equal(t, first.ClassifierResults, set.ClassifierResults)
	}
	// Equal confidence resolved by source name ascending.
	assert.Equal(t, "account", first.Intent)
}

func TestAggregator_CarriesContextUrgencyAndSentiment(t *testing.T) {
	conv := conversation.NewContext("s-1")
	conv.Urgency = conversation.UrgencyHigh
	conv.Sentiment = conversation.SentimentFrustrated

	agg := NewAggregator(nil, time.Second)
	set, err := agg.Analyze(context.Background(), "any update on this?", nil, conv)
	require.NoError(t, err)

	assert.Equal(t, "high", set.Urgency)
	assert.Equal(t, "frustrated", set.Sentiment)
	assert.Contains(t, set.Notes, "urgency carried over from conversation context")
	assert.Contains(t, set.Notes, "sentiment carried over from conversation context")
}

func TestAggregator_FresherSignalOutranksStoredState(t *testing.T) {
	conv := conversation.NewContext("s-1")
	conv.Urgency = conversation.UrgencyMedium
	conv.Sentiment = conversation.SentimentNegative

	agg := NewAggregator(nil, time.Second)
	set, err := agg.Analyze(context.Background(), "production down, this is ridiculous", nil, conv)
	require.NoError(t, err)

	assert.Equal(t, "critical", set.Urgency)
	assert.Equal(t, "frustrated", set.Sentiment)
}
