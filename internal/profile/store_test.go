package profile

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetOrCreate(t *testing.T) {
	store := NewMemoryStore()

	p, err := store.GetOrCreate("user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, TierFree, p.Tier)
	assert.Empty(t, p.SuccessCount)

	// Second call returns the same profile, not a fresh one.
	require.NoError(t, store.RecordOutcome("user-1", "BillingAgent", true, nil))
	p2, err := store.GetOrCreate("user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, p2.SuccessCount["BillingAgent"])
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RecordOutcomeImplicitCreate(t *testing.T) {
	store := NewMemoryStore()

	sat := 0.9
	require.NoError(t, store.RecordOutcome("new-user", "GeneralSupportAgent", false, &sat))

	p, err := store.Get("new-user")
	require.NoError(t, err)
	assert.Equal(t, 1, p.FailureCount["GeneralSupportAgent"])
	assert.Equal(t, 0, p.SuccessCount["GeneralSupportAgent"])
	assert.Equal(t, []float64{0.9}, p.RecentSatisfaction)
}

func TestMemoryStore_SatisfactionWindowBounded(t *testing.T) {
	store := NewMemoryStore()

	for i := 0; i < SatisfactionWindow+10; i++ {
		sat := float64(i)
		require.NoError(t, store.RecordOutcome("u", "A", true, &sat))
	}

	p, err := store.Get("u")
	require.NoError(t, err)
	require.Len(t, p.RecentSatisfaction, SatisfactionWindow)
	// Oldest entries dropped, newest kept.
	assert.Equal(t, float64(10), p.RecentSatisfaction[0])
	assert.Equal(t, float64(SatisfactionWindow+9), p.RecentSatisfaction[SatisfactionWindow-1])
}

func TestMemoryStore_ConcurrentSameUser(t *testing.T) {
	store := NewMemoryStore()

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_ = store.RecordOutcome("shared", "BillingAgent", true, nil)
			}
		}()
	}
	wg.Wait()

	p, err := store.Get("shared")
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, p.SuccessCount["BillingAgent"])
}

func TestUserProfile_SuccessRate(t *testing.T) {
	p := NewUserProfile("u")
	assert.Equal(t, 0.0, p.SuccessRate("A"))

	p.SuccessCount["A"] = 3
	p.FailureCount["A"] = 1
	assert.InDelta(t, 0.75, p.SuccessRate("A"), 1e-9)
}

func TestUserProfile_CloneIsolation(t *testing.T) {
	store := NewMemoryStore()
	p, err := store.GetOrCreate("u")
	require.NoError(t, err)

	// Mutating the returned copy must not leak into the store.
	p.SuccessCount["A"] = 99
	fresh, err := store.Get("u")
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.SuccessCount["A"])
}

func TestTierOrdering(t *testing.T) {
	assert.True(t, TierFree < TierPro)
	assert.True(t, TierPro < TierEnterprise)
	assert.Equal(t, TierEnterprise, ParseTier("Enterprise"))
	assert.Equal(t, TierFree, ParseTier("unknown"))
}
