package decision

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDecision(id string) *RoutingDecision {
	return &RoutingDecision{
		ID:                  id,
		SessionID:           "s-1",
		UserID:              "u-1",
		Timestamp:           time.Now().UTC(),
		Kind:                KindRouted,
		PrimaryAgent:        "BillingAgent",
		PrimaryRoute:        "/agents/billing",
		FallbackAgents:      []string{"GeneralSupportAgent"},
		Confidence:          0.8,
		SuccessProbability:  0.7,
		RecommendedApproach: "direct",
		Reasoning:           []string{"history favored BillingAgent"},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	d := sampleDecision("d-1")
	require.NoError(t, store.Save(ctx, d))

	got, err := store.Get(ctx, "d-1")
	require.NoError(t, err)
	assert.Equal(t, "BillingAgent", got.PrimaryAgent)
	assert.Equal(t, []string{"GeneralSupportAgent"}, got.FallbackAgents)
}

func TestStore_GetSurvivesCacheMiss(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleDecision("d-1")))
	store.recent.Purge()

	got, err := store.Get(ctx, "d-1")
	require.NoError(t, err)
	assert.Equal(t, "d-1", got.ID)
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_MarkReportedIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleDecision("d-1")))

	already, err := store.MarkReported(ctx, "d-1")
	require.NoError(t, err)
	assert.False(t, already)

	already, err = store.MarkReported(ctx, "d-1")
	require.NoError(t, err)
	assert.True(t, already)
}

func TestStore_MarkReportedMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.MarkReported(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DuplicateSaveRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleDecision("d-1")))
	err := store.Save(ctx, sampleDecision("d-1"))
	require.Error(t, err)
}

func TestStore_MarkReportedQueryShape(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`
	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		payload TEXT NOT NULL,
		reported INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_session ON decisions(session_id);
	CREATE INDEX IF NOT EXISTS idx_decisions_user ON decisions(user_id);`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := newStoreWithDB(context.Background(), db)
	require.NoError(t, err)

	// First report updates exactly one row.
	mock.ExpectExec(`UPDATE decisions SET reported = 1 WHERE id = ? AND reported = 0`).
		WithArgs("d-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	already, err := store.MarkReported(context.Background(), "d-1")
	require.NoError(t, err)
	assert.False(t, already)

	// Second report updates nothing and falls through to the existence check.
	mock.ExpectExec(`UPDATE decisions SET reported = 1 WHERE id = ? AND reported = 0`).
		WithArgs("d-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM decisions WHERE id = ?`).
		WithArgs("d-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	already, err = store.MarkReported(context.Background(), "d-1")
	require.NoError(t, err)
	assert.True(t, already)

	assert.NoError(t, mock.ExpectationsWereMet())
}
