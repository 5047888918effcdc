// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decision

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	log "github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a decision id has no stored record.
var ErrNotFound = errors.New("decision: not found")

// recentDecisionCacheSize bounds the in-memory index of recent decisions.
// Feedback usually arrives shortly after the decision, so a small window
// absorbs most lookups without touching the database.
const recentDecisionCacheSize = 1024

// Store persists routing decisions in SQLite for audit and feedback lookup.
// The reported flag on each row makes feedback idempotent per decision id.
type Store struct {
	db     *sql.DB
	recent *lru.Cache[string, *RoutingDecision]
}

// NewStore opens (or creates) the decision database at dbPath. An empty path
// selects an in-memory database, useful for tests and ephemeral deployments.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("decision: open database: %w", err)
	}

	s, err := newStoreWithDB(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Infof("decision store ready (db: %s)", dbPath)
	return s, nil
}

func newStoreWithDB(ctx context.Context, db *sql.DB) (*Store, error) {
	cache, err := lru.New[string, *RoutingDecision](recentDecisionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("decision: create cache: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		payload TEXT NOT NULL,
		reported INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_session ON decisions(session_id);
	CREATE INDEX IF NOT EXISTS idx_decisions_user ON decisions(user_id);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("decision: create schema: %w", err)
	}

	return &Store{db: db, recent: cache}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a decision. Decisions are immutable; saving the same id twice
// is a programming error surfaced as a constraint failure.
func (s *Store) Save(ctx context.Context, d *RoutingDecision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("decision: marshal %s: %w", d.ID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, session_id, user_id, created_at, payload) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.SessionID, d.UserID, d.Timestamp, string(payload))
	if err != nil {
		return fmt.Errorf("decision: save %s: %w", d.ID, err)
	}

	s.recent.Add(d.ID, d)
	return nil
}

// Get returns the stored decision for id, consulting the recent cache first.
func (s *Store) Get(ctx context.Context, id string) (*RoutingDecision, error) {
	if d, ok := s.recent.Get(id); ok {
		return d, nil
	}

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM decisions WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("decision: get %s: %w", id, err)
	}

	var d RoutingDecision
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return nil, fmt.Errorf("decision: unmarshal %s: %w", id, err)
	}
	s.recent.Add(id, &d)
	return &d, nil
}

// MarkReported flips the decision's reported flag. It returns already=true
// when the decision had been reported before, which the feedback loop uses to
// stay idempotent. The conditional UPDATE makes the check-and-set atomic.
func (s *Store) MarkReported(ctx context.Context, id string) (already bool, err error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE decisions SET reported = 1 WHERE id = ? AND reported = 0`, id)
	if err != nil {
		return false, fmt.Errorf("decision: mark reported %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decision: mark reported %s: %w", id, err)
	}
	if affected == 1 {
		return false, nil
	}

	// Nothing updated: either already reported, or unknown id.
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM decisions WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("decision: mark reported %s: %w", id, err)
	}
	return true, nil
}
