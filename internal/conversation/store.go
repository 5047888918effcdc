// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conversation

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned for a session with no context.
var ErrNotFound = errors.New("conversation: session not found")

// Store holds one Context per session. Mutations for a given session are
// serialized under a per-session mutex since conversations are inherently
// sequential; different sessions never block each other.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	mu  sync.Mutex
	ctx *Context
}

// NewStore creates an empty context store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*sessionEntry)}
}

func (s *Store) entry(sessionID string, create bool) *sessionEntry {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok || !create {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.sessions[sessionID]; ok {
		return e
	}
	e = &sessionEntry{ctx: NewContext(sessionID)}
	s.sessions[sessionID] = e
	return e
}

// GetOrCreate returns a copy of the session's context, creating it lazily on
// the session's first message.
func (s *Store) GetOrCreate(sessionID string) (*Context, error) {
	e := s.entry(sessionID, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx.Clone(), nil
}

// Get returns a copy of the session's context or ErrNotFound.
func (s *Store) Get(sessionID string) (*Context, error) {
	e := s.entry(sessionID, false)
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx.Clone(), nil
}

// AppendMessage appends a message to the session's history. The message list
// is append-only; existing entries are never modified.
func (s *Store) AppendMessage(sessionID string, msg Message) error {
	e := s.entry(sessionID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx.Messages = append(e.ctx.Messages, msg)
	if msg.Sentiment != "" {
		e.ctx.Sentiment = msg.Sentiment
	}
	e.ctx.UpdatedAt = time.Now()
	return nil
}

// SetActiveIntent records the session's active intent and its confidence.
func (s *Store) SetActiveIntent(sessionID, intent string, confidence float64) error {
	e := s.entry(sessionID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx.ActiveIntent = intent
	e.ctx.IntentConfidence = clamp01(confidence)
	e.ctx.UpdatedAt = time.Now()
	return nil
}

// SetUrgency records the session's current urgency.
func (s *Store) SetUrgency(sessionID string, urgency Urgency) error {
	e := s.entry(sessionID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx.Urgency = urgency
	e.ctx.UpdatedAt = time.Now()
	return nil
}

// AdjustEscalation shifts the session's escalation level by delta, clamped at
// zero. Positive deltas record failed resolutions, negative deltas successful
// ones.
func (s *Store) AdjustEscalation(sessionID string, delta int) error {
	e := s.entry(sessionID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx.EscalationLevel += delta
	if e.ctx.EscalationLevel < 0 {
		e.ctx.EscalationLevel = 0
	}
	e.ctx.UpdatedAt = time.Now()
	return nil
}

// Evict removes a session's context. Called by the external session timeout
// policy, never by the routing path.
func (s *Store) Evict(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
