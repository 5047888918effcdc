// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package profile

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned by Get for a user with no profile.
	ErrNotFound = errors.New("profile: not found")
	// ErrUnavailable is returned when the backing store cannot be reached.
	// Callers should surface it as a retryable condition.
	ErrUnavailable = errors.New("profile: store unavailable")
)

// Store is the injected profile store interface. Implementations must make
// read-modify-write atomic per user record: multiple concurrent sessions for
// the same user must not lose updates.
type Store interface {
	// GetOrCreate returns the user's profile, creating an empty one on the
	// user's first request. The returned profile is a private copy.
	GetOrCreate(userID string) (*UserProfile, error)

	// Get returns the user's profile or ErrNotFound. No implicit creation.
	Get(userID string) (*UserProfile, error)

	// RecordOutcome atomically increments the success or failure counter for
	// the agent and appends a satisfaction score if supplied. A nonexistent
	// profile is implicitly created with zero history.
	RecordOutcome(userID, agent string, success bool, satisfaction *float64) error

	// Update applies fn to the user's profile under the per-user lock.
	// Used to seed tier/role/preferences from identity data.
	Update(userID string, fn func(*UserProfile)) error
}

// MemoryStore is the in-memory Store implementation. A read-write mutex guards
// the map; each profile entry carries its own mutex so updates for different
// users proceed in parallel while same-user updates serialize.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*profileEntry
}

type profileEntry struct {
	mu      sync.Mutex
	profile *UserProfile
}

// NewMemoryStore creates an empty in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*profileEntry)}
}

func (s *MemoryStore) entry(userID string, create bool) *profileEntry {
	s.mu.RLock()
	e, ok := s.profiles[userID]
	s.mu.RUnlock()
	if ok || !create {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.profiles[userID]; ok {
		return e
	}
	e = &profileEntry{profile: NewUserProfile(userID)}
	s.profiles[userID] = e
	return e
}

// GetOrCreate implements Store.
func (s *MemoryStore) GetOrCreate(userID string) (*UserProfile, error) {
	e := s.entry(userID, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile.Clone(), nil
}

// Get implements Store.
func (s *MemoryStore) Get(userID string) (*UserProfile, error) {
	e := s.entry(userID, false)
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile.Clone(), nil
}

// RecordOutcome implements Store.
func (s *MemoryStore) RecordOutcome(userID, agent string, success bool, satisfaction *float64) error {
	e := s.entry(userID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.profile
	if success {
		p.SuccessCount[agent]++
	} else {
		p.FailureCount[agent]++
	}
	if satisfaction != nil {
		p.RecentSatisfaction = append(p.RecentSatisfaction, *satisfaction)
		if len(p.RecentSatisfaction) > SatisfactionWindow {
			p.RecentSatisfaction = p.RecentSatisfaction[len(p.RecentSatisfaction)-SatisfactionWindow:]
		}
	}
	p.UpdatedAt = time.Now()
	return nil
}

// Update implements Store.
func (s *MemoryStore) Update(userID string, fn func(*UserProfile)) error {
	e := s.entry(userID, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.profile)
	e.profile.UpdatedAt = time.Now()
	return nil
}
