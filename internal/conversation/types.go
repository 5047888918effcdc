// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package conversation provides per-session conversation state used by the
// routing engine. One context exists per active session; messages are
// append-only and immutable once appended.
package conversation

import "time"

// Sentiment is the conversation's current emotional tone.
type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNeutral    Sentiment = "neutral"
	SentimentNegative   Sentiment = "negative"
	SentimentFrustrated Sentiment = "frustrated"
)

// Urgency is the conversation's current urgency level.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAgent  Sender = "agent"
	SenderSystem Sender = "system"
)

// Message is a single conversation message. Immutable once appended.
type Message struct {
	ID            string            `json:"id"`
	Content       string            `json:"content"`
	Sender        Sender            `json:"sender"`
	Timestamp     time.Time         `json:"timestamp"`
	Intent        string            `json:"intent,omitempty"`
	Entities      map[string]string `json:"entities,omitempty"`
	Sentiment     Sentiment         `json:"sentiment,omitempty"`
	HandlingAgent string            `json:"handling_agent,omitempty"`
	Success       bool              `json:"success"`
}

// Context is the per-session conversation state.
type Context struct {
	SessionID        string    `json:"session_id"`
	Messages         []Message `json:"messages"`
	ActiveIntent     string    `json:"active_intent,omitempty"`
	IntentConfidence float64   `json:"intent_confidence"`
	WorkflowID       string    `json:"workflow_id,omitempty"`
	PendingActions   []string  `json:"pending_actions,omitempty"`
	// EscalationLevel counts unresolved failures. It never goes below zero and
	// only decreases on a successful resolution.
	EscalationLevel int       `json:"escalation_level"`
	Sentiment       Sentiment `json:"sentiment"`
	Urgency         Urgency   `json:"urgency"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewContext returns a fresh context for a session.
func NewContext(sessionID string) *Context {
	now := time.Now()
	return &Context{
		SessionID: sessionID,
		Sentiment: SentimentNeutral,
		Urgency:   UrgencyLow,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers never share mutable state with the store.
func (c *Context) Clone() *Context {
	cp := *c
	cp.Messages = append([]Message(nil), c.Messages...)
	cp.PendingActions = append([]string(nil), c.PendingActions...)
	return &cp
}

// LastUserMessage returns the most recent user-sent message, or nil.
func (c *Context) LastUserMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Sender == SenderUser {
			return &c.Messages[i]
		}
	}
	return nil
}
