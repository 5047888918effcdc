// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package signal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Classifier is the contract every external classifier collaborator satisfies.
// Implementations must honor the caller's cancellation and deadline.
type Classifier interface {
	// Name identifies the classifier in results and logs.
	Name() string
	// Classify analyzes text and returns a suggested agent, confidence and intent.
	Classify(ctx context.Context, text string) (*Classification, error)
}

// HTTPClassifier calls an external classification service over HTTP/JSON.
// The service receives {"text": ...} and replies with agent/confidence/intent
// fields; gjson probing tolerates services that nest the payload under
// "result" or "classification".
type HTTPClassifier struct {
	name   string
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPClassifier creates a classifier client for the given endpoint.
// Per-call deadlines come from the caller's context, so the underlying
// http.Client carries no timeout of its own.
func NewHTTPClassifier(name, url, apiKey string) *HTTPClassifier {
	return &HTTPClassifier{
		name:   name,
		url:    url,
		apiKey: apiKey,
		client: &http.Client{},
	}
}

// Name implements Classifier.
func (c *HTTPClassifier) Name() string { return c.name }

// Classify implements Classifier.
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (*Classification, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("classifier %s: marshal request: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("classifier %s: build request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier %s: %w", c.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier %s: unexpected status %d", c.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("classifier %s: read response: %w", c.name, err)
	}

	result, err := parseClassifierResponse(c.name, body)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// parseClassifierResponse extracts the normalized classification from a
// service reply, probing the common nesting variants.
func parseClassifierResponse(name string, body []byte) (*Classification, error) {
	root := gjson.ParseBytes(body)
	for _, prefix := range []string{"", "result.", "classification."} {
		agent := root.Get(prefix + "agent")
		intent := root.Get(prefix + "intent")
		if !agent.Exists() && !intent.Exists() {
			continue
		}
		conf := root.Get(prefix + "confidence").Float()
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		return &Classification{
			Agent:      agent.String(),
			Confidence: conf,
			Intent:     intent.String(),
			Source:     name,
		}, nil
	}
	return nil, fmt.Errorf("classifier %s: response carries no agent or intent field", name)
}

// StaticClassifier returns a fixed classification after an optional delay.
// Used in tests and demo setups to pin classifier outputs.
type StaticClassifier struct {
	ClassifierName string
	Result         Classification
	Err            error
	Delay          time.Duration
}

// Name implements Classifier.
func (s *StaticClassifier) Name() string { return s.ClassifierName }

// Classify implements Classifier.
func (s *StaticClassifier) Classify(ctx context.Context, _ string) (*Classification, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := s.Result
	out.Source = s.ClassifierName
	return &out, nil
}
