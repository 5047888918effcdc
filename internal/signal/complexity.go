// Copyright 2026 The routecortex Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package signal

import (
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/tiktoken-go/tokenizer"
)

var (
	encOnce sync.Once
	enc     tokenizer.Codec
)

// countTokens returns the tiktoken token count for text, falling back to a
// whitespace split if the codec cannot be initialized.
func countTokens(text string) int {
	encOnce.Do(func() {
		var err error
		enc, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			log.Warnf("tokenizer init failed, using word-count approximation: %v", err)
		}
	})
	if enc != nil {
		if n, err := enc.Count(text); err == nil {
			return n
		}
	}
	return len(strings.Fields(text))
}

// complexityMarkers are terms whose presence signals an inherently complex
// request regardless of length.
var complexityMarkers = []string{
	"integration", "migration", "architecture", "deployment", "kubernetes",
	"database schema", "race condition", "stack trace", "regression",
	"data pipeline", "authentication flow", "load balancer", "replication",
}

// tokenScoreTable maps token-count thresholds to a partial score. The first
// row whose MinTokens is satisfied applies.
var tokenScoreTable = []struct {
	MinTokens int
	Score     float64
}{
	{200, 1.0},
	{80, 0.7},
	{30, 0.4},
	{0, 0.2},
}

// Component weights of the composite complexity score.
const (
	tokenComponentWeight  = 0.5
	entityComponentWeight = 0.2
	markerComponentWeight = 0.3
)

// Level thresholds over the composite score.
const (
	complexThreshold  = 0.65
	moderateThreshold = 0.35
)

// deriveComplexity computes the complexity signal from message length, entity
// count and marker terms using the tables above.
func deriveComplexity(content string, entityCount int) Complexity {
	tokens := countTokens(content)

	tokenScore := 0.0
	for _, row := range tokenScoreTable {
		if tokens >= row.MinTokens {
			tokenScore = row.Score
			break
		}
	}

	entityScore := float64(entityCount) / 3.0
	if entityScore > 1 {
		entityScore = 1
	}

	lower := strings.ToLower(content)
	var markers []string
	for _, m := range complexityMarkers {
		if strings.Contains(lower, m) {
			markers = append(markers, m)
		}
	}
	markerScore := float64(len(markers)) / 2.0
	if markerScore > 1 {
		markerScore = 1
	}

	score := tokenComponentWeight*tokenScore +
		entityComponentWeight*entityScore +
		markerComponentWeight*markerScore

	level := ComplexitySimple
	switch {
	case score >= complexThreshold:
		level = ComplexityComplex
	case score >= moderateThreshold:
		level = ComplexityModerate
	}

	return Complexity{
		Level:   level,
		Score:   score,
		Tokens:  tokens,
		Markers: markers,
	}
}
