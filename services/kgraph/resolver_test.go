// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findMatch returns the match for the given entity id, if any.
func findMatch(matches []ResolvedMatch, entityID string) (ResolvedMatch, bool) {
	for _, m := range matches {
		if m.Entity.ID == entityID {
			return m, true
		}
	}
	return ResolvedMatch{}, false
}

// =============================================================================
// Exact Matching
// =============================================================================

func TestResolve_ExactSingleToken(t *testing.T) {
	r := NewResolver(loadTestStore(t))

	matches := r.Resolve("What herbs help with stress?")
	require.NotEmpty(t, matches)

	m, ok := findMatch(matches, "c_stress")
	require.True(t, ok, "exact label token should resolve")
	assert.Equal(t, 1.0, m.Score)
	assert.Equal(t, MatchExact, m.Kind)
	assert.Equal(t, "stress", m.Surface)

	// Exact matches sort ahead of any fuzzy hit.
	assert.Equal(t, "c_stress", matches[0].Entity.ID)
}

func TestResolve_ExactMultiWordPhrase(t *testing.T) {
	r := NewResolver(loadTestStore(t))

	matches := r.Resolve("is herbal tea good for me")
	m, ok := findMatch(matches, "t_herbal_tea")
	require.True(t, ok, "multi-word label should resolve at the phrase level")
	assert.Equal(t, 1.0, m.Score)
	assert.Equal(t, MatchExact, m.Kind)
	assert.Equal(t, "herbal tea", m.Surface)
}

func TestResolve_CaseAndPunctuationInsensitive(t *testing.T) {
	r := NewResolver(loadTestStore(t))

	matches := r.Resolve("ASHWAGANDHA!!!")
	m, ok := findMatch(matches, "h_ashwagandha")
	require.True(t, ok)
	assert.Equal(t, 1.0, m.Score)
}

// =============================================================================
// Fuzzy Matching
// =============================================================================

func TestResolve_FuzzyMisspelling(t *testing.T) {
	r := NewResolver(loadTestStore(t))

	// One deletion away from "ashwagandha".
	matches := r.Resolve("tell me about ashwaganda")
	m, ok := findMatch(matches, "h_ashwagandha")
	require.True(t, ok, "near-miss spelling should still resolve")
	assert.Equal(t, MatchFuzzy, m.Kind)
	assert.Greater(t, m.Score, 0.9)
	assert.Less(t, m.Score, 1.0)
}

func TestResolve_PartialContainment(t *testing.T) {
	r := NewResolver(loadTestStore(t))

	// The label appears verbatim inside a noisy token; the containment
	// window scores just below exact.
	matches := r.Resolve("xyzstresss")
	m, ok := findMatch(matches, "c_stress")
	require.True(t, ok)
	assert.Equal(t, MatchFuzzy, m.Kind)
	assert.InDelta(t, 0.95, m.Score, 0.001)
}

func TestResolve_BelowThreshold(t *testing.T) {
	r := NewResolver(loadTestStore(t))

	matches := r.Resolve("unicorn horn")
	assert.Empty(t, matches, "nothing in the graph resembles the query")
}

func TestResolve_ThresholdTunable(t *testing.T) {
	store := loadTestStore(t)

	strict := NewResolver(store)
	strict.Threshold = 0.99
	assert.Empty(t, strict.Resolve("ashwaganda"), "a strict threshold rejects the near-miss")

	lax := NewResolver(store)
	lax.Threshold = 0.75
	_, ok := findMatch(lax.Resolve("ashwaganda"), "h_ashwagandha")
	assert.True(t, ok)
}

// =============================================================================
// Ordering, Dedup, Caps
// =============================================================================

func TestResolve_DedupesPerEntity(t *testing.T) {
	r := NewResolver(loadTestStore(t))

	// Both tokens hit the same entity; the higher-scoring form wins.
	matches := r.Resolve("stress stres")
	m, ok := findMatch(matches, "c_stress")
	require.True(t, ok)
	assert.Equal(t, 1.0, m.Score)

	count := 0
	for _, match := range matches {
		if match.Entity.ID == "c_stress" {
			count++
		}
	}
	assert.Equal(t, 1, count, "one entry per entity")
}

func TestResolve_OrderingIsDeterministic(t *testing.T) {
	r := NewResolver(loadTestStore(t))

	first := r.Resolve("ashwagandha or brahmi for stress")
	for i := 0; i < 5; i++ {
		again := r.Resolve("ashwagandha or brahmi for stress")
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].Entity.ID, again[j].Entity.ID)
			assert.Equal(t, first[j].Score, again[j].Score)
		}
	}
}

func TestResolve_MaxMatchesCap(t *testing.T) {
	r := NewResolver(loadTestStore(t))
	r.MaxMatches = 2

	matches := r.Resolve("ashwagandha brahmi stress anxiety vata")
	assert.Len(t, matches, 2)
	// The cap keeps the best-scoring entries.
	for _, m := range matches {
		assert.Equal(t, 1.0, m.Score)
	}
}

func TestResolve_EmptyAndStopwordQueries(t *testing.T) {
	r := NewResolver(loadTestStore(t))

	cases := []string{"", "   ", "???", "what is the", "how do you"}
	for _, query := range cases {
		assert.Empty(t, r.Resolve(query), "query %q", query)
	}
}

// =============================================================================
// Similarity Primitives
// =============================================================================

func TestSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
		tol  float64
	}{
		{name: "identical", a: "stress", b: "stress", want: 1.0, tol: 0},
		{name: "empty left", a: "", b: "stress", want: 0.0, tol: 0},
		{name: "empty right", a: "stress", b: "", want: 0.0, tol: 0},
		{name: "one deletion", a: "ashwaganda", b: "ashwagandha", want: 1.0 - 1.0/11.0, tol: 0.001},
		{name: "containment window", a: "xyzstresss", b: "stress", want: 0.95, tol: 0.001},
		{name: "unrelated", a: "unicorn", b: "vata", want: 0.3, tol: 0.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := similarity(tc.a, tc.b)
			assert.InDelta(t, tc.want, got, tc.tol)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"stress", "stress", 0},
		{"ashwaganda", "ashwagandha", 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, levenshtein([]rune(tc.a), []rune(tc.b)),
			"levenshtein(%q, %q)", tc.a, tc.b)
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"what", "helps", "stress"}, tokenize("What helps stress?"))
	assert.Equal(t, []string{"herbal", "tea"}, tokenize("  Herbal-Tea!  "))
	assert.Empty(t, tokenize("?!(),."))
}
