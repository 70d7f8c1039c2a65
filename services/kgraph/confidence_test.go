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
)

func scoredMatch(score float64) ResolvedMatch {
	return ResolvedMatch{
		Entity: &Entity{ID: "e1", Label: "E1", Type: TypeHerb},
		Score:  score,
		Kind:   MatchFuzzy,
	}
}

func TestScoreConfidence(t *testing.T) {
	someRelations := []*Relation{{From: "a", To: "b", Type: RelTreats}}

	cases := []struct {
		name      string
		matches   []ResolvedMatch
		relations []*Relation
		want      Confidence
	}{
		{
			name: "no matches no relations",
			want: ConfidenceLow,
		},
		{
			name:      "exact match with relations",
			matches:   []ResolvedMatch{scoredMatch(1.0)},
			relations: someRelations,
			want:      ConfidenceHigh,
		},
		{
			name:      "near-exact boundary is high",
			matches:   []ResolvedMatch{scoredMatch(0.9)},
			relations: someRelations,
			want:      ConfidenceHigh,
		},
		{
			name:      "just below boundary is low",
			matches:   []ResolvedMatch{scoredMatch(0.89)},
			relations: someRelations,
			want:      ConfidenceLow,
		},
		{
			name:    "exact match but no relations",
			matches: []ResolvedMatch{scoredMatch(1.0)},
			want:    ConfidenceLow,
		},
		{
			name:      "weak match among strong",
			matches:   []ResolvedMatch{scoredMatch(0.76), scoredMatch(0.97)},
			relations: someRelations,
			want:      ConfidenceHigh,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ScoreConfidence(tc.matches, tc.relations))
		})
	}
}

// TestScoreConfidence_MonotoneInRelations verifies that adding relations
// to a result that already scores high can never downgrade it.
func TestScoreConfidence_MonotoneInRelations(t *testing.T) {
	matches := []ResolvedMatch{scoredMatch(0.95)}
	relations := []*Relation{{From: "a", To: "b", Type: RelTreats}}

	assert.Equal(t, ConfidenceHigh, ScoreConfidence(matches, relations))

	for i := 0; i < 10; i++ {
		relations = append(relations, &Relation{From: "a", To: "c", Type: RelRecommendedFor})
		assert.Equal(t, ConfidenceHigh, ScoreConfidence(matches, relations))
	}
}
