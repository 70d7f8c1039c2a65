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

// matchFor builds a ResolvedMatch directly from a store entity.
func matchFor(t *testing.T, store *GraphStore, entityID string) ResolvedMatch {
	t.Helper()
	e, ok := store.EntityByID(entityID)
	require.True(t, ok, "fixture entity %s", entityID)
	return ResolvedMatch{Entity: e, Surface: e.Label, Score: 1.0, Kind: MatchExact}
}

func TestTraverse_OneHop(t *testing.T) {
	store := loadTestStore(t)
	tr := NewTraverser(store)

	result := tr.Traverse([]ResolvedMatch{matchFor(t, store, "h_ashwagandha")})

	require.Len(t, result.Relations, 3)
	// Sorted on (from, type, to): balancesDosha sorts before recommendedFor,
	// and the recommendedFor edges order by object id.
	assert.Equal(t, RelBalancesDosha, result.Relations[0].Type)
	assert.Equal(t, "c_anxiety", result.Relations[1].To)
	assert.Equal(t, "c_stress", result.Relations[2].To)

	assert.Zero(t, result.SelfLoopsFiltered)
	assert.Empty(t, result.OnlySelfLoops)
	assert.Empty(t, result.NoRelations)
}

func TestTraverse_IncludesInboundEdges(t *testing.T) {
	store := loadTestStore(t)
	tr := NewTraverser(store)

	result := tr.Traverse([]ResolvedMatch{matchFor(t, store, "c_stress")})

	// hasSymptom out, plus two recommendedFor and one treats in.
	assert.Len(t, result.Relations, 4)
}

func TestTraverse_DepthTwo(t *testing.T) {
	store := loadTestStore(t)
	tr := NewTraverser(store)
	tr.Depth = 2

	result := tr.Traverse([]ResolvedMatch{matchFor(t, store, "h_ashwagandha")})

	// Hop 1 reaches stress, anxiety, and vata; hop 2 picks up everything
	// touching stress: brahmi's recommendation, the tea treatment, and
	// the insomnia symptom.
	assert.Len(t, result.Relations, 6)
}

func TestTraverse_DeduplicatesAcrossEntities(t *testing.T) {
	store := loadTestStore(t)
	tr := NewTraverser(store)

	// Ashwagandha and Stress share the edge between them; it must appear
	// exactly once.
	result := tr.Traverse([]ResolvedMatch{
		matchFor(t, store, "h_ashwagandha"),
		matchFor(t, store, "c_stress"),
	})

	seen := 0
	for _, rel := range result.Relations {
		if rel.From == "h_ashwagandha" && rel.To == "c_stress" {
			seen++
		}
	}
	assert.Equal(t, 1, seen)
}

func TestTraverse_SelfLoopOnlyEntity(t *testing.T) {
	store := loadTestStore(t)
	tr := NewTraverser(store)

	result := tr.Traverse([]ResolvedMatch{matchFor(t, store, "h_loopy")})

	assert.Empty(t, result.Relations, "self relations are never surfaced")
	assert.Equal(t, 1, result.SelfLoopsFiltered)
	assert.Equal(t, []string{"h_loopy"}, result.OnlySelfLoops)
	assert.Empty(t, result.NoRelations)
}

func TestTraverse_EntityWithNoRelations(t *testing.T) {
	store := loadTestStore(t)
	tr := NewTraverser(store)

	result := tr.Traverse([]ResolvedMatch{matchFor(t, store, "h_hermit")})

	assert.Empty(t, result.Relations)
	assert.Equal(t, []string{"h_hermit"}, result.NoRelations)
	assert.Empty(t, result.OnlySelfLoops, "no relations is distinct from only self-loops")
}

func TestTraverse_NoMatches(t *testing.T) {
	tr := NewTraverser(loadTestStore(t))

	result := tr.Traverse(nil)
	assert.Empty(t, result.Relations)
	assert.Empty(t, result.OnlySelfLoops)
	assert.Empty(t, result.NoRelations)
}

func TestTraverse_DeterministicOrder(t *testing.T) {
	store := loadTestStore(t)
	tr := NewTraverser(store)
	tr.Depth = 2

	matches := []ResolvedMatch{
		matchFor(t, store, "h_ashwagandha"),
		matchFor(t, store, "t_herbal_tea"),
	}

	first := tr.Traverse(matches)
	for i := 0; i < 5; i++ {
		again := tr.Traverse(matches)
		require.Equal(t, len(first.Relations), len(again.Relations))
		for j := range first.Relations {
			assert.Equal(t, first.Relations[j], again.Relations[j])
		}
	}
}
