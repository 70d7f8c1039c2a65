// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kgraph

import "sort"

// DefaultTraversalDepth bounds traversal to directly connected relations.
// Deeper traversal is supported via Traverser.Depth but is an extension
// point; 1 hop is the calibrated default.
const DefaultTraversalDepth = 1

// TraversalResult is the de-duplicated relation set around the matched
// entities, plus the warning conditions the caller may surface.
type TraversalResult struct {
	// Relations holds every non-self relation within the depth bound,
	// de-duplicated and sorted lexicographically on (from, type, to) so
	// downstream payloads are byte-stable for an unchanged store.
	Relations []*Relation

	// SelfLoopsFiltered counts malformed self-relations that were
	// encountered and dropped. Never surfaced as edges.
	SelfLoopsFiltered int

	// OnlySelfLoops lists matched entity ids whose every touching edge
	// was a self-relation. Node-only data is available for these; this
	// is a warning condition, not an error, and is distinct from an
	// entity simply having no relations.
	OnlySelfLoops []string

	// NoRelations lists matched entity ids with no touching edges at all.
	NoRelations []string
}

// Traverser walks a bounded neighborhood around resolved entities.
type Traverser struct {
	store *GraphStore

	// Depth is the hop bound; values below 1 behave as 1.
	Depth int
}

// NewTraverser creates a traverser over store with the default depth.
func NewTraverser(store *GraphStore) *Traverser {
	return &Traverser{store: store, Depth: DefaultTraversalDepth}
}

// Traverse collects every relation whose subject or object falls within
// Depth hops of a resolved entity.
//
// Self-relations are never expanded through and never surfaced: they are
// filtered and counted. The per-entity warning lists in the result let the
// caller tell "all edges were self-loops" apart from "no edges at all".
func (t *Traverser) Traverse(matches []ResolvedMatch) TraversalResult {
	result := TraversalResult{}
	if len(matches) == 0 {
		return result
	}

	depth := t.Depth
	if depth < 1 {
		depth = 1
	}

	frontier := make([]string, 0, len(matches))
	visited := make(map[string]bool, len(matches))
	for _, m := range matches {
		if !visited[m.Entity.ID] {
			visited[m.Entity.ID] = true
			frontier = append(frontier, m.Entity.ID)
		}
	}

	// Warning conditions are judged on the matched entities themselves,
	// before any expansion.
	for _, id := range frontier {
		touching := t.store.RelationsTouching(id)
		if len(touching) == 0 {
			result.NoRelations = append(result.NoRelations, id)
			continue
		}
		allSelf := true
		for _, rel := range touching {
			if !rel.IsSelfLoop() {
				allSelf = false
				break
			}
		}
		if allSelf {
			result.OnlySelfLoops = append(result.OnlySelfLoops, id)
		}
	}

	seen := make(map[string]*Relation)
	seenLoops := make(map[*Relation]bool)
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, rel := range t.store.RelationsTouching(id) {
				if rel.IsSelfLoop() {
					if !seenLoops[rel] {
						seenLoops[rel] = true
						result.SelfLoopsFiltered++
					}
					continue
				}
				key := rel.From + "\x00" + string(rel.Type) + "\x00" + rel.To
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = rel

				for _, endpoint := range []string{rel.From, rel.To} {
					if !visited[endpoint] {
						visited[endpoint] = true
						next = append(next, endpoint)
					}
				}
			}
		}
		frontier = next
	}

	result.Relations = make([]*Relation, 0, len(seen))
	for _, rel := range seen {
		result.Relations = append(result.Relations, rel)
	}
	sort.Slice(result.Relations, func(i, j int) bool {
		a, b := result.Relations[i], result.Relations[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.To < b.To
	})
	sort.Strings(result.OnlySelfLoops)
	sort.Strings(result.NoRelations)

	return result
}
