// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kgraph

// NearExactThreshold is the minimum match score considered near-exact for
// confidence purposes.
const NearExactThreshold = 0.9

// ScoreConfidence classifies retrieval quality from resolution and
// traversal results.
//
// The signal is high iff at least one match is near-exact (score >=
// NearExactThreshold) AND the relation set is non-empty; everything else
// is low: nothing resolved, entities without relations, or only weak fuzzy
// matches. The caller uses this single binary gate to decide whether the
// structured knowledge-graph section is presented at all.
//
// Scoring is pure and deterministic; adding relations to a result that
// already has a near-exact match can never downgrade it.
func ScoreConfidence(matches []ResolvedMatch, relations []*Relation) Confidence {
	if len(relations) == 0 {
		return ConfidenceLow
	}
	for _, m := range matches {
		if m.Score >= NearExactThreshold {
			return ConfidenceHigh
		}
	}
	return ConfidenceLow
}
