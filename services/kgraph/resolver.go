// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kgraph

import (
	"sort"
	"strings"
	"unicode"
)

// Resolver defaults. The threshold is deliberately a tunable field on the
// Resolver, not a per-call argument; calibrate it against a labeled query
// set rather than editing call sites.
const (
	// DefaultFuzzyThreshold is the minimum similarity for a fuzzy match.
	DefaultFuzzyThreshold = 0.75

	// DefaultMaxPhraseTokens bounds the n-gram window used to build
	// candidate phrases from the query.
	DefaultMaxPhraseTokens = 3

	// DefaultMaxMatches caps how many resolved entities one query yields.
	DefaultMaxMatches = 10

	// partialMatchFactor discounts containment matches so that a label
	// found verbatim inside a longer token scores just below exact.
	partialMatchFactor = 0.95

	// minFuzzyTokenLen excludes very short tokens from fuzzy comparison;
	// they match too many labels to be useful.
	minFuzzyTokenLen = 3
)

// queryStopwords are common question words that never name an entity.
// They are skipped for fuzzy comparison (exact phrase matches still win:
// no entity label collides with this set).
var queryStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "can": true,
	"do": true, "does": true, "for": true, "from": true, "good": true,
	"help": true, "helps": true, "how": true, "in": true, "is": true,
	"it": true, "me": true, "my": true, "of": true, "on": true,
	"or": true, "should": true, "take": true, "tell": true, "the": true,
	"to": true, "use": true, "used": true, "what": true, "which": true,
	"why": true, "will": true, "with": true, "you": true,
}

// Resolver maps free-text query phrases to graph entities.
//
// # Description
//
// Resolution is pure computation over the in-memory store: candidate
// phrases (single tokens and short n-grams) are matched exactly against
// normalized entity labels, and phrases with no exact match fall back to a
// fuzzy edit-distance comparison against every label. Results are
// deduplicated per entity (max score wins) and ordered deterministically.
//
// # Thread Safety
//
// Safe for concurrent use once the tunable fields are set; do not mutate
// Threshold, MaxPhraseTokens, or MaxMatches after the resolver is shared.
type Resolver struct {
	store *GraphStore

	// Threshold is the minimum fuzzy similarity in [0,1].
	Threshold float64

	// MaxPhraseTokens is the n-gram window bound for candidate phrases.
	MaxPhraseTokens int

	// MaxMatches caps the number of entities returned per query.
	MaxMatches int
}

// NewResolver creates a resolver over store with default tunables.
func NewResolver(store *GraphStore) *Resolver {
	return &Resolver{
		store:           store,
		Threshold:       DefaultFuzzyThreshold,
		MaxPhraseTokens: DefaultMaxPhraseTokens,
		MaxMatches:      DefaultMaxMatches,
	}
}

// Resolve maps a raw query to an ordered sequence of entity matches.
//
// # Description
//
// The query is tokenized into candidate phrases up to MaxPhraseTokens
// tokens wide, so multi-word labels ("herbal tea") are caught at the
// phrase level. Each phrase first tries an exact match (score 1.0) against
// the normalized label index; phrases without an exact match are compared
// fuzzily against every label and accepted above Threshold.
//
// # Outputs
//
//   - []ResolvedMatch: Highest score first; ties broken by shorter surface
//     text, then by entity id. Empty for queries with no recognizable
//     entity tokens — that is a valid state, not an error.
func (r *Resolver) Resolve(query string) []ResolvedMatch {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	// Best match per entity id across all candidate phrases.
	best := make(map[string]ResolvedMatch)

	record := func(m ResolvedMatch) {
		prev, seen := best[m.Entity.ID]
		if !seen || m.Score > prev.Score ||
			(m.Score == prev.Score && len(m.Surface) < len(prev.Surface)) {
			best[m.Entity.ID] = m
		}
	}

	for width := 1; width <= r.MaxPhraseTokens; width++ {
		for start := 0; start+width <= len(tokens); start++ {
			phrase := strings.Join(tokens[start:start+width], " ")

			if entities := r.store.EntitiesByLabel(phrase); len(entities) > 0 {
				for _, e := range entities {
					record(ResolvedMatch{Entity: e, Surface: phrase, Score: 1.0, Kind: MatchExact})
				}
				continue
			}

			if !fuzzyCandidate(tokens[start : start+width]) {
				continue
			}
			for _, e := range r.store.Entities() {
				score := similarity(phrase, NormalizeLabel(e.Label))
				if score >= r.Threshold {
					record(ResolvedMatch{Entity: e, Surface: phrase, Score: score, Kind: MatchFuzzy})
				}
			}
		}
	}

	matches := make([]ResolvedMatch, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if len(matches[i].Surface) != len(matches[j].Surface) {
			return len(matches[i].Surface) < len(matches[j].Surface)
		}
		return matches[i].Entity.ID < matches[j].Entity.ID
	})

	if len(matches) > r.MaxMatches {
		matches = matches[:r.MaxMatches]
	}
	return matches
}

// tokenize lowercases the query and splits it into alphanumeric tokens.
func tokenize(query string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, query)
	return strings.Fields(cleaned)
}

// fuzzyCandidate reports whether a phrase is worth the full fuzzy scan.
// Stopwords and very short single tokens produce too many false matches.
func fuzzyCandidate(tokens []string) bool {
	meaningful := false
	for _, t := range tokens {
		if !queryStopwords[t] && len(t) >= minFuzzyTokenLen {
			meaningful = true
		}
	}
	return meaningful
}

// similarity scores two normalized strings in [0,1].
//
// The score is the greater of the full normalized Levenshtein ratio and a
// discounted partial ratio (the shorter string slid over every
// equal-length window of the longer one). The partial term is what lets a
// typo-laden token that still contains a label, e.g. "xyzstresss" around
// "stress", resolve against that label; the discount keeps such matches
// distinguishable from true exact matches.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	ra, rb := []rune(a), []rune(b)
	full := levenshteinRatio(ra, rb)

	shorter, longer := ra, rb
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	partial := 0.0
	if len(shorter) < len(longer) {
		for i := 0; i+len(shorter) <= len(longer); i++ {
			window := longer[i : i+len(shorter)]
			if r := levenshteinRatio(shorter, window); r > partial {
				partial = r
			}
		}
	}

	if scaled := partial * partialMatchFactor; scaled > full {
		return scaled
	}
	return full
}

// levenshteinRatio converts edit distance to a similarity in [0,1].
func levenshteinRatio(a, b []rune) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes the edit distance between two rune slices using a
// two-row dynamic programming table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
