// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package kgraph implements the knowledge-graph query and retrieval engine.
//
// The engine turns a free-text question into three things: a set of graph
// entities resolved from the query (tolerant of misspellings), the relations
// surrounding those entities within a bounded traversal, and a render-ready
// node/edge payload for the UI's graph view. It performs no network I/O;
// everything operates over the in-memory GraphStore built once at startup.
//
// The pipeline is: Resolver -> Traverser -> Aggregator + PayloadBuilder ->
// confidence scoring, tied together by Engine.Query.
package kgraph

import "strings"

// =============================================================================
// Entity and Relation Vocabulary
// =============================================================================

// EntityType classifies a graph entity. The set is fixed by the curated
// dataset; entities carrying any other type are dropped at load time.
type EntityType string

const (
	TypeHerb        EntityType = "Herb"
	TypeCondition   EntityType = "Condition"
	TypeSymptom     EntityType = "Symptom"
	TypeTreatment   EntityType = "Treatment"
	TypeDosha       EntityType = "Dosha"
	TypeCompound    EntityType = "Compound"
	TypePreparation EntityType = "Preparation"
	TypeSource      EntityType = "Source"
)

// entityTypes is the closed vocabulary accepted by the loader.
var entityTypes = map[EntityType]bool{
	TypeHerb:        true,
	TypeCondition:   true,
	TypeSymptom:     true,
	TypeTreatment:   true,
	TypeDosha:       true,
	TypeCompound:    true,
	TypePreparation: true,
	TypeSource:      true,
}

// ParseEntityType validates a raw type string against the fixed vocabulary.
func ParseEntityType(s string) (EntityType, bool) {
	t := EntityType(s)
	return t, entityTypes[t]
}

// Group returns the lowercased group name used for render-node grouping.
func (t EntityType) Group() string {
	return strings.ToLower(string(t))
}

// RelationType names a directed, typed edge in the graph.
type RelationType string

const (
	RelRecommendedFor     RelationType = "recommendedFor"
	RelTreats             RelationType = "treats"
	RelHasSymptom         RelationType = "hasSymptom"
	RelBalancesDosha      RelationType = "balancesDosha"
	RelContainsHerb       RelationType = "containsHerb"
	RelContains           RelationType = "contains"
	RelContraindicatedFor RelationType = "contraindicatedWith"
)

// relationLabels maps each vocabulary entry to its human-readable edge label.
var relationLabels = map[RelationType]string{
	RelRecommendedFor:     "Recommended For",
	RelTreats:             "Treats",
	RelHasSymptom:         "Has Symptom",
	RelBalancesDosha:      "Balances Dosha",
	RelContainsHerb:       "Contains Herb",
	RelContains:           "Contains",
	RelContraindicatedFor: "Contraindicated With",
}

// ParseRelationType validates a raw relation string against the vocabulary.
func ParseRelationType(s string) (RelationType, bool) {
	t := RelationType(s)
	_, ok := relationLabels[t]
	return t, ok
}

// DisplayLabel returns the human-readable form of the relation type,
// e.g. "recommendedFor" -> "Recommended For". Unknown types fall back to
// the raw string so malformed data never panics the presentation path.
func (t RelationType) DisplayLabel() string {
	if label, ok := relationLabels[t]; ok {
		return label
	}
	return string(t)
}

// =============================================================================
// Core Data Model
// =============================================================================

// Attributes carries the literal properties attached to an entity.
//
// The expected key set is closed: Description holds the ayur:description
// literals. Anything else from the source data lands in Extra so that
// unanticipated properties survive the round trip to the API without the
// engine having to understand them.
type Attributes struct {
	// Description holds zero or more free-text description literals.
	Description []string

	// Extra is the catch-all bucket for properties outside the
	// documented key set (e.g. dosage notes, potency).
	Extra map[string]string
}

// Entity is a typed, labeled node in the knowledge graph.
//
// Entities are created by the loader and never mutated afterwards; the
// whole store is shared read-only across requests, so pointer sharing is
// safe without locking.
type Entity struct {
	ID    string
	Label string
	Type  EntityType
	Attrs Attributes
}

// Details flattens the attribute map into the wire shape used by the API:
// description as a string array plus any extra literal properties.
func (e *Entity) Details() map[string]any {
	details := make(map[string]any, len(e.Attrs.Extra)+1)
	if len(e.Attrs.Description) > 0 {
		details["description"] = e.Attrs.Description
	}
	for k, v := range e.Attrs.Extra {
		details[k] = v
	}
	return details
}

// Relation is a directed, typed edge between two entity ids.
//
// From and To always reference entities present in the owning store; a
// relation whose endpoints do not resolve is dropped at load time. Self
// relations (From == To) may survive loading but are filtered from every
// query-time result.
type Relation struct {
	From  string
	To    string
	Type  RelationType
	Attrs map[string]string
}

// IsSelfLoop reports whether the relation points back at its own subject.
func (r *Relation) IsSelfLoop() bool {
	return r.From == r.To
}

// MatchKind distinguishes how a query phrase matched an entity label.
type MatchKind string

const (
	MatchExact MatchKind = "exact"
	MatchFuzzy MatchKind = "fuzzy"
)

// ResolvedMatch links a query surface form to a graph entity.
//
// Matches live only for the duration of one request.
type ResolvedMatch struct {
	// Entity is the matched graph entity.
	Entity *Entity

	// Surface is the query phrase that produced the match.
	Surface string

	// Score is the match quality in [0,1]; 1.0 means an exact
	// normalized-label match.
	Score float64

	// Kind is exact or fuzzy.
	Kind MatchKind
}

// Confidence is the coarse retrieval-quality signal gating whether the
// structured knowledge-graph section is presented to the user.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)
