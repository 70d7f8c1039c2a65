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
)

// DefaultSummaryCap bounds how many summaries one relation type may
// contribute, keeping the grounding context and the rendered answer small.
const DefaultSummaryCap = 4

// GroupSide selects which endpoint of a relation acts as the grouping
// subject when edges of one type are folded into summaries.
type GroupSide int

const (
	// GroupByFrom groups edges under their subject (from) label.
	GroupByFrom GroupSide = iota

	// GroupByTo groups edges under their object (to) label.
	GroupByTo
)

// subjectSides declares the natural grouping subject per relation type.
// For treats and recommendedFor the herb or treatment on the from side is
// the natural subject, so its conditions fold into one summary
// ("Ashwagandha -> Stress, Anxiety") instead of one summary per edge.
// Types absent from this table fall back to grouping by the from label.
var subjectSides = map[RelationType]GroupSide{
	RelRecommendedFor: GroupByFrom,
	RelTreats:         GroupByFrom,
	RelHasSymptom:     GroupByFrom,
	RelBalancesDosha:  GroupByFrom,
	RelContainsHerb:   GroupByFrom,
	RelContains:       GroupByFrom,
}

// RelationSummary is one human-readable grouped fact. FromLabel and
// ToLabel carry display labels; whichever side is not the grouping subject
// holds the comma-joined object labels.
type RelationSummary struct {
	FromLabel string `json:"fromLabel"`
	ToLabel   string `json:"toLabel"`
	Relation  string `json:"relation"`
}

// Aggregator folds a raw relation set into per-type summary lists.
//
// Aggregation is pure and idempotent: the same relation set always yields
// identical grouped output, in identical order.
type Aggregator struct {
	store *GraphStore

	// Cap bounds summaries per relation type; values below 1 behave as
	// DefaultSummaryCap.
	Cap int

	// Subjects overrides the package grouping table; nil uses the default.
	Subjects map[RelationType]GroupSide
}

// NewAggregator creates an aggregator over store with default tunables.
func NewAggregator(store *GraphStore) *Aggregator {
	return &Aggregator{store: store, Cap: DefaultSummaryCap}
}

// Aggregate groups relations by type, then folds each type's edges under
// their declared subject label.
//
// Objects under one subject are de-duplicated, sorted, and joined, so a
// subject with many edges still renders as a single summary. Per type, at
// most Cap summaries survive, chosen in subject label order.
func (a *Aggregator) Aggregate(relations []*Relation) map[RelationType][]RelationSummary {
	if len(relations) == 0 {
		return map[RelationType][]RelationSummary{}
	}

	limit := a.Cap
	if limit < 1 {
		limit = DefaultSummaryCap
	}
	table := a.Subjects
	if table == nil {
		table = subjectSides
	}

	// relation type -> subject label -> object label set
	grouped := make(map[RelationType]map[string]map[string]bool)
	for _, rel := range relations {
		if rel.IsSelfLoop() {
			continue
		}
		fromLabel, ok := a.labelOf(rel.From)
		if !ok {
			continue
		}
		toLabel, ok := a.labelOf(rel.To)
		if !ok {
			continue
		}

		subject, object := fromLabel, toLabel
		if table[rel.Type] == GroupByTo {
			subject, object = toLabel, fromLabel
		}

		if grouped[rel.Type] == nil {
			grouped[rel.Type] = make(map[string]map[string]bool)
		}
		if grouped[rel.Type][subject] == nil {
			grouped[rel.Type][subject] = make(map[string]bool)
		}
		grouped[rel.Type][subject][object] = true
	}

	summaries := make(map[RelationType][]RelationSummary, len(grouped))
	for relType, bySubject := range grouped {
		subjects := make([]string, 0, len(bySubject))
		for subject := range bySubject {
			subjects = append(subjects, subject)
		}
		sort.Strings(subjects)
		if len(subjects) > limit {
			subjects = subjects[:limit]
		}

		list := make([]RelationSummary, 0, len(subjects))
		for _, subject := range subjects {
			objects := make([]string, 0, len(bySubject[subject]))
			for object := range bySubject[subject] {
				objects = append(objects, object)
			}
			sort.Strings(objects)
			joined := strings.Join(objects, ", ")

			summary := RelationSummary{
				FromLabel: subject,
				ToLabel:   joined,
				Relation:  relType.DisplayLabel(),
			}
			if table[relType] == GroupByTo {
				summary.FromLabel = joined
				summary.ToLabel = subject
			}
			list = append(list, summary)
		}
		summaries[relType] = list
	}
	return summaries
}

// labelOf resolves an entity id to its display label.
func (a *Aggregator) labelOf(id string) (string, bool) {
	e, ok := a.store.EntityByID(id)
	if !ok {
		return "", false
	}
	return e.Label, true
}
