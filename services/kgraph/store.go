// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kgraph

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Source Format
// =============================================================================

// sourceEntity is the YAML shape of one entity row in the graph file.
type sourceEntity struct {
	ID          string            `yaml:"id"`
	Label       string            `yaml:"label"`
	Type        string            `yaml:"type"`
	Description string            `yaml:"description"`
	Attrs       map[string]string `yaml:"attrs"`
}

// sourceRelation is the YAML shape of one relation row in the graph file.
type sourceRelation struct {
	From  string            `yaml:"from"`
	To    string            `yaml:"to"`
	Type  string            `yaml:"type"`
	Attrs map[string]string `yaml:"attrs"`
}

// sourceGraph is the root document of the graph file.
type sourceGraph struct {
	Entities  []sourceEntity  `yaml:"entities"`
	Relations []sourceRelation `yaml:"relations"`
}

// =============================================================================
// Errors
// =============================================================================

// LoadError indicates the graph store could not be initialized at all.
//
// This is fatal at process startup: with no store, no query is serviceable.
// Individually malformed rows do NOT produce a LoadError; they are dropped
// and counted so that partially bad data degrades gracefully.
type LoadError struct {
	Source string
	Err    error
}

// Error implements the error interface for LoadError.
func (e *LoadError) Error() string {
	return fmt.Sprintf("graph load failed (%s): %v", e.Source, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError checks if an error is a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// =============================================================================
// GraphStore
// =============================================================================

// GraphStore owns the fixed set of entities and relations.
//
// # Description
//
// The store is built once per process from the persisted graph file and is
// read-only afterwards. That immutability is a hard invariant, not an
// optimization: because no write path exists after Load returns, the store
// is safe for unlimited concurrent readers with no locking.
//
// All lookup methods return data in source insertion order so that results
// derived from an unchanged store are byte-stable across calls.
type GraphStore struct {
	entities []*Entity
	byID     map[string]*Entity
	byLabel  map[string][]*Entity

	relations []*Relation
	outbound  map[string][]*Relation
	inbound   map[string][]*Relation

	droppedRows int
	selfLoops   int
}

// NormalizeLabel lowercases a label and collapses internal whitespace.
// Both the label index and the resolver use this normalization, so a
// lookup key computed by either side matches the other.
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// LoadFromFile reads and indexes the graph file at path.
//
// Returns *LoadError if the file cannot be read or parsed, or if it yields
// zero valid entities.
func LoadFromFile(path string) (*GraphStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	defer f.Close()

	store, err := Load(f)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = path
		}
		return nil, err
	}
	return store, nil
}

// Load parses the YAML graph document from r and builds the indexed store.
//
// # Description
//
// Row-level problems never abort the load. An entity with an empty or
// duplicate id, an empty label, or a type outside the fixed vocabulary is
// dropped. A relation whose type is outside the vocabulary, or whose
// endpoints don't resolve to loaded entities, is dropped. Dropped rows are
// counted and logged once at the end of the load.
//
// Self-relations (from == to) conform to the vocabulary and are retained
// here, but they are counted and are filtered from every query-time result
// by the traversal engine and the payload builder.
//
// # Outputs
//
//   - *GraphStore: Ready for concurrent read access.
//   - error: *LoadError on unreadable input, malformed YAML, or a document
//     with zero valid entities.
func Load(r io.Reader) (*GraphStore, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Source: "reader", Err: err}
	}

	var doc sourceGraph
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &LoadError{Source: "reader", Err: fmt.Errorf("parse yaml: %w", err)}
	}

	store := &GraphStore{
		byID:     make(map[string]*Entity),
		byLabel:  make(map[string][]*Entity),
		outbound: make(map[string][]*Relation),
		inbound:  make(map[string][]*Relation),
	}

	for _, row := range doc.Entities {
		entityType, ok := ParseEntityType(row.Type)
		if !ok || row.ID == "" || row.Label == "" {
			store.droppedRows++
			continue
		}
		if _, dup := store.byID[row.ID]; dup {
			store.droppedRows++
			continue
		}

		entity := &Entity{
			ID:    row.ID,
			Label: row.Label,
			Type:  entityType,
		}
		if row.Description != "" {
			entity.Attrs.Description = []string{row.Description}
		}
		if len(row.Attrs) > 0 {
			entity.Attrs.Extra = row.Attrs
		}

		store.entities = append(store.entities, entity)
		store.byID[entity.ID] = entity
		key := NormalizeLabel(entity.Label)
		store.byLabel[key] = append(store.byLabel[key], entity)
	}

	if len(store.entities) == 0 {
		return nil, &LoadError{Source: "reader", Err: errors.New("no valid entities in source")}
	}

	for _, row := range doc.Relations {
		relType, ok := ParseRelationType(row.Type)
		if !ok {
			store.droppedRows++
			continue
		}
		if _, ok := store.byID[row.From]; !ok {
			store.droppedRows++
			continue
		}
		if _, ok := store.byID[row.To]; !ok {
			store.droppedRows++
			continue
		}

		rel := &Relation{From: row.From, To: row.To, Type: relType, Attrs: row.Attrs}
		if rel.IsSelfLoop() {
			store.selfLoops++
		}
		store.relations = append(store.relations, rel)
		store.outbound[rel.From] = append(store.outbound[rel.From], rel)
		store.inbound[rel.To] = append(store.inbound[rel.To], rel)
	}

	slog.Info("Knowledge graph loaded",
		"entities", len(store.entities),
		"relations", len(store.relations),
		"droppedRows", store.droppedRows,
		"selfLoops", store.selfLoops,
	)
	if store.droppedRows > 0 {
		slog.Warn("Dropped malformed graph rows", "count", store.droppedRows)
	}

	return store, nil
}

// =============================================================================
// Lookups
// =============================================================================

// EntityByID returns the entity with the given stable id.
func (s *GraphStore) EntityByID(id string) (*Entity, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// EntitiesByLabel returns all entities whose normalized label equals the
// normalized form of label. Ties are broken by insertion order in the
// source. The returned slice must not be modified.
func (s *GraphStore) EntitiesByLabel(label string) []*Entity {
	return s.byLabel[NormalizeLabel(label)]
}

// Entities returns every loaded entity in source order.
// The returned slice must not be modified.
func (s *GraphStore) Entities() []*Entity {
	return s.entities
}

// Relations returns every loaded relation in source order.
// The returned slice must not be modified.
func (s *GraphStore) Relations() []*Relation {
	return s.relations
}

// RelationsFrom returns the outbound relations of an entity in source
// order, optionally filtered to a single relation type (pass "" for all).
func (s *GraphStore) RelationsFrom(entityID string, relType RelationType) []*Relation {
	rels := s.outbound[entityID]
	if relType == "" {
		return rels
	}
	var filtered []*Relation
	for _, r := range rels {
		if r.Type == relType {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// RelationsTouching returns every relation where the entity appears as
// subject or object: outbound first, then inbound, each in source order.
func (s *GraphStore) RelationsTouching(entityID string) []*Relation {
	out := s.outbound[entityID]
	in := s.inbound[entityID]
	if len(in) == 0 {
		return out
	}
	touching := make([]*Relation, 0, len(out)+len(in))
	touching = append(touching, out...)
	touching = append(touching, in...)
	return touching
}

// EntityCount returns the number of loaded entities.
func (s *GraphStore) EntityCount() int { return len(s.entities) }

// RelationCount returns the number of loaded relations.
func (s *GraphStore) RelationCount() int { return len(s.relations) }

// DroppedRows returns how many malformed rows the loader discarded.
func (s *GraphStore) DroppedRows() int { return s.droppedRows }

// SelfLoopCount returns how many retained relations are self-loops.
func (s *GraphStore) SelfLoopCount() int { return s.selfLoops }
