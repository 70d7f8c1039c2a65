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
	"sort"

	"github.com/google/uuid"
)

// Render sizes by entity type. Herbs are the primary objects of the domain
// and render larger than everything else. This is presentation metadata
// computed once here; the renderer must not recompute it.
const (
	herbNodeSize    = 25
	defaultNodeSize = 15
)

// RenderNode is a request-scoped node prepared for the external renderer.
// Its id is freshly generated per payload and never reused across requests.
type RenderNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group"`
	Size  int    `json:"size"`
}

// RenderEdge is a request-scoped edge; From and To always reference ids
// present in the payload's node list.
type RenderEdge struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// VisualizationPayload is the self-consistent node/edge graph handed to
// the rendering collaborator. Built fresh per request; never cached.
type VisualizationPayload struct {
	Nodes []RenderNode `json:"nodes"`
	Edges []RenderEdge `json:"edges"`
}

// PayloadWarnings records the non-fatal conditions encountered while
// shaping a payload. Dangling edges and self-loops are always dropped and
// always reported here, never as errors.
type PayloadWarnings struct {
	// DanglingEdges counts edges dropped because an endpoint could not
	// be resolved against the store.
	DanglingEdges int

	// SelfLoops counts edges dropped because from and to mapped to the
	// same render node.
	SelfLoops int

	// EdgelessNodes lists entity ids that had candidate edges but lost
	// all of them to filtering; only node data remains for these.
	EdgelessNodes []string
}

// HasWarnings reports whether any warning condition occurred.
func (w *PayloadWarnings) HasWarnings() bool {
	return w.DanglingEdges > 0 || w.SelfLoops > 0 || len(w.EdgelessNodes) > 0
}

// EmptyGraphError indicates payload construction would produce zero nodes.
// Callers must treat this distinctly from a payload with nodes but zero
// edges, which is valid ("related items found, no known relations among
// them"). It is fatal for the visualization path only and must never
// abort the textual answer path.
type EmptyGraphError struct {
	Context string
}

// Error implements the error interface for EmptyGraphError.
func (e *EmptyGraphError) Error() string {
	return fmt.Sprintf("visualization has no nodes: %s", e.Context)
}

// IsEmptyGraphError checks if an error is an *EmptyGraphError.
func IsEmptyGraphError(err error) bool {
	var ege *EmptyGraphError
	return errors.As(err, &ege)
}

// PayloadBuilder converts entity/relation sets into render payloads.
type PayloadBuilder struct {
	store *GraphStore
}

// NewPayloadBuilder creates a builder over store.
func NewPayloadBuilder(store *GraphStore) *PayloadBuilder {
	return &PayloadBuilder{store: store}
}

// Build shapes the matched entities and their relations into a payload.
//
// # Description
//
// Render-node ids form a request-scoped bijection with entity ids: one
// fresh id per entity, held in a map that lives only for the duration of
// this call. Edge endpoints that resolve in the store are included as
// nodes even when they were not among the matched entities (the
// neighborhood is what makes the graph readable); endpoints that cannot
// be resolved drop their edge with a warning. Self-loops are always
// filtered after id mapping.
//
// # Outputs
//
//   - *VisualizationPayload: Nodes in first-seen order, edges in input
//     relation order. Ids are fresh UUIDs; everything else about the
//     payload is deterministic for a given input order.
//   - *PayloadWarnings: Dropped-edge accounting; never nil.
//   - error: *EmptyGraphError iff the payload would contain zero nodes.
func (b *PayloadBuilder) Build(entities []*Entity, relations []*Relation) (*VisualizationPayload, *PayloadWarnings, error) {
	payload := &VisualizationPayload{}
	warnings := &PayloadWarnings{}

	// Entity id -> render node id, scoped to this build.
	renderIDs := make(map[string]string)

	addNode := func(e *Entity) string {
		if id, ok := renderIDs[e.ID]; ok {
			return id
		}
		id := uuid.NewString()
		renderIDs[e.ID] = id
		payload.Nodes = append(payload.Nodes, RenderNode{
			ID:    id,
			Label: e.Label,
			Group: e.Type.Group(),
			Size:  nodeSize(e.Type),
		})
		return id
	}

	for _, e := range entities {
		addNode(e)
	}

	// Per-entity edge accounting for the "all edges removed" warning.
	candidates := make(map[string]int)
	kept := make(map[string]int)

	for _, rel := range relations {
		candidates[rel.From]++
		candidates[rel.To]++

		fromEntity, fromOK := b.store.EntityByID(rel.From)
		toEntity, toOK := b.store.EntityByID(rel.To)
		if !fromOK || !toOK {
			warnings.DanglingEdges++
			continue
		}

		fromID := addNode(fromEntity)
		toID := addNode(toEntity)
		if fromID == toID {
			warnings.SelfLoops++
			continue
		}

		payload.Edges = append(payload.Edges, RenderEdge{
			ID:    uuid.NewString(),
			From:  fromID,
			To:    toID,
			Label: rel.Type.DisplayLabel(),
		})
		kept[rel.From]++
		kept[rel.To]++
	}

	for entityID, n := range candidates {
		if n > 0 && kept[entityID] == 0 {
			if _, mapped := renderIDs[entityID]; mapped {
				warnings.EdgelessNodes = append(warnings.EdgelessNodes, entityID)
			}
		}
	}
	sort.Strings(warnings.EdgelessNodes)

	if len(payload.Nodes) == 0 {
		return nil, warnings, &EmptyGraphError{Context: "no entities to render"}
	}
	return payload, warnings, nil
}

// BuildFullGraph shapes the entire store through the same rules as Build:
// fresh ids, self-loop filtering, dangling-edge dropping.
func (b *PayloadBuilder) BuildFullGraph() (*VisualizationPayload, *PayloadWarnings, error) {
	payload, warnings, err := b.Build(b.store.Entities(), b.store.Relations())
	if err != nil {
		return nil, warnings, &EmptyGraphError{Context: "store has no entities"}
	}
	return payload, warnings, nil
}

// nodeSize is a pure function of entity type.
func nodeSize(t EntityType) int {
	if t == TypeHerb {
		return herbNodeSize
	}
	return defaultNodeSize
}
