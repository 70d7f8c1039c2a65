// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kgraph

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// engineTracer is the OpenTelemetry tracer for engine operations.
var engineTracer = otel.Tracer("ayurgraph.kgraph.engine")

// RetrievalWarnings merges the non-fatal conditions from traversal and
// payload shaping. All of these are logged and may be annotated in the
// response, never surfaced as errors.
type RetrievalWarnings struct {
	SelfLoopsFiltered int
	OnlySelfLoops     []string
	NoRelations       []string
	Payload           PayloadWarnings
}

// Retrieval is the complete structured result for one query. It is
// request-scoped: nothing in it is cached or shared across requests.
type Retrieval struct {
	Query      string
	Matches    []ResolvedMatch
	Relations  []*Relation
	Summaries  map[RelationType][]RelationSummary
	Confidence Confidence

	// Payload is nil when nothing resolved (the visualization path has
	// no nodes); the textual answer path continues regardless.
	Payload *VisualizationPayload

	Warnings RetrievalWarnings
}

// HasMatches reports whether any entity resolved from the query.
func (r *Retrieval) HasMatches() bool { return len(r.Matches) > 0 }

// Engine ties resolver, traversal, aggregation, confidence scoring, and
// payload shaping into the single entry point the service layer calls.
//
// The engine is stateless across requests and safe for concurrent use;
// the only shared structure is the read-only store.
type Engine struct {
	store      *GraphStore
	Resolver   *Resolver
	Traverser  *Traverser
	Aggregator *Aggregator
	builder    *PayloadBuilder
}

// NewEngine wires the pipeline components over a loaded store. Tunables
// (fuzzy threshold, traversal depth, summary cap) are exposed through the
// component fields and should be set before the engine is shared.
func NewEngine(store *GraphStore) *Engine {
	return &Engine{
		store:      store,
		Resolver:   NewResolver(store),
		Traverser:  NewTraverser(store),
		Aggregator: NewAggregator(store),
		builder:    NewPayloadBuilder(store),
	}
}

// Store exposes the underlying read-only store.
func (e *Engine) Store() *GraphStore { return e.store }

// Query runs the full retrieval pipeline for one free-text query.
//
// # Description
//
// Resolution emptiness and traversal emptiness are recovered here into
// the confidence signal; neither is an error. The structured bundle is
// fully computed before any caller-side generation happens, so a failed
// LLM call downstream degrades to facts-only output without re-running
// retrieval.
func (e *Engine) Query(ctx context.Context, query string) *Retrieval {
	_, span := engineTracer.Start(ctx, "Engine.Query")
	defer span.End()

	retrieval := &Retrieval{Query: query}

	retrieval.Matches = e.Resolver.Resolve(query)
	span.SetAttributes(attribute.Int("resolve.matches", len(retrieval.Matches)))
	if len(retrieval.Matches) == 0 {
		retrieval.Confidence = ConfidenceLow
		retrieval.Summaries = map[RelationType][]RelationSummary{}
		return retrieval
	}

	traversal := e.Traverser.Traverse(retrieval.Matches)
	retrieval.Relations = traversal.Relations
	retrieval.Warnings.SelfLoopsFiltered = traversal.SelfLoopsFiltered
	retrieval.Warnings.OnlySelfLoops = traversal.OnlySelfLoops
	retrieval.Warnings.NoRelations = traversal.NoRelations
	span.SetAttributes(
		attribute.Int("traverse.relations", len(traversal.Relations)),
		attribute.Int("traverse.self_loops", traversal.SelfLoopsFiltered),
	)

	retrieval.Summaries = e.Aggregator.Aggregate(retrieval.Relations)
	retrieval.Confidence = ScoreConfidence(retrieval.Matches, retrieval.Relations)
	span.SetAttributes(attribute.String("confidence", string(retrieval.Confidence)))

	entities := make([]*Entity, 0, len(retrieval.Matches))
	for _, m := range retrieval.Matches {
		entities = append(entities, m.Entity)
	}
	payload, payloadWarnings, err := e.builder.Build(entities, retrieval.Relations)
	retrieval.Warnings.Payload = *payloadWarnings
	if err != nil {
		// Fatal for the visualization path only; the textual answer
		// path continues with the structured facts.
		slog.Warn("Visualization payload empty", "query", query, "error", err)
	} else {
		retrieval.Payload = payload
	}

	if retrieval.Warnings.SelfLoopsFiltered > 0 || payloadWarnings.HasWarnings() {
		slog.Warn("Retrieval produced warnings",
			"selfLoops", retrieval.Warnings.SelfLoopsFiltered,
			"danglingEdges", payloadWarnings.DanglingEdges,
			"edgelessNodes", len(payloadWarnings.EdgelessNodes),
		)
	}

	return retrieval
}

// FullGraph shapes the entire store for the read-only full-graph
// interface. The payload builder's id, self-loop, and dangling-edge rules
// apply identically to this path.
func (e *Engine) FullGraph(ctx context.Context) (*VisualizationPayload, error) {
	_, span := engineTracer.Start(ctx, "Engine.FullGraph")
	defer span.End()

	payload, warnings, err := e.builder.BuildFullGraph()
	if err != nil {
		return nil, err
	}
	if warnings.HasWarnings() {
		slog.Warn("Full graph shaping produced warnings",
			"danglingEdges", warnings.DanglingEdges,
			"selfLoops", warnings.SelfLoops,
		)
	}
	span.SetAttributes(
		attribute.Int("graph.nodes", len(payload.Nodes)),
		attribute.Int("graph.edges", len(payload.Edges)),
	)
	return payload, nil
}
