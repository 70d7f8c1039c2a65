// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the request & response shapes of the
// kgserver HTTP API.
package datatypes

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/AyurGraph/services/kgraph"
)

// ====== Answer provenance ======

// Source labels how an answer was produced.
const (
	// SourceKGAndLLM means graph facts grounded a generated answer.
	SourceKGAndLLM = "kg_and_llm"

	// SourceLLMOnly means no graph facts matched and the answer is
	// ungrounded generation.
	SourceLLMOnly = "llm_only"

	// SourceFactsOnly means generation was unavailable and the answer
	// is a deterministic rendering of graph facts.
	SourceFactsOnly = "facts_only"
)

// ====== Requests ======

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	// Query is the user's natural-language question.
	Query string `json:"query"`
}

// EnsureDefaults normalizes the request in place.
//
// # Description
//
//	Trims surrounding whitespace and rewrites the literal strings
//	"undefined" and "null" (frontend artifacts of a missing input
//	box value) to empty so they validate as blank queries.
func (r *ChatRequest) EnsureDefaults() {
	r.Query = strings.TrimSpace(r.Query)
	switch strings.ToLower(r.Query) {
	case "undefined", "null":
		r.Query = ""
	}
}

// Validate returns an error describing why the request is unusable.
func (r *ChatRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query must not be empty")
	}
	return nil
}

// ====== Responses ======

// EntityDetail is one resolved entity in the response payload.
type EntityDetail struct {
	ID      string         `json:"id"`
	Label   string         `json:"label"`
	Type    string         `json:"type"`
	Score   float64        `json:"score"`
	Details map[string]any `json:"details,omitempty"`
}

// KGData carries the graph evidence behind an answer.
type KGData struct {
	// Entities are the resolved query entities, best match first.
	Entities []EntityDetail `json:"entities"`

	// Relationships groups aggregated facts by relation label.
	Relationships map[string][]kgraph.RelationSummary `json:"relationships"`

	// Visualization is the render payload, absent when no drawable
	// subgraph exists.
	Visualization *kgraph.VisualizationPayload `json:"visualization,omitempty"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	Query      string  `json:"query"`
	Response   string  `json:"response"`
	Source     string  `json:"source"`
	Confidence string  `json:"confidence"`
	Timestamp  string  `json:"timestamp"`
	KGData     *KGData `json:"kg_data,omitempty"`
}

// ErrorResponse is the uniform error body for the API.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
