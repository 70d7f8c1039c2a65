// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services implements the kgserver business logic.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AyurGraph/services/kgraph"
	"github.com/AleutianAI/AyurGraph/services/kgserver/datatypes"
	"github.com/AleutianAI/AyurGraph/services/kgserver/observability"
	"github.com/AleutianAI/AyurGraph/services/llm"
)

var answerTracer = otel.Tracer("ayurgraph.kgserver.answer")

// Generation defaults, matching the tuning the consultant persona was
// calibrated against.
const (
	generationTemperature float32 = 0.3
	generationMaxTokens   int     = 1500
)

// DefaultLLMTimeout bounds the single external generation call when the
// config does not override it.
const DefaultLLMTimeout = 60 * time.Second

// ====== Errors ======

// GenerationUnavailableError indicates the external generation call
// failed or timed out. The caller degrades to a facts-only answer; the
// retrieval bundle is never discarded because of this error.
type GenerationUnavailableError struct {
	Backend string
	Err     error
}

func (e *GenerationUnavailableError) Error() string {
	return fmt.Sprintf("generation unavailable (backend %s): %v", e.Backend, e.Err)
}

func (e *GenerationUnavailableError) Unwrap() error { return e.Err }

// IsGenerationUnavailable reports whether err is a
// GenerationUnavailableError.
func IsGenerationUnavailable(err error) bool {
	var genErr *GenerationUnavailableError
	return errors.As(err, &genErr)
}

// ====== Prompts ======

const basePrompt = "You are an expert Ayurvedic consultant chatbot. " +
	"Provide a clear, complete, and actionable answer based on Ayurvedic principles. " +
	"Include specific herbs, treatments, and dosha-balancing methods when relevant. " +
	"Structure the response with sections (e.g., Herbs, Treatments, Dosha Balance). " +
	"This is for educational purposes only; always recommend consulting a professional for medical advice."

const groundedSuffix = "\nUse the Knowledge Graph context below to ground your answer with specific details. " +
	"Highlight relevant entities and relationships from the KG. " +
	"If something is uncertain, state likely options and what to observe."

const ungroundedSuffix = "\nNo specific KG data is provided. Use general Ayurvedic principles to provide a comprehensive answer. " +
	"Include likely dosha involvement, lifestyle guidance, and commonly used herbs. " +
	"Offer safe, general suggestions and note contraindications when appropriate."

// ====== AnswerService ======

// AnswerService composes chat answers: graph retrieval first, then a
// single bounded generation call, then assembly of the response body.
//
// # Description
//
// The service is the only component that talks to the external
// generation backend. Retrieval is always completed before generation
// starts, so a failed or slow backend degrades the answer to a
// deterministic rendering of the retrieved facts instead of losing
// them.
//
// # Thread Safety
//
// Safe for concurrent use; all per-request state is local.
type AnswerService struct {
	engine  *kgraph.Engine
	client  llm.Client
	backend string
	timeout time.Duration
	metrics *observability.ChatMetrics
}

// NewAnswerService creates an AnswerService.
//
// # Inputs
//   - engine: the loaded graph query engine.
//   - client: the generation backend; nil disables generation and all
//     answers are facts-only.
//   - backend: backend name for logs and metrics labels.
//   - timeout: per-call generation bound; <= 0 uses DefaultLLMTimeout.
//   - metrics: may be nil (e.g. in tests) to skip recording.
func NewAnswerService(engine *kgraph.Engine, client llm.Client, backend string, timeout time.Duration, metrics *observability.ChatMetrics) *AnswerService {
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}
	return &AnswerService{
		engine:  engine,
		client:  client,
		backend: backend,
		timeout: timeout,
		metrics: metrics,
	}
}

// Answer processes one user query end to end.
//
// # Description
//
// Runs retrieval, chooses the grounded or ungrounded persona based on
// whether any facts matched, calls the generation backend once with an
// explicit timeout, and assembles the response. Generation failure is
// not an error for the caller: the response degrades to facts-only
// (or a static apology when there are no facts either) and the source
// field records what happened.
func (s *AnswerService) Answer(ctx context.Context, query string) *datatypes.ChatResponse {
	ctx, span := answerTracer.Start(ctx, "AnswerService.Answer")
	defer span.End()

	queryStart := time.Now()
	retrieval := s.engine.Query(ctx, query)
	if s.metrics != nil {
		s.metrics.RecordQueryDuration(time.Since(queryStart).Seconds())
		s.metrics.RecordResolution(retrieval.HasMatches())
	}

	grounded := retrieval.HasMatches() && len(retrieval.Relations) > 0
	factContext := formatContext(retrieval)
	span.SetAttributes(
		attribute.Bool("answer.grounded", grounded),
		attribute.Int("answer.matches", len(retrieval.Matches)),
	)

	resp := &datatypes.ChatResponse{
		Query:      query,
		Confidence: string(retrieval.Confidence),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if retrieval.HasMatches() {
		resp.KGData = buildKGData(retrieval)
	}

	text, err := s.generate(ctx, query, factContext, grounded)
	switch {
	case err == nil:
		resp.Response = text
		if grounded {
			resp.Source = datatypes.SourceKGAndLLM
		} else {
			resp.Source = datatypes.SourceLLMOnly
		}
	case grounded:
		slog.Warn("Generation unavailable, degrading to facts-only",
			"backend", s.backend, "error", err)
		resp.Response = renderFacts(retrieval)
		resp.Source = datatypes.SourceFactsOnly
	default:
		slog.Warn("Generation unavailable with no graph facts",
			"backend", s.backend, "error", err)
		resp.Response = "The answer service is temporarily unavailable and no knowledge-graph facts matched your question. Please try again shortly."
		resp.Source = datatypes.SourceFactsOnly
	}

	if s.metrics != nil {
		s.metrics.RecordRequest(resp.Source, resp.Confidence)
	}
	return resp
}

// generate performs the single bounded external call.
//
// Returns a GenerationUnavailableError on any failure, including a nil
// client and context deadline.
func (s *AnswerService) generate(ctx context.Context, query, factContext string, grounded bool) (string, error) {
	if s.client == nil {
		return "", &GenerationUnavailableError{
			Backend: s.backend,
			Err:     errors.New("no generation backend configured"),
		}
	}

	prompt := basePrompt
	if grounded {
		prompt += groundedSuffix
	} else {
		prompt += ungroundedSuffix
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt},
	}
	if grounded && factContext != "" {
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: "Knowledge Graph Context:\n" + factContext,
		})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	temperature := generationTemperature
	maxTokens := generationMaxTokens
	params := llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.client.Chat(callCtx, messages, params)
	if s.metrics != nil {
		s.metrics.RecordGeneration(s.backend, time.Since(start).Seconds(), err)
	}
	if err != nil {
		return "", &GenerationUnavailableError{Backend: s.backend, Err: err}
	}
	return text, nil
}

// FullGraph exposes the read-only full-graph payload.
func (s *AnswerService) FullGraph(ctx context.Context) (*kgraph.VisualizationPayload, error) {
	return s.engine.FullGraph(ctx)
}

// ====== Response assembly ======

// buildKGData shapes the retrieval bundle into the response evidence
// block.
func buildKGData(retrieval *kgraph.Retrieval) *datatypes.KGData {
	data := &datatypes.KGData{
		Entities:      make([]datatypes.EntityDetail, 0, len(retrieval.Matches)),
		Relationships: make(map[string][]kgraph.RelationSummary, len(retrieval.Summaries)),
		Visualization: retrieval.Payload,
	}
	for _, m := range retrieval.Matches {
		data.Entities = append(data.Entities, datatypes.EntityDetail{
			ID:      m.Entity.ID,
			Label:   m.Entity.Label,
			Type:    string(m.Entity.Type),
			Score:   m.Score,
			Details: m.Entity.Details(),
		})
	}
	for relType, summaries := range retrieval.Summaries {
		data.Relationships[string(relType)] = summaries
	}
	return data
}

// formatContext renders the retrieval bundle as the grounding block
// handed to the generation backend. The format is line-oriented and
// deterministic so identical retrievals produce identical prompts.
func formatContext(retrieval *kgraph.Retrieval) string {
	var parts []string

	if len(retrieval.Matches) > 0 {
		parts = append(parts, "Entities:")
		for _, m := range retrieval.Matches {
			line := fmt.Sprintf("- %s (%s)", m.Entity.Label, m.Entity.Type)
			if len(m.Entity.Attrs.Description) > 0 {
				line += ": " + m.Entity.Attrs.Description[0]
			}
			parts = append(parts, line)
			for _, key := range sortedKeys(m.Entity.Attrs.Extra) {
				parts = append(parts, fmt.Sprintf("  %s: %s", key, m.Entity.Attrs.Extra[key]))
			}
		}
	}

	if len(retrieval.Summaries) > 0 {
		parts = append(parts, "Relationships:")
		relTypes := make([]string, 0, len(retrieval.Summaries))
		for relType := range retrieval.Summaries {
			relTypes = append(relTypes, string(relType))
		}
		sort.Strings(relTypes)
		for _, relType := range relTypes {
			for _, summary := range retrieval.Summaries[kgraph.RelationType(relType)] {
				parts = append(parts, fmt.Sprintf("- %s %s %s",
					summary.FromLabel, summary.Relation, summary.ToLabel))
			}
		}
	}

	return strings.Join(parts, "\n")
}

// renderFacts produces the deterministic facts-only answer used when
// generation is unavailable.
func renderFacts(retrieval *kgraph.Retrieval) string {
	var b strings.Builder
	b.WriteString("The answer service is temporarily unavailable. Here is what the knowledge graph says:\n")
	b.WriteString(formatContext(retrieval))
	b.WriteString("\n\nThis is for educational purposes only; consult a professional for medical advice.")
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
