// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the kgserver.
//
// # Description
//
// Metrics cover the chat pipeline end to end: request counts by
// answer source and confidence, entity resolution outcomes, graph
// query latency, and external generation latency and failures.
//
// Metrics are exposed on the /metrics endpoint. All operations are
// thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "ayurgraph"

// ChatMetrics holds all Prometheus metrics for the chat pipeline.
//
// Initialize once at startup via InitMetrics; registering twice
// panics on duplicate registration.
type ChatMetrics struct {
	// RequestsTotal counts chat requests by answer source and
	// confidence.
	// Labels: source (kg_and_llm, llm_only, facts_only), confidence (high, low)
	RequestsTotal *prometheus.CounterVec

	// ResolutionsTotal counts entity resolution outcomes.
	// Labels: outcome (matched, unmatched)
	ResolutionsTotal *prometheus.CounterVec

	// QueryDurationSeconds measures graph retrieval latency,
	// resolution through payload building.
	QueryDurationSeconds prometheus.Histogram

	// GenerationDurationSeconds measures the external generation call.
	// Labels: backend (groq, openai, ollama)
	GenerationDurationSeconds *prometheus.HistogramVec

	// GenerationFailuresTotal counts failed generation calls.
	// Labels: backend
	GenerationFailuresTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance, set by InitMetrics.
var DefaultMetrics *ChatMetrics

// InitMetrics creates and registers all kgserver metrics on the
// default Prometheus registry. Call once at startup.
func InitMetrics() *ChatMetrics {
	DefaultMetrics = &ChatMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "chat",
				Name:      "requests_total",
				Help:      "Total chat requests by answer source and confidence",
			},
			[]string{"source", "confidence"},
		),

		ResolutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "kgraph",
				Name:      "resolutions_total",
				Help:      "Entity resolution outcomes by result",
			},
			[]string{"outcome"},
		),

		QueryDurationSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "kgraph",
				Name:      "query_duration_seconds",
				Help:      "Graph retrieval latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
		),

		GenerationDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "llm",
				Name:      "generation_duration_seconds",
				Help:      "External generation call latency in seconds",
				Buckets:   []float64{0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"backend"},
		),

		GenerationFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "llm",
				Name:      "generation_failures_total",
				Help:      "Failed external generation calls",
			},
			[]string{"backend"},
		),
	}

	return DefaultMetrics
}

// RecordRequest records a completed chat request.
func (m *ChatMetrics) RecordRequest(source, confidence string) {
	m.RequestsTotal.WithLabelValues(source, confidence).Inc()
}

// RecordResolution records whether a query resolved any entities.
func (m *ChatMetrics) RecordResolution(matched bool) {
	outcome := "matched"
	if !matched {
		outcome = "unmatched"
	}
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordQueryDuration records graph retrieval latency.
func (m *ChatMetrics) RecordQueryDuration(seconds float64) {
	m.QueryDurationSeconds.Observe(seconds)
}

// RecordGeneration records one generation call.
func (m *ChatMetrics) RecordGeneration(backend string, seconds float64, err error) {
	m.GenerationDurationSeconds.WithLabelValues(backend).Observe(seconds)
	if err != nil {
		m.GenerationFailuresTotal.WithLabelValues(backend).Inc()
	}
}
