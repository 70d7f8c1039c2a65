// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "data/ayurvedic_kg.yaml", cfg.GraphPath)
	assert.Equal(t, "groq", cfg.LLMBackend)
	assert.Equal(t, 60, cfg.LLMTimeoutSeconds)
	assert.InDelta(t, 0.75, cfg.FuzzyThreshold, 0.001)
	assert.Equal(t, 1, cfg.TraversalDepth)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AYURGRAPH_PORT", "8080")
	t.Setenv("AYURGRAPH_LLMBACKEND", "ollama")
	t.Setenv("AYURGRAPH_GRAPHPATH", "/data/graph.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "ollama", cfg.LLMBackend)
	assert.Equal(t, "/data/graph.yaml", cfg.GraphPath)
	// Untouched keys keep their defaults.
	assert.Equal(t, 1, cfg.TraversalDepth)
}
