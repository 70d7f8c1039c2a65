// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the kgserver configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for the kgserver process.
type Config struct {
	// Port is the HTTP listen port.
	Port int `koanf:"port"`

	// GraphPath is the location of the knowledge-graph YAML file.
	GraphPath string `koanf:"graphpath"`

	// LLMBackend selects the generation collaborator: groq, openai, ollama.
	LLMBackend string `koanf:"llmbackend"`

	// LLMTimeoutSeconds bounds the single external generation call.
	LLMTimeoutSeconds int `koanf:"llmtimeoutseconds"`

	// FuzzyThreshold is the minimum similarity for fuzzy entity matches.
	FuzzyThreshold float64 `koanf:"fuzzythreshold"`

	// TraversalDepth is the relation traversal hop bound.
	TraversalDepth int `koanf:"traversaldepth"`

	// OTLPEndpoint is the OpenTelemetry collector address; empty
	// disables trace export.
	OTLPEndpoint string `koanf:"otlpendpoint"`

	// LogDir enables file logging when set.
	LogDir string `koanf:"logdir"`
}

// Load layers configuration sources.
// Priority: Env > Config File > Defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"port":              5000,
		"graphpath":         "data/ayurvedic_kg.yaml",
		"llmbackend":        "groq",
		"llmtimeoutseconds": 60,
		"fuzzythreshold":    0.75,
		"traversaldepth":    1,
		"otlpendpoint":      "",
		"logdir":            "",
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Config file is optional; a missing ayurgraph.toml is not an error.
	_ = k.Load(file.Provider("ayurgraph.toml"), toml.Parser())

	// Environment variables, e.g. AYURGRAPH_PORT=8080.
	if err := k.Load(env.Provider("AYURGRAPH_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "AYURGRAPH_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
