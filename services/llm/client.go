// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides clients for the external text-generation
// collaborators behind a single backend-agnostic interface.
package llm

import (
	"context"
	"fmt"
)

// Message roles understood by every backend.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one turn of a chat-style generation request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams tunes a single generation call. Nil fields mean
// "backend default".
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client defines the standard interface for any LLM backend.
type Client interface {
	// Chat sends the message sequence to the backend and returns the
	// generated text. Implementations must respect ctx cancellation;
	// the caller enforces the timeout.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}

// NewClient builds the backend selected by name: "groq" (the default),
// "openai", or "ollama".
func NewClient(backend string) (Client, error) {
	switch backend {
	case "", "groq":
		return NewGroqClient()
	case "openai":
		return NewOpenAIClient()
	case "ollama":
		return NewOllamaClient()
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", backend)
	}
}
