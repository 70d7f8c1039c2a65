// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRequest_EnsureDefaults(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  string
	}{
		{name: "trims whitespace", query: "  what helps stress  ", want: "what helps stress"},
		{name: "undefined artifact", query: "undefined", want: ""},
		{name: "null artifact", query: "null", want: ""},
		{name: "uppercased artifact", query: "UNDEFINED", want: ""},
		{name: "real query untouched", query: "ashwagandha", want: "ashwagandha"},
		{name: "artifact inside text survives", query: "is null a dosha", want: "is null a dosha"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := ChatRequest{Query: tc.query}
			req.EnsureDefaults()
			assert.Equal(t, tc.want, req.Query)
		})
	}
}

func TestChatRequest_Validate(t *testing.T) {
	req := ChatRequest{Query: "what helps stress"}
	assert.NoError(t, req.Validate())

	empty := ChatRequest{}
	assert.Error(t, empty.Validate())
}

func TestChatResponse_JSONShape(t *testing.T) {
	resp := ChatResponse{
		Query:      "q",
		Response:   "r",
		Source:     SourceKGAndLLM,
		Confidence: "high",
		Timestamp:  "2026-01-01T00:00:00Z",
	}

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "kg_and_llm", decoded["source"])
	assert.NotContains(t, decoded, "kg_data", "absent evidence block is omitted")
}
