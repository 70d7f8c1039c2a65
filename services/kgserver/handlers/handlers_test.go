// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AyurGraph/services/kgraph"
	"github.com/AleutianAI/AyurGraph/services/kgserver/datatypes"
	"github.com/AleutianAI/AyurGraph/services/kgserver/services"
	"github.com/AleutianAI/AyurGraph/services/llm"
)

const handlerTestGraph = `
entities:
  - id: h_ashwagandha
    label: Ashwagandha
    type: Herb
  - id: c_stress
    label: Stress
    type: Condition
relations:
  - from: h_ashwagandha
    to: c_stress
    type: recommendedFor
`

// stubLLM returns a fixed response for every generation call.
type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Chat(ctx context.Context, messages []llm.Message, params llm.GenerationParams) (string, error) {
	return s.response, s.err
}

// newTestRouter builds a gin engine with the API wired over the test
// fixture.
func newTestRouter(t *testing.T, client llm.Client) (*gin.Engine, *kgraph.GraphStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := kgraph.Load(strings.NewReader(handlerTestGraph))
	require.NoError(t, err)

	engine := kgraph.NewEngine(store)
	answers := services.NewAnswerService(engine, client, "test", time.Second, nil)

	router := gin.New()
	router.GET("/health", HandleHealth(store))
	router.POST("/api/chat", HandleChat(answers))
	router.GET("/api/kg/full", HandleFullGraph(answers))
	return router, store
}

// =============================================================================
// Chat Endpoint
// =============================================================================

func TestHandleChat_GroundedAnswer(t *testing.T) {
	router, _ := newTestRouter(t, &stubLLM{response: "Ashwagandha helps with stress."})

	body := `{"query": "what helps with stress"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, datatypes.SourceKGAndLLM, resp.Source)
	assert.Equal(t, "high", resp.Confidence)
	assert.Equal(t, "Ashwagandha helps with stress.", resp.Response)
	require.NotNil(t, resp.KGData)
	require.NotNil(t, resp.KGData.Visualization)
	assert.NotEmpty(t, resp.KGData.Visualization.Nodes)
}

func TestHandleChat_InvalidBody(t *testing.T) {
	router, _ := newTestRouter(t, &stubLLM{response: "ok"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResp datatypes.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "invalid request body", errResp.Error)
}

// TestHandleChat_BlankQueryRewritten verifies the frontend artifact
// handling: blank, "undefined", and "null" queries get the overview
// question instead of an error.
func TestHandleChat_BlankQueryRewritten(t *testing.T) {
	for _, raw := range []string{`{"query": ""}`, `{"query": "undefined"}`, `{"query": "null"}`, `{}`} {
		router, _ := newTestRouter(t, &stubLLM{response: "Ayurveda is a traditional system of wellness."})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(raw))
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, "body %s", raw)

		var resp datatypes.ChatResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, overviewQuery, resp.Query, "body %s", raw)
	}
}

func TestHandleChat_GenerationFailureStaysOK(t *testing.T) {
	router, _ := newTestRouter(t, &stubLLM{err: assert.AnError})

	body := `{"query": "stress"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, "generation failure is not an HTTP error")

	var resp datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, datatypes.SourceFactsOnly, resp.Source)
	assert.Contains(t, resp.Response, "Ashwagandha")
}

// =============================================================================
// Graph Endpoint
// =============================================================================

func TestHandleFullGraph(t *testing.T) {
	router, store := newTestRouter(t, &stubLLM{response: "ok"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/kg/full", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var payload kgraph.VisualizationPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Len(t, payload.Nodes, store.EntityCount())
	assert.Len(t, payload.Edges, store.RelationCount())
}

// =============================================================================
// Health Endpoint
// =============================================================================

func TestHandleHealth(t *testing.T) {
	router, _ := newTestRouter(t, &stubLLM{response: "ok"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var health struct {
		Status    string `json:"status"`
		Entities  int    `json:"entities"`
		Relations int    `json:"relations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Entities)
	assert.Equal(t, 1, health.Relations)
}
