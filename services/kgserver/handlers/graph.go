// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AyurGraph/services/kgraph"
	"github.com/AleutianAI/AyurGraph/services/kgserver/datatypes"
	"github.com/AleutianAI/AyurGraph/services/kgserver/services"
)

// HandleFullGraph serves GET /api/kg/full.
//
// An empty graph is the one fatal condition on this path and maps to
// a 500 with a structured error body.
func HandleFullGraph(answers *services.AnswerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleFullGraph")
		defer span.End()

		payload, err := answers.FullGraph(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Full graph shaping failed", "error", err)
			status := http.StatusInternalServerError
			detail := err.Error()
			if kgraph.IsEmptyGraphError(err) {
				detail = "the knowledge graph produced no drawable nodes"
			}
			c.JSON(status, datatypes.ErrorResponse{
				Error:  "failed to build graph payload",
				Detail: detail,
			})
			return
		}
		c.JSON(http.StatusOK, payload)
	}
}
