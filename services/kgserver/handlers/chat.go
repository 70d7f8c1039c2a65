// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin handlers for the kgserver API.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AyurGraph/services/kgserver/datatypes"
	"github.com/AleutianAI/AyurGraph/services/kgserver/services"
)

var handlerTracer = otel.Tracer("ayurgraph.kgserver.handlers")

// overviewQuery replaces blank queries so the frontend always gets a
// useful first answer.
const overviewQuery = "Give me an overview of Ayurveda and how this chatbot can help."

// HandleChat serves POST /api/chat.
//
// # Description
//
// Parses and normalizes the request, substitutes the overview query
// for blank input, and delegates to the answer service. Generation
// failures never surface here as HTTP errors; the service degrades
// the answer and the response reports the source.
func HandleChat(answers *services.AnswerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the chat request", "error", err)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body"})
			return
		}

		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			req.Query = overviewQuery
		}

		resp := answers.Answer(ctx, req.Query)
		c.JSON(http.StatusOK, resp)
	}
}
