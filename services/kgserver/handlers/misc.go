// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AyurGraph/services/kgraph"
)

// HandleHealth serves GET /health with graph load statistics so
// probes catch an empty or truncated dataset.
func HandleHealth(store *kgraph.GraphStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"entities":  store.EntityCount(),
			"relations": store.RelationCount(),
		})
	}
}
