// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AyurGraph/services/kgraph"
	"github.com/AleutianAI/AyurGraph/services/kgserver/handlers"
	"github.com/AleutianAI/AyurGraph/services/kgserver/services"
)

// SetupRoutes registers the kgserver API surface.
func SetupRoutes(router *gin.Engine, store *kgraph.GraphStore, answers *services.AnswerService) {
	router.GET("/health", handlers.HandleHealth(store))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/chat", handlers.HandleChat(answers))
		api.GET("/kg/full", handlers.HandleFullGraph(answers))
	}
}
