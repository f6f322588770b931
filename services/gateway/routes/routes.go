// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes registers the gateway's HTTP route table.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/tidegraph/tidegraph/pkg/extensions"
	"github.com/tidegraph/tidegraph/services/gateway/handlers"
	"github.com/tidegraph/tidegraph/services/gateway/history"
	"github.com/tidegraph/tidegraph/services/gateway/middleware"
	"github.com/tidegraph/tidegraph/services/gateway/telemetry"
	"github.com/tidegraph/tidegraph/services/graph"
	"github.com/tidegraph/tidegraph/services/graphqa"
	"github.com/tidegraph/tidegraph/services/llm"
)

// Deps carries everything the route handlers need. Templates may be
// nil (built-in prompts); everything else must be non-nil — callers
// pass history.NopStore when persistence is disabled.
type Deps struct {
	LLMClient   llm.LLMClient
	BackendName string
	Store       graph.Store
	History     history.Store
	Templates   graphqa.TemplateProvider
	Options     extensions.ServiceOptions
}

// SetupRoutes registers every gateway route on router.
//
// /health and /metrics are unauthenticated so probes and scrapers work
// without credentials; everything under /v1 runs through the auth
// middleware.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck)
	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.Options.AuthProvider))
	{
		v1.POST("/qa", handlers.HandleQA(deps.LLMClient, deps.Store, deps.History, deps.Templates, deps.Options))
		v1.GET("/qa/stream", handlers.HandleQAStream(deps.LLMClient, deps.Store, deps.History, deps.Templates, deps.Options))
		v1.POST("/completions", handlers.HandleCompletion(deps.LLMClient, deps.BackendName, deps.Options))
		v1.GET("/graph/schema", handlers.HandleSchema(deps.Store))

		sessions := v1.Group("/sessions")
		{
			sessions.GET("/:session_id/history", handlers.GetSessionHistory(deps.History))
		}
	}
}
