// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
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
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tidegraph/tidegraph/pkg/extensions"
	"github.com/tidegraph/tidegraph/services/gateway/datatypes"
	"github.com/tidegraph/tidegraph/services/gateway/middleware"
	"github.com/tidegraph/tidegraph/services/gateway/observability"
	"github.com/tidegraph/tidegraph/services/llm"
)

// HandleCompletion runs one raw completion against the configured
// backend, bypassing the QA pipeline.
//
// # Description
//
// Exposes the completion adapter directly: prompt in, text out. All
// sampling parameters are optional and unset ones are left to the
// backend. Backend errors propagate as a 502 with the original message;
// the gateway adds no interpretation.
//
// # Inputs
//
//   - llmClient: The completion backend.
//   - backendName: The configured backend name, used as the metrics
//     model label.
//   - opts: Extension seams (audit logging of completion calls).
//
// # Outputs
//
//   - gin.HandlerFunc for POST /v1/completions.
func HandleCompletion(llmClient llm.LLMClient, backendName string,
	opts extensions.ServiceOptions) gin.HandlerFunc {

	return func(c *gin.Context) {
		ctx, span := qaTracer.Start(c.Request.Context(), "HandleCompletion")
		defer span.End()

		var request datatypes.CompletionRequest
		if err := c.BindJSON(&request); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointCompletions, observability.ErrorCodeValidation)
				m.RecordRequest(observability.EndpointCompletions, false)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := request.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Warn("Completion request failed validation", "error", err)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointCompletions, observability.ErrorCodeValidation)
				m.RecordRequest(observability.EndpointCompletions, false)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		span.SetAttributes(attribute.Int("prompt_length", len(request.Prompt)))

		userID := "anonymous"
		if info := middleware.GetAuthInfo(c); info != nil {
			userID = info.UserID
		}

		completion, err := llmClient.Generate(ctx, request.Prompt, request.ToGenerationParams())
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(observability.EndpointCompletions, err == nil)
		}
		if auditErr := opts.AuditLogger.Log(ctx, extensions.AuditEvent{
			EventType: extensions.EventCompletionCall,
			UserID:    userID,
			Outcome:   outcomeLabel(err == nil),
			Detail:    map[string]any{"prompt_length": len(request.Prompt)},
		}); auditErr != nil {
			slog.Warn("Audit log failed for completion call", "error", auditErr)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Completion backend failed", "error", err)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointCompletions, observability.ErrorCodeLLMError)
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.RecordCompletionCharacters(len(request.Prompt), len(completion), backendName)
		}
		span.SetAttributes(attribute.Int("completion_length", len(completion)))
		c.JSON(http.StatusOK, datatypes.NewCompletionResponse(completion))
	}
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
