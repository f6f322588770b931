// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tidegraph/tidegraph/services/gateway/history"
	"github.com/tidegraph/tidegraph/services/gateway/observability"
)

// GetSessionHistory returns a session's persisted exchanges in
// creation order.
//
// # Outputs
//
//   - gin.HandlerFunc for GET /v1/sessions/:session_id/history.
func GetSessionHistory(histStore history.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := qaTracer.Start(c.Request.Context(), "GetSessionHistory")
		defer span.End()

		sessionID := c.Param("session_id")
		if _, err := uuid.Parse(sessionID); err != nil {
			span.SetStatus(codes.Error, "invalid session id")
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointHistory, observability.ErrorCodeValidation)
				m.RecordRequest(observability.EndpointHistory, false)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id must be a UUID"})
			return
		}
		span.SetAttributes(attribute.String("session_id", sessionID))

		exchanges, err := histStore.BySession(ctx, sessionID)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(observability.EndpointHistory, err == nil)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointHistory, observability.ErrorCodeHistoryError)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"session_id": sessionID,
			"exchanges":  exchanges,
		})
	}
}
