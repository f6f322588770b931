// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/tidegraph/tidegraph/services/gateway/datatypes"
	"github.com/tidegraph/tidegraph/services/gateway/observability"
	"github.com/tidegraph/tidegraph/services/graph"
)

// HandleSchema serves the rendered graph schema text — the same text
// the pipeline hands the model for query generation, which makes it the
// reference for writing questions the store can actually answer.
//
// # Outputs
//
//   - gin.HandlerFunc for GET /v1/graph/schema.
func HandleSchema(store graph.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := qaTracer.Start(c.Request.Context(), "HandleSchema")
		defer span.End()

		schema, err := store.Schema(ctx)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(observability.EndpointSchema, err == nil)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointSchema, observability.ErrorCodeStoreError)
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, datatypes.SchemaResponse{
			Schema:    schema,
			Timestamp: time.Now().UnixMilli(),
		})
	}
}
