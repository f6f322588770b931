// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the gateway's HTTP endpoint handlers.
//
// Handlers follow the closure style: each constructor takes its
// dependencies and returns a gin.HandlerFunc. The QA pipeline itself
// lives in services/graphqa; handlers bind requests, assemble a Chain
// with request-scoped sinks, and shape responses.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tidegraph/tidegraph/pkg/extensions"
	"github.com/tidegraph/tidegraph/services/gateway/datatypes"
	"github.com/tidegraph/tidegraph/services/gateway/history"
	"github.com/tidegraph/tidegraph/services/gateway/middleware"
	"github.com/tidegraph/tidegraph/services/gateway/observability"
	"github.com/tidegraph/tidegraph/services/graph"
	"github.com/tidegraph/tidegraph/services/graphqa"
	"github.com/tidegraph/tidegraph/services/llm"
)

var qaTracer = otel.Tracer("tidegraph.gateway.handlers")

// historySaveTimeout bounds the async history write after the response
// has been sent.
const historySaveTimeout = 30 * time.Second

// auditProgress forwards the generated query to the audit logger before
// the store executes it. Result context is not audited; it can contain
// bulk data.
type auditProgress struct {
	logger    extensions.AuditLogger
	userID    string
	sessionID string
}

func (p auditProgress) OnGeneratedQuery(ctx context.Context, statement string) {
	err := p.logger.Log(ctx, extensions.AuditEvent{
		EventType: extensions.EventQueryGenerated,
		UserID:    p.userID,
		SessionID: p.sessionID,
		Outcome:   "success",
		Detail:    map[string]any{"query": statement},
	})
	if err != nil {
		slog.Warn("Audit log failed for generated query", "error", err)
	}
}

func (p auditProgress) OnResultContext(context.Context, string) {}

// stageTimer derives per-stage latencies from the pipeline's two
// progress notifications: schema fetch + generation end at the first,
// execution ends at the second, synthesis ends when Answer returns.
type stageTimer struct {
	started     time.Time
	generatedAt time.Time
	executedAt  time.Time
}

func newStageTimer() *stageTimer {
	return &stageTimer{started: time.Now()}
}

func (t *stageTimer) OnGeneratedQuery(context.Context, string) {
	t.generatedAt = time.Now()
}

func (t *stageTimer) OnResultContext(context.Context, string) {
	t.executedAt = time.Now()
}

func (t *stageTimer) record(m *observability.GatewayMetrics) {
	if m == nil {
		return
	}
	if !t.generatedAt.IsZero() {
		m.RecordStageDuration(observability.StageGenerateQuery,
			t.generatedAt.Sub(t.started).Seconds())
	}
	if !t.executedAt.IsZero() {
		m.RecordStageDuration(observability.StageExecuteQuery,
			t.executedAt.Sub(t.generatedAt).Seconds())
		m.RecordStageDuration(observability.StageSynthesizeAnswer,
			time.Since(t.executedAt).Seconds())
	}
}

// errorCodeFor maps a pipeline error onto a metrics error code. The
// pipeline returns collaborator errors unchanged, so the type tells us
// which collaborator failed.
func errorCodeFor(err error) observability.ErrorCode {
	var queryErr *graph.QueryError
	if errors.As(err, &queryErr) {
		return observability.ErrorCodeStoreError
	}
	return observability.ErrorCodeLLMError
}

// HandleQA answers one question synchronously via the QA pipeline.
//
// # Description
//
// Binds a QARequest, runs the two-stage pipeline, and returns the
// answer. The generated query and result context are included when the
// request set show_query. The exchange is persisted to the history
// store asynchronously so persistence latency never reaches the caller.
//
// # Inputs
//
//   - llmClient: The completion backend for both pipeline stages.
//   - store: The graph store queried by the pipeline.
//   - histStore: Receives the completed exchange. Never nil; use
//     history.NopStore to disable persistence.
//   - templates: Prompt template provider; nil uses the built-in
//     prompts.
//   - opts: Extension seams (audit logging of generated queries).
//
// # Outputs
//
//   - gin.HandlerFunc for POST /v1/qa.
func HandleQA(llmClient llm.LLMClient, store graph.Store, histStore history.Store,
	templates graphqa.TemplateProvider, opts extensions.ServiceOptions) gin.HandlerFunc {

	return func(c *gin.Context) {
		ctx, span := qaTracer.Start(c.Request.Context(), "HandleQA")
		defer span.End()

		var request datatypes.QARequest
		if err := c.BindJSON(&request); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointQA, observability.ErrorCodeValidation)
				m.RecordRequest(observability.EndpointQA, false)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := request.Validate(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Warn("QA request failed validation", "error", err)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointQA, observability.ErrorCodeValidation)
				m.RecordRequest(observability.EndpointQA, false)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		request.EnsureDefaults()
		span.SetAttributes(
			attribute.String("session_id", request.SessionID),
			attribute.Int("question_length", len(request.Question)),
		)

		userID := "anonymous"
		if info := middleware.GetAuthInfo(c); info != nil {
			userID = info.UserID
		}

		recorder := &graphqa.Recorder{}
		timer := newStageTimer()
		chain := graphqa.New(llmClient, store,
			graphqa.WithTemplates(templates),
			graphqa.WithProgress(graphqa.MultiProgress{
				recorder,
				timer,
				auditProgress{logger: opts.AuditLogger, userID: userID, sessionID: request.SessionID},
			}))

		answer, err := chain.Answer(ctx, request.Question)
		timer.record(observability.DefaultMetrics)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordAnswerDuration(time.Since(timer.started).Seconds(), err == nil)
			m.RecordRequest(observability.EndpointQA, err == nil)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("QA pipeline failed", "session_id", request.SessionID, "error", err)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointQA, errorCodeFor(err))
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		saveExchangeAsync(histStore,
			history.NewExchange(request.SessionID, request.Question, recorder.GeneratedQuery, answer))

		response := datatypes.NewQAResponse(request.SessionID, answer)
		if request.ShowQuery {
			response.GeneratedQuery = recorder.GeneratedQuery
			response.ResultContext = recorder.ResultContext
		}
		c.JSON(http.StatusOK, response)
	}
}

// saveExchangeAsync persists the exchange off the request path. The
// request context is not reused: it is cancelled the moment the
// response is written.
func saveExchangeAsync(histStore history.Store, exchange history.Exchange) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), historySaveTimeout)
		defer cancel()
		if err := histStore.Append(ctx, exchange); err != nil {
			slog.Error("Failed to save exchange async",
				"session_id", exchange.SessionID, "error", err)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordError(observability.EndpointQA, observability.ErrorCodeHistoryError)
			}
		}
	}()
}
