// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tidegraph/tidegraph/pkg/extensions"
	"github.com/tidegraph/tidegraph/services/gateway/datatypes"
	"github.com/tidegraph/tidegraph/services/gateway/history"
	"github.com/tidegraph/tidegraph/services/gateway/middleware"
	"github.com/tidegraph/tidegraph/services/gateway/observability"
	"github.com/tidegraph/tidegraph/services/graph"
	"github.com/tidegraph/tidegraph/services/graphqa"
	"github.com/tidegraph/tidegraph/services/llm"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// Stream event types sent over the websocket, in pipeline order.
const (
	// StreamEventSession announces the session id on connect.
	StreamEventSession = "session"

	// StreamEventQuery carries the generated graph query.
	StreamEventQuery = "query"

	// StreamEventContext carries the query result context.
	StreamEventContext = "context"

	// StreamEventAnswer carries the final answer and ends the turn.
	StreamEventAnswer = "answer"

	// StreamEventError reports a pipeline failure for the turn.
	StreamEventError = "error"
)

// StreamEvent is one websocket frame sent to the client.
type StreamEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Data      string `json:"data"`
}

// socketProgress bridges the pipeline's Progress sink onto the
// websocket, so the client sees the generated query and the result
// context the moment the pipeline produces them. A failed write only
// logs: the pipeline must finish regardless of consumer health, and the
// read loop notices the dead socket on the next turn.
type socketProgress struct {
	ws        *websocket.Conn
	sessionID string
}

func (p socketProgress) OnGeneratedQuery(_ context.Context, statement string) {
	p.send(StreamEventQuery, statement)
}

func (p socketProgress) OnResultContext(_ context.Context, resultContext string) {
	p.send(StreamEventContext, resultContext)
}

func (p socketProgress) send(eventType, data string) {
	err := p.ws.WriteJSON(StreamEvent{
		Type:      eventType,
		SessionID: p.sessionID,
		Data:      data,
	})
	if err != nil {
		slog.Warn("Failed to write stream event", "type", eventType, "error", err)
	}
}

// HandleQAStream answers questions over a websocket, streaming the
// pipeline's stage artifacts as they are produced.
//
// # Description
//
// Each connection is one session. The client sends QARequest frames;
// for every question the server emits "query", "context", and "answer"
// events in order (or a single "error" event when the pipeline fails).
// These are stage events, not token streams — the completion backends
// return whole texts.
//
// # Outputs
//
//   - gin.HandlerFunc for GET /v1/qa/stream.
func HandleQAStream(llmClient llm.LLMClient, store graph.Store, histStore history.Store,
	templates graphqa.TemplateProvider, opts extensions.ServiceOptions) gin.HandlerFunc {

	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("Failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		if m := observability.DefaultMetrics; m != nil {
			m.StreamStarted(observability.EndpointQAStream)
			defer m.StreamEnded(observability.EndpointQAStream)
		}

		userID := "anonymous"
		if info := middleware.GetAuthInfo(c); info != nil {
			userID = info.UserID
		}

		sessionID := uuid.New().String()
		slog.Info("Stream client connected", "session_id", sessionID)

		if err := ws.WriteJSON(StreamEvent{Type: StreamEventSession, SessionID: sessionID}); err != nil {
			slog.Warn("Failed to send session event", "error", err)
			return
		}

		for {
			var request datatypes.QARequest
			if err := ws.ReadJSON(&request); err != nil {
				slog.Info("Stream client disconnected", "session_id", sessionID)
				return
			}
			request.SessionID = sessionID
			if err := request.Validate(); err != nil {
				if m := observability.DefaultMetrics; m != nil {
					m.RecordError(observability.EndpointQAStream, observability.ErrorCodeValidation)
				}
				if werr := ws.WriteJSON(StreamEvent{
					Type: StreamEventError, SessionID: sessionID, Data: err.Error(),
				}); werr != nil {
					return
				}
				continue
			}

			ctx := c.Request.Context()
			recorder := &graphqa.Recorder{}
			chain := graphqa.New(llmClient, store,
				graphqa.WithTemplates(templates),
				graphqa.WithProgress(graphqa.MultiProgress{
					recorder,
					socketProgress{ws: ws, sessionID: sessionID},
					auditProgress{logger: opts.AuditLogger, userID: userID, sessionID: sessionID},
				}))

			answer, err := chain.Answer(ctx, request.Question)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordRequest(observability.EndpointQAStream, err == nil)
			}
			if err != nil {
				slog.Error("QA pipeline failed on stream",
					"session_id", sessionID, "error", err)
				if m := observability.DefaultMetrics; m != nil {
					m.RecordError(observability.EndpointQAStream, errorCodeFor(err))
				}
				if werr := ws.WriteJSON(StreamEvent{
					Type: StreamEventError, SessionID: sessionID, Data: err.Error(),
				}); werr != nil {
					return
				}
				continue
			}

			saveExchangeAsync(histStore,
				history.NewExchange(sessionID, request.Question, recorder.GeneratedQuery, answer))

			if err := ws.WriteJSON(StreamEvent{
				Type: StreamEventAnswer, SessionID: sessionID, Data: answer,
			}); err != nil {
				slog.Warn("Failed to send answer event", "session_id", sessionID, "error", err)
				return
			}
		}
	}
}
