// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides request and response types for the gateway
// service.
//
// This file contains the question-answering endpoint types. For raw
// completion types, see completion.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MaxInputBytes is the maximum size of a single text input (question or
// prompt). Byte length, not rune count, to bound payload memory.
const MaxInputBytes = 32 * 1024 // 32KB

// gatewayValidate is the validator instance for gateway datatypes.
// Initialized in init() with custom validators.
var gatewayValidate *validator.Validate

func init() {
	gatewayValidate = validator.New()

	_ = gatewayValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes reports whether a string field fits within
// MaxInputBytes.
func validateMaxBytes(fl validator.FieldLevel) bool {
	content := fl.Field().String()
	return len(content) <= MaxInputBytes
}

// QARequest represents a question-answering request body.
//
// # Description
//
// QARequest carries the natural-language question for the
// POST /v1/qa and websocket /v1/qa/stream endpoints. The optional
// session ID groups exchanges into a conversation for history lookup;
// when absent the gateway assigns one and returns it in the response.
//
// # Fields
//
//   - Question: Required. The natural-language question to answer.
//     Limited to 32KB.
//   - SessionID: Optional. UUID v4 grouping exchanges into a session.
//   - ShowQuery: Optional. When true the response includes the
//     generated graph query and the raw result context.
//
// # Validation
//
// Uses go-playground/validator:
//   - Question: required, max 32768 bytes
//   - SessionID: when present, must be a valid UUID v4
type QARequest struct {
	Question  string `json:"question" validate:"required,maxbytes"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,uuid4"`
	ShowQuery bool   `json:"show_query,omitempty"`
}

// Validate validates the QARequest fields. Call after binding the JSON
// body.
func (r *QARequest) Validate() error {
	return gatewayValidate.Struct(r)
}

// EnsureDefaults assigns a session ID when the client did not send one.
func (r *QARequest) EnsureDefaults() {
	if r.SessionID == "" {
		r.SessionID = uuid.New().String()
	}
}

// QAResponse represents the answer to a question.
//
// # Description
//
// Contains the synthesized answer plus identifiers for correlation.
// GeneratedQuery and ResultContext are populated only when the request
// set ShowQuery; they expose the pipeline's intermediate artifacts for
// debugging and query development.
//
// # Fields
//
//   - ResponseID: Unique identifier for this response (UUID v4),
//     generated server-side.
//   - SessionID: The session this exchange belongs to.
//   - Timestamp: Unix timestamp in milliseconds (UTC).
//   - Answer: The synthesized answer text.
//   - GeneratedQuery: Optional. The graph query the model produced.
//   - ResultContext: Optional. The query result handed to synthesis.
type QAResponse struct {
	ResponseID     string `json:"response_id"`
	SessionID      string `json:"session_id"`
	Timestamp      int64  `json:"timestamp"`
	Answer         string `json:"answer"`
	GeneratedQuery string `json:"generated_query,omitempty"`
	ResultContext  string `json:"result_context,omitempty"`
}

// NewQAResponse creates a QAResponse with a generated ID and timestamp.
func NewQAResponse(sessionID, answer string) *QAResponse {
	return &QAResponse{
		ResponseID: uuid.New().String(),
		SessionID:  sessionID,
		Timestamp:  time.Now().UnixMilli(),
		Answer:     answer,
	}
}

// SchemaResponse carries the graph schema text served to clients.
type SchemaResponse struct {
	Schema    string `json:"schema"`
	Timestamp int64  `json:"timestamp"`
}
