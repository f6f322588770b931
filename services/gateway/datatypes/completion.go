// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"time"

	"github.com/google/uuid"

	"github.com/tidegraph/tidegraph/services/llm"
)

// CompletionRequest represents a raw completion request body.
//
// # Description
//
// CompletionRequest exposes the configured completion backend directly,
// bypassing the question-answering pipeline. This is used for the
// POST /v1/completions endpoint, mainly for prompt development and
// smoke-testing a backend before pointing the pipeline at it.
//
// All sampling fields are optional pointers: nil fields are left to the
// backend's defaults and omitted from the outbound request entirely.
//
// # Validation
//
// Uses go-playground/validator:
//   - Prompt: required, max 32768 bytes
//   - Temperature: when present, 0-2
//   - TopP: when present, 0-1
type CompletionRequest struct {
	Prompt            string   `json:"prompt" validate:"required,maxbytes"`
	MinTokens         *int     `json:"min_tokens,omitempty" validate:"omitempty,gte=0"`
	MaxTokens         *int     `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	Temperature       *float32 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	TopP              *float32 `json:"top_p,omitempty" validate:"omitempty,gte=0,lte=1"`
	Stop              []string `json:"stop,omitempty"`
	PresencePenalty   *float32 `json:"presence_penalty,omitempty"`
	RepetitionPenalty *float32 `json:"repetition_penalty,omitempty"`
	BestOf            *int     `json:"best_of,omitempty" validate:"omitempty,gt=0"`
	Logprobs          *bool    `json:"logprobs,omitempty"`
	N                 *int     `json:"n,omitempty" validate:"omitempty,gt=0"`
}

// Validate validates the CompletionRequest fields. Call after binding
// the JSON body.
func (r *CompletionRequest) Validate() error {
	return gatewayValidate.Struct(r)
}

// ToGenerationParams maps the request's sampling fields onto the
// backend parameter set. Nil fields stay nil.
func (r *CompletionRequest) ToGenerationParams() llm.GenerationParams {
	return llm.GenerationParams{
		MinTokens:         r.MinTokens,
		MaxTokens:         r.MaxTokens,
		Temperature:       r.Temperature,
		TopP:              r.TopP,
		Stop:              r.Stop,
		PresencePenalty:   r.PresencePenalty,
		RepetitionPenalty: r.RepetitionPenalty,
		BestOf:            r.BestOf,
		Logprobs:          r.Logprobs,
		N:                 r.N,
	}
}

// CompletionResponse represents the text returned by the backend.
//
// The completion is returned verbatim, including whatever framing the
// backend chose; the gateway does not parse or reshape it.
type CompletionResponse struct {
	ResponseID string `json:"response_id"`
	Timestamp  int64  `json:"timestamp"`
	Completion string `json:"completion"`
}

// NewCompletionResponse creates a CompletionResponse with a generated
// ID and timestamp.
func NewCompletionResponse(completion string) *CompletionResponse {
	return &CompletionResponse{
		ResponseID: uuid.New().String(),
		Timestamp:  time.Now().UnixMilli(),
		Completion: completion,
	}
}
