// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package history persists question-answering exchanges so sessions can
// be reviewed after the fact.
//
// Two backends are provided: an embedded Badger store for single-node
// deployments and a Weaviate-backed store that keeps history next to
// the graph data the questions were asked against. Both implement the
// Store interface; the gateway selects one from configuration. A
// NopStore keeps history-disabled deployments on the same code path.
package history

import (
	"context"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// Exchange is one question/answer turn within a session, including the
// graph query the model generated along the way. The generated query is
// kept because it is the part operators actually inspect when an answer
// looks wrong.
type Exchange struct {
	// ID uniquely identifies this exchange (UUID v4).
	ID string `json:"id"`

	// SessionID groups exchanges into a conversation.
	SessionID string `json:"session_id"`

	// Question is the user's natural-language question.
	Question string `json:"question"`

	// GeneratedQuery is the graph query the model produced for the
	// question. May be empty when the pipeline failed before execution.
	GeneratedQuery string `json:"generated_query,omitempty"`

	// Answer is the synthesized answer text.
	Answer string `json:"answer"`

	// CreatedAt is the server-side creation time (RFC 3339 on the wire).
	CreatedAt strfmt.DateTime `json:"created_at"`
}

// NewExchange builds an Exchange with a fresh ID and timestamp.
func NewExchange(sessionID, question, generatedQuery, answer string) Exchange {
	return Exchange{
		ID:             uuid.New().String(),
		SessionID:      sessionID,
		Question:       question,
		GeneratedQuery: generatedQuery,
		Answer:         answer,
		CreatedAt:      strfmt.DateTime(time.Now().UTC()),
	}
}

// Store persists exchanges and lists them back by session.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the gateway appends
// from request goroutines.
type Store interface {
	// Append persists one exchange. The exchange's ID, SessionID, and
	// CreatedAt must be populated by the caller (see NewExchange).
	Append(ctx context.Context, exchange Exchange) error

	// BySession returns the session's exchanges in creation order.
	// An unknown session yields an empty slice, not an error.
	BySession(ctx context.Context, sessionID string) ([]Exchange, error)

	// Close releases backend resources. Further calls fail.
	Close() error
}

// NopStore discards appends and reports every session as empty. Used
// when history persistence is disabled.
type NopStore struct{}

func (NopStore) Append(context.Context, Exchange) error { return nil }

func (NopStore) BySession(context.Context, string) ([]Exchange, error) {
	return []Exchange{}, nil
}

func (NopStore) Close() error { return nil }

var _ Store = NopStore{}
