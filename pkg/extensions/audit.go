// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"time"
)

// Audit event types emitted by the gateway. A deployment's AuditLogger
// can filter or alert on these. The most important one is
// EventQueryGenerated: it fires for every model-generated graph query
// before the store executes it, which is the record reviewers ask for
// when an LLM is allowed to produce executable statements.
const (
	EventQuestionReceived = "qa.question"
	EventQueryGenerated   = "qa.query_generated"
	EventAnswerProduced   = "qa.answer"
	EventCompletionCall   = "llm.completion"
	EventAuthFailed       = "auth.failed"
)

// AuditEvent captures one security-relevant occurrence.
type AuditEvent struct {
	// EventType categorizes the event, "category.action" form.
	// See the Event* constants.
	EventType string

	// Timestamp of the event in UTC. Implementations set it to
	// time.Now().UTC() when zero.
	Timestamp time.Time

	// UserID identifies the actor; "system" for automated actions.
	UserID string

	// SessionID ties the event to a QA conversation, when known.
	SessionID string

	// Outcome is "success", "failure", or "blocked".
	Outcome string

	// Detail holds event-specific payload. For EventQueryGenerated
	// this includes the generated statement under "query".
	Detail map[string]any
}

// AuditFilter selects events for Query. Zero fields are ignored;
// populated fields combine with AND.
type AuditFilter struct {
	EventTypes []string
	UserID     string
	SessionID  string
	StartTime  time.Time
	EndTime    time.Time
	Limit      int
}

// AuditLogger records audit events. Log is called on request paths and
// must return quickly; implementations that persist remotely should
// buffer and flush asynchronously. Implementations must be safe for
// concurrent use.
type AuditLogger interface {
	// Log records one event. Implementations set a zero Timestamp.
	Log(ctx context.Context, event AuditEvent) error

	// Query returns events matching the filter, newest first.
	Query(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)

	// Flush drains any buffered events; called at shutdown.
	Flush(ctx context.Context) error
}

// NopAuditLogger discards every event. Default for local deployments
// that keep no audit trail.
type NopAuditLogger struct{}

// Log discards the event.
func (l *NopAuditLogger) Log(ctx context.Context, event AuditEvent) error {
	return nil
}

// Query returns no events.
func (l *NopAuditLogger) Query(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	return []AuditEvent{}, nil
}

// Flush is a no-op.
func (l *NopAuditLogger) Flush(ctx context.Context) error {
	return nil
}

var _ AuditLogger = (*NopAuditLogger)(nil)
