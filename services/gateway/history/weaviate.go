// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("tidegraph.history")

// exchangeClassName is the Weaviate class holding persisted exchanges.
const exchangeClassName = "QAExchange"

// WeaviateStore persists exchanges in the same Weaviate instance the
// questions are asked against, so a single backup covers both the graph
// and its conversation history.
//
// The class is vectorless; history is looked up by session, never by
// similarity.
type WeaviateStore struct {
	client *weaviate.Client
}

// NewWeaviateStore wraps client as a history Store and ensures the
// QAExchange class exists.
func NewWeaviateStore(ctx context.Context, client *weaviate.Client) (*WeaviateStore, error) {
	s := &WeaviateStore{client: client}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	slog.Info("History store opened", "backend", "weaviate", "class", exchangeClassName)
	return s, nil
}

// ensureSchema creates the QAExchange class when missing. An existing
// class is left untouched.
func (s *WeaviateStore) ensureSchema(ctx context.Context) error {
	_, err := s.client.Schema().ClassGetter().
		WithClassName(exchangeClassName).Do(ctx)
	if err == nil {
		return nil
	}

	class := &models.Class{
		Class:       exchangeClassName,
		Description: "One question/answer exchange from the QA pipeline",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "exchange_id", DataType: []string{"text"}},
			{Name: "session_id", DataType: []string{"text"}},
			{Name: "question", DataType: []string{"text"}},
			{Name: "generated_query", DataType: []string{"text"}},
			{Name: "answer", DataType: []string{"text"}},
			{Name: "created_at", DataType: []string{"date"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create %s class: %w", exchangeClassName, err)
	}
	slog.Info("Created history class", "class", exchangeClassName)
	return nil
}

// Append persists one exchange as a QAExchange object.
func (s *WeaviateStore) Append(ctx context.Context, exchange Exchange) error {
	ctx, span := tracer.Start(ctx, "WeaviateStore.Append")
	defer span.End()

	props := map[string]any{
		"exchange_id":     exchange.ID,
		"session_id":      exchange.SessionID,
		"question":        exchange.Question,
		"generated_query": exchange.GeneratedQuery,
		"answer":          exchange.Answer,
		"created_at":      time.Time(exchange.CreatedAt).UTC().Format(time.RFC3339Nano),
	}

	_, err := s.client.Data().Creator().
		WithClassName(exchangeClassName).
		WithProperties(props).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to save exchange: %w", err)
	}
	return nil
}

// exchangeQueryResponse matches the GraphQL Get shape for QAExchange.
type exchangeQueryResponse struct {
	Get struct {
		QAExchange []exchangeResult `json:"QAExchange"`
	} `json:"Get"`
}

type exchangeResult struct {
	ExchangeID     string `json:"exchange_id"`
	SessionID      string `json:"session_id"`
	Question       string `json:"question"`
	GeneratedQuery string `json:"generated_query"`
	Answer         string `json:"answer"`
	CreatedAt      string `json:"created_at"`
}

// BySession returns the session's exchanges ordered by creation time.
func (s *WeaviateStore) BySession(ctx context.Context, sessionID string) ([]Exchange, error) {
	ctx, span := tracer.Start(ctx, "WeaviateStore.BySession")
	defer span.End()

	where := filters.Where().
		WithPath([]string{"session_id"}).
		WithOperator(filters.Equal).
		WithValueString(sessionID)

	fields := []graphql.Field{
		{Name: "exchange_id"},
		{Name: "session_id"},
		{Name: "question"},
		{Name: "generated_query"},
		{Name: "answer"},
		{Name: "created_at"},
	}

	resp, err := s.client.GraphQL().Get().
		WithClassName(exchangeClassName).
		WithWhere(where).
		WithFields(fields...).
		WithSort(graphql.Sort{Path: []string{"created_at"}, Order: graphql.Asc}).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query session history: %w", err)
	}

	parsed, err := parseGraphQLResponse[exchangeQueryResponse](resp)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse session history response: %w", err)
	}

	exchanges := make([]Exchange, 0, len(parsed.Get.QAExchange))
	for _, r := range parsed.Get.QAExchange {
		exchange := Exchange{
			ID:             r.ExchangeID,
			SessionID:      r.SessionID,
			Question:       r.Question,
			GeneratedQuery: r.GeneratedQuery,
			Answer:         r.Answer,
		}
		if ts, err := time.Parse(time.RFC3339Nano, r.CreatedAt); err == nil {
			exchange.CreatedAt = strfmt.DateTime(ts)
		}
		exchanges = append(exchanges, exchange)
	}
	return exchanges, nil
}

// Close is a no-op; the Weaviate client is shared and owned by the
// gateway.
func (s *WeaviateStore) Close() error { return nil }

// parseGraphQLResponse converts Weaviate's dynamic response data into a
// typed struct via a JSON round trip.
func parseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}

	data, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}
	return &result, nil
}

var _ Store = (*WeaviateStore)(nil)
