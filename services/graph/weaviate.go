// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("tidegraph.graph")

// NewWeaviateClient creates a Weaviate client from a full URL such as
// "http://weaviate:8080". Surrounding quotes and whitespace are
// tolerated for values lifted straight out of env files.
func NewWeaviateClient(rawURL string) (*weaviate.Client, error) {
	weaviateURL := strings.Trim(rawURL, "\"' ")

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid Weaviate URL: %s", weaviateURL)
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Weaviate client: %w", err)
	}

	slog.Info("Weaviate client initialized", "url", weaviateURL)
	return client, nil
}

// WeaviateStore implements Store against a Weaviate instance.
//
// # Description
//
// Schema fetches the class catalog, renders it to the prompt text via
// RenderSchema, and caches the rendering for SchemaTTL. Concurrent
// fetches for an expired cache collapse into one request. Query runs
// raw GraphQL.
//
// # Limitations
//
//   - The schema cache does not watch for class changes; it expires on
//     the TTL or on InvalidateSchema.
type WeaviateStore struct {
	client    *weaviate.Client
	schemaTTL time.Duration

	flight singleflight.Group

	mu        sync.RWMutex
	rendered  string
	fetchedAt time.Time
}

// NewWeaviateStore wraps client as a Store. schemaTTL <= 0 disables
// schema caching and every Schema call hits the backend.
func NewWeaviateStore(client *weaviate.Client, schemaTTL time.Duration) *WeaviateStore {
	return &WeaviateStore{
		client:    client,
		schemaTTL: schemaTTL,
	}
}

// Schema returns the rendered class catalog.
func (s *WeaviateStore) Schema(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "WeaviateStore.Schema")
	defer span.End()

	if cached, ok := s.cachedSchema(); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}

	// Collapse concurrent fetches for an expired cache into one request.
	resultI, err, _ := s.flight.Do("schema", func() (any, error) {
		// Double-check cache inside singleflight
		if cached, ok := s.cachedSchema(); ok {
			return cached, nil
		}

		dump, err := s.client.Schema().Getter().Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch Weaviate schema: %w", err)
		}

		rendered := RenderSchema(dump.Classes)

		s.mu.Lock()
		s.rendered = rendered
		s.fetchedAt = time.Now()
		s.mu.Unlock()

		return rendered, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	rendered, ok := resultI.(string)
	if !ok {
		err := fmt.Errorf("unexpected type from singleflight group 'schema': got %T", resultI)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(
		attribute.Bool("cache_hit", false),
		attribute.Int("schema_length", len(rendered)),
	)
	return rendered, nil
}

func (s *WeaviateStore) cachedSchema() (string, bool) {
	if s.schemaTTL <= 0 {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fetchedAt.IsZero() || time.Since(s.fetchedAt) > s.schemaTTL {
		return "", false
	}
	return s.rendered, true
}

// InvalidateSchema drops the cached rendering so the next Schema call
// refetches. Call after class changes.
func (s *WeaviateStore) InvalidateSchema() {
	s.mu.Lock()
	s.fetchedAt = time.Time{}
	s.rendered = ""
	s.mu.Unlock()
}

// Query executes statement verbatim via the raw GraphQL endpoint.
//
// The statement is sent byte for byte; nothing is validated or
// rewritten here. GraphQL-level errors in the response surface as a
// *QueryError.
func (s *WeaviateStore) Query(ctx context.Context, statement string) (any, error) {
	ctx, span := tracer.Start(ctx, "WeaviateStore.Query")
	defer span.End()
	span.SetAttributes(attribute.Int("statement_length", len(statement)))

	resp, err := s.client.GraphQL().Raw().WithQuery(statement).Do(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("graph query failed: %w", err)
	}

	if len(resp.Errors) > 0 {
		messages := make([]string, 0, len(resp.Errors))
		for _, gqlErr := range resp.Errors {
			if gqlErr != nil {
				messages = append(messages, gqlErr.Message)
			}
		}
		queryErr := &QueryError{Messages: messages}
		span.RecordError(queryErr)
		span.SetStatus(codes.Error, queryErr.Error())
		slog.Warn("Graph query returned errors", "error_count", len(messages))
		return nil, queryErr
	}

	return resp.Data, nil
}

var _ Store = (*WeaviateStore)(nil)
