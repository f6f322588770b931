// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package graph provides read access to the graph store backing the
// question-answering pipeline: a rendered schema description for prompt
// construction and verbatim execution of generated GraphQL.
package graph

import (
	"context"
	"strings"
)

// Store is the surface the QA pipeline needs from a graph database.
//
// # Description
//
// Schema returns a text rendering of the store's current structure,
// suitable for inclusion in a prompt. Query executes the given GraphQL
// statement exactly as written and returns the decoded result data.
//
// # Assumptions
//
//   - Query never rewrites, validates, or retries the statement. The
//     caller owns the statement text end to end.
type Store interface {
	Schema(ctx context.Context) (string, error)
	Query(ctx context.Context, statement string) (any, error)
}

// QueryError reports GraphQL-level errors for a query the store
// delivered and the backend rejected or partially failed.
type QueryError struct {
	Messages []string
}

func (e *QueryError) Error() string {
	return "graph query failed: " + strings.Join(e.Messages, "; ")
}
