// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package history

import (
	"context"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStore_AppendAndBySession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := NewExchange("session-1", "who owns service A?", "{ Get { Service } }", "Team platform owns it.")
	second := NewExchange("session-1", "and service B?", "{ Get { Service } }", "Team data owns it.")
	other := NewExchange("session-2", "unrelated", "", "unrelated answer")

	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, second))
	require.NoError(t, store.Append(ctx, other))

	got, err := store.BySession(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
	assert.Equal(t, "who owns service A?", got[0].Question)
	assert.Equal(t, "{ Get { Service } }", got[0].GeneratedQuery)
	assert.Equal(t, "Team data owns it.", got[1].Answer)
}

func TestBadgerStore_CreationOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Append out of wall-clock order; keys must still sort by CreatedAt.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	late := NewExchange("s", "late", "", "late answer")
	late.CreatedAt = strfmt.DateTime(base.Add(time.Hour))
	early := NewExchange("s", "early", "", "early answer")
	early.CreatedAt = strfmt.DateTime(base)

	require.NoError(t, store.Append(ctx, late))
	require.NoError(t, store.Append(ctx, early))

	got, err := store.BySession(ctx, "s")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].Question)
	assert.Equal(t, "late", got[1].Question)
}

func TestBadgerStore_UnknownSessionIsEmpty(t *testing.T) {
	store := newTestStore(t)

	got, err := store.BySession(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBadgerStore_NoPrefixBleed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// "session-1" must not match "session-10".
	require.NoError(t, store.Append(ctx, NewExchange("session-1", "q1", "", "a1")))
	require.NoError(t, store.Append(ctx, NewExchange("session-10", "q10", "", "a10")))

	got, err := store.BySession(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "q1", got[0].Question)
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewBadgerStore(BadgerConfig{Path: dir})
	require.NoError(t, err)
	saved := NewExchange("s", "q", "gq", "a")
	require.NoError(t, store.Append(ctx, saved))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerStore(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.BySession(ctx, "s")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, saved.ID, got[0].ID)
}

func TestBadgerStore_CancelledContext(t *testing.T) {
	store := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, store.Append(ctx, NewExchange("s", "q", "", "a")))
	_, err := store.BySession(ctx, "s")
	assert.Error(t, err)
}
