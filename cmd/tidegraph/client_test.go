// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidegraph/tidegraph/services/gateway/datatypes"
	"github.com/tidegraph/tidegraph/services/gateway/history"
)

func newTestClient(handler http.Handler) (*GatewayClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	return NewGatewayClient(server.URL, "Bearer test-token", 5*time.Second), server
}

func TestGatewayClientAsk(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody datatypes.QARequest

	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(datatypes.QAResponse{
			ResponseID: "resp-1",
			SessionID:  "session-1",
			Answer:     "42 vessels",
		})
	}))
	defer server.Close()

	resp, err := client.Ask(context.Background(), datatypes.QARequest{
		Question:  "how many vessels?",
		ShowQuery: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/qa", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "how many vessels?", gotBody.Question)
	assert.True(t, gotBody.ShowQuery)
	assert.Equal(t, "42 vessels", resp.Answer)
	assert.Equal(t, "session-1", resp.SessionID)
}

func TestGatewayClientAskErrorBodyVerbatim(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "graph query failed: vector index unavailable",
		})
	}))
	defer server.Close()

	_, err := client.Ask(context.Background(), datatypes.QARequest{Question: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph query failed: vector index unavailable")
	assert.Contains(t, err.Error(), "status 500")
}

func TestGatewayClientAskNonJSONErrorBody(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	_, err := client.Ask(context.Background(), datatypes.QARequest{Question: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestGatewayClientComplete(t *testing.T) {
	var gotBody datatypes.CompletionRequest

	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(datatypes.CompletionResponse{Completion: "hello there"})
	}))
	defer server.Close()

	temp := float32(0.3)
	resp, err := client.Complete(context.Background(), datatypes.CompletionRequest{
		Prompt:      "say hello",
		Temperature: &temp,
		Stop:        []string{"\n"},
	})
	require.NoError(t, err)

	assert.Equal(t, "hello there", resp.Completion)
	require.NotNil(t, gotBody.Temperature)
	assert.InDelta(t, 0.3, float64(*gotBody.Temperature), 1e-6)
	assert.Nil(t, gotBody.MaxTokens, "unset fields must not be sent")
	assert.Equal(t, []string{"\n"}, gotBody.Stop)
}

func TestGatewayClientSchema(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/graph/schema", r.URL.Path)
		json.NewEncoder(w).Encode(datatypes.SchemaResponse{Schema: "class Vessel {..}"})
	}))
	defer server.Close()

	resp, err := client.Schema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "class Vessel {..}", resp.Schema)
}

func TestGatewayClientHistory(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sessions/abc-123/history", r.URL.Path)
		json.NewEncoder(w).Encode(SessionHistoryResponse{
			SessionID: "abc-123",
			Exchanges: []history.Exchange{
				{ID: "ex-1", SessionID: "abc-123", Question: "q1", Answer: "a1"},
				{ID: "ex-2", SessionID: "abc-123", Question: "q2", Answer: "a2"},
			},
		})
	}))
	defer server.Close()

	resp, err := client.History(context.Background(), "abc-123")
	require.NoError(t, err)
	require.Len(t, resp.Exchanges, 2)
	assert.Equal(t, "q1", resp.Exchanges[0].Question)
	assert.Equal(t, "a2", resp.Exchanges[1].Answer)
}

func TestGatewayClientNoTokenOmitsAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(datatypes.SchemaResponse{Schema: "s"})
	}))
	defer server.Close()

	client := NewGatewayClient(server.URL+"/", "", 5*time.Second)
	_, err := client.Schema(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestGatewayClientUnreachable(t *testing.T) {
	client := NewGatewayClient("http://127.0.0.1:1", "", 500*time.Millisecond)
	_, err := client.Schema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach the gateway")
}
