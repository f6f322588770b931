// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidegraph/tidegraph/services/gateway/datatypes"
	"github.com/tidegraph/tidegraph/services/gateway/history"
)

// GatewayClient talks to a running TideGraph gateway over HTTP.
//
// # Description
//
// Wraps the gateway's REST endpoints for the CLI. All methods take a
// context and return the gateway's decoded response or an error
// carrying the gateway's error body verbatim, so pipeline failures
// surface to the terminal exactly as the gateway reported them.
type GatewayClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewGatewayClient creates a client for the gateway at baseURL.
// token, when non-empty, is sent as the Authorization header.
func NewGatewayClient(baseURL, token string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SessionHistoryResponse is the body of GET /v1/sessions/:id/history.
type SessionHistoryResponse struct {
	SessionID string             `json:"session_id"`
	Exchanges []history.Exchange `json:"exchanges"`
}

// Ask sends a question through the question-answering pipeline.
func (c *GatewayClient) Ask(ctx context.Context, req datatypes.QARequest) (*datatypes.QAResponse, error) {
	var resp datatypes.QAResponse
	if err := c.postJSON(ctx, "/v1/qa", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Complete sends a raw completion request to the configured backend.
func (c *GatewayClient) Complete(ctx context.Context, req datatypes.CompletionRequest) (*datatypes.CompletionResponse, error) {
	var resp datatypes.CompletionResponse
	if err := c.postJSON(ctx, "/v1/completions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Schema fetches the rendered graph schema.
func (c *GatewayClient) Schema(ctx context.Context) (*datatypes.SchemaResponse, error) {
	var resp datatypes.SchemaResponse
	if err := c.getJSON(ctx, "/v1/graph/schema", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History fetches the stored exchanges for a session, oldest first.
func (c *GatewayClient) History(ctx context.Context, sessionID string) (*SessionHistoryResponse, error) {
	var resp SessionHistoryResponse
	if err := c.getJSON(ctx, "/v1/sessions/"+sessionID+"/history", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *GatewayClient) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode the request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build the request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *GatewayClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build the request: %w", err)
	}
	return c.do(req, out)
}

func (c *GatewayClient) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach the gateway at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, gatewayErrorMessage(bodyBytes))
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("failed to parse the gateway response: %w", err)
	}
	return nil
}

// gatewayErrorMessage extracts the "error" field from an error body,
// falling back to the raw body when it is not the expected shape.
func gatewayErrorMessage(body []byte) string {
	var errBody struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errBody); err == nil && errBody.Error != "" {
		return errBody.Error
	}
	return string(body)
}
