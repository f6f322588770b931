// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// =============================================================================
// Test Helpers
// =============================================================================

// capturedRequest records everything the mock server saw for one call.
type capturedRequest struct {
	method  string
	headers http.Header
	payload map[string]any
}

// newMockWriterServer creates a test server that records incoming
// requests and replies with the given body and status.
//
// # Description
//
// Each request's method, headers, and decoded JSON payload are appended
// to the returned slice. The server never validates anything; it only
// echoes the configured response.
//
// # Outputs
//
//   - *httptest.Server: Test server. Caller must call Close().
//   - *[]capturedRequest: Recorded requests, in arrival order.
func newMockWriterServer(t *testing.T, status int, body string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("Failed to read request body: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Errorf("Request body is not valid JSON: %v", err)
		}
		captured = append(captured, capturedRequest{
			method:  r.Method,
			headers: r.Header.Clone(),
			payload: payload,
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	return server, &captured
}

// newTestWriterClient creates a WriterClient pointed at a test server.
func newTestWriterClient(t *testing.T, serverURL string, cfg WriterConfig) *WriterClient {
	t.Helper()
	cfg.APIKey = "test-key"
	cfg.OrgID = "test-org"
	cfg.BaseURL = serverURL
	client, err := NewWriterClient(cfg)
	if err != nil {
		t.Fatalf("NewWriterClient returned error: %v", err)
	}
	return client
}

func intPtr(v int) *int         { return &v }
func f32Ptr(v float32) *float32 { return &v }
func boolPtr(v bool) *bool      { return &v }

// =============================================================================
// Construction Tests
// =============================================================================

// TestNewWriterClient_MissingAPIKey tests the API key requirement.
//
// # Description
//
// Verifies that construction fails with a configuration error before
// any network activity when no API key is provided.
func TestNewWriterClient_MissingAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewWriterClient(WriterConfig{OrgID: "org1"})

	if err == nil {
		t.Fatal("NewWriterClient should fail without an API key")
	}
	if !errors.Is(err, ErrWriterAPIKeyMissing) {
		t.Errorf("Expected ErrWriterAPIKeyMissing, got: %v", err)
	}
}

// TestNewWriterClient_MissingOrgID tests the organization requirement.
func TestNewWriterClient_MissingOrgID(t *testing.T) {
	t.Parallel()

	_, err := NewWriterClient(WriterConfig{APIKey: "key"})

	if err == nil {
		t.Fatal("NewWriterClient should fail without an organization id")
	}
	if !errors.Is(err, ErrWriterOrgIDMissing) {
		t.Errorf("Expected ErrWriterOrgIDMissing, got: %v", err)
	}
}

// TestNewWriterClient_MissingOrgIDWithBaseURL tests that credentials
// are required even when the endpoint is overridden.
func TestNewWriterClient_MissingOrgIDWithBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewWriterClient(WriterConfig{APIKey: "key", BaseURL: "https://x/y"})

	if !errors.Is(err, ErrWriterOrgIDMissing) {
		t.Errorf("Expected ErrWriterOrgIDMissing, got: %v", err)
	}
}

// TestNewWriterClient_DefaultModel tests the model fallback.
func TestNewWriterClient_DefaultModel(t *testing.T) {
	t.Parallel()

	client, err := NewWriterClient(WriterConfig{APIKey: "key", OrgID: "org1"})
	if err != nil {
		t.Fatalf("NewWriterClient returned error: %v", err)
	}
	defer client.Close()

	if client.modelID != "palmyra-instruct" {
		t.Errorf("Expected default model 'palmyra-instruct', got '%s'", client.modelID)
	}
}

// TestWriterConfigFromEnv tests environment resolution.
//
// # Description
//
// Verifies that WriterConfigFromEnv picks up the documented variables
// and that the resulting config constructs a working client.
func TestWriterConfigFromEnv(t *testing.T) {
	t.Setenv(EnvWriterAPIKey, "env-key")
	t.Setenv(EnvWriterOrgID, "env-org")
	t.Setenv(EnvWriterModelID, "palmyra-x")
	t.Setenv(EnvWriterBaseURL, "https://writer.internal/completions")

	cfg := WriterConfigFromEnv()

	if cfg.APIKey != "env-key" {
		t.Errorf("Expected APIKey 'env-key', got '%s'", cfg.APIKey)
	}
	if cfg.OrgID != "env-org" {
		t.Errorf("Expected OrgID 'env-org', got '%s'", cfg.OrgID)
	}
	if cfg.ModelID != "palmyra-x" {
		t.Errorf("Expected ModelID 'palmyra-x', got '%s'", cfg.ModelID)
	}
	if cfg.BaseURL != "https://writer.internal/completions" {
		t.Errorf("Expected BaseURL override, got '%s'", cfg.BaseURL)
	}

	client, err := NewWriterClient(cfg)
	if err != nil {
		t.Fatalf("NewWriterClient returned error: %v", err)
	}
	client.Close()
}

// TestWriterConfigFromEnv_Empty tests behavior with a clean environment.
func TestWriterConfigFromEnv_Empty(t *testing.T) {
	t.Setenv(EnvWriterAPIKey, "")
	t.Setenv(EnvWriterOrgID, "")

	cfg := WriterConfigFromEnv()

	if _, err := NewWriterClient(cfg); !errors.Is(err, ErrWriterAPIKeyMissing) {
		t.Errorf("Expected ErrWriterAPIKeyMissing, got: %v", err)
	}
}

// =============================================================================
// Endpoint Resolution Tests
// =============================================================================

// TestResolveWriterEndpoint tests URL construction.
//
// # Description
//
// Verifies the org/model template and that an explicit override is
// used verbatim, untouched by the template.
func TestResolveWriterEndpoint(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		baseURL  string
		orgID    string
		modelID  string
		expected string
	}{
		{
			name:     "org and model fill template",
			orgID:    "org1",
			modelID:  "modelA",
			expected: "https://enterprise-api.writer.com/llm/organization/org1/model/modelA/completions",
		},
		{
			name:     "override wins verbatim",
			baseURL:  "https://x/y",
			orgID:    "org1",
			modelID:  "modelA",
			expected: "https://x/y",
		},
		{
			name:     "override untouched even without trailing path",
			baseURL:  "http://localhost:9999",
			orgID:    "ignored",
			modelID:  "ignored",
			expected: "http://localhost:9999",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolveWriterEndpoint(tc.baseURL, tc.orgID, tc.modelID)
			if got != tc.expected {
				t.Errorf("Expected endpoint '%s', got '%s'", tc.expected, got)
			}
		})
	}
}

// =============================================================================
// Parameter Merge Tests
// =============================================================================

// TestMergeParams_OverridesWin tests the right-biased merge.
//
// # Description
//
// Verifies that call-site overrides replace adapter defaults key by
// key while untouched defaults survive.
func TestMergeParams_OverridesWin(t *testing.T) {
	t.Parallel()

	defaults := map[string]any{"temperature": 0.5, "n": 1}
	overrides := map[string]any{"temperature": 0.9}

	merged := mergeParams(defaults, overrides)

	if merged["temperature"] != 0.9 {
		t.Errorf("Expected temperature 0.9, got %v", merged["temperature"])
	}
	if merged["n"] != 1 {
		t.Errorf("Expected n 1, got %v", merged["n"])
	}
	if len(merged) != 2 {
		t.Errorf("Expected 2 keys, got %d: %v", len(merged), merged)
	}
}

// TestMergeParams_InputsUnmodified tests that the merge is pure.
func TestMergeParams_InputsUnmodified(t *testing.T) {
	t.Parallel()

	defaults := map[string]any{"temperature": 0.5}
	overrides := map[string]any{"temperature": 0.9, "n": 2}

	_ = mergeParams(defaults, overrides)

	if defaults["temperature"] != 0.5 {
		t.Errorf("Defaults were modified: %v", defaults)
	}
	if len(defaults) != 1 {
		t.Errorf("Defaults gained keys: %v", defaults)
	}
	if len(overrides) != 2 {
		t.Errorf("Overrides were modified: %v", overrides)
	}
}

// TestMergeParams_EmptyInputs tests merging with nil maps.
func TestMergeParams_EmptyInputs(t *testing.T) {
	t.Parallel()

	if got := mergeParams(nil, nil); len(got) != 0 {
		t.Errorf("Expected empty map, got %v", got)
	}
	if got := mergeParams(map[string]any{"n": 1}, nil); got["n"] != 1 {
		t.Errorf("Expected defaults to pass through, got %v", got)
	}
	if got := mergeParams(nil, map[string]any{"n": 2}); got["n"] != 2 {
		t.Errorf("Expected overrides to pass through, got %v", got)
	}
}

// TestWriterConfig_DefaultParams tests wire-key mapping.
//
// # Description
//
// Verifies that set fields appear under their wire keys and unset
// fields produce no key at all.
func TestWriterConfig_DefaultParams(t *testing.T) {
	t.Parallel()

	cfg := WriterConfig{
		MinTokens:   intPtr(5),
		MaxTokens:   intPtr(256),
		Temperature: f32Ptr(0.7),
		Stop:        []string{"\n"},
		Logprobs:    boolPtr(false),
		N:           intPtr(1),
	}

	params := cfg.defaultParams()

	if params["minTokens"] != 5 {
		t.Errorf("Expected minTokens 5, got %v", params["minTokens"])
	}
	if params["maxTokens"] != 256 {
		t.Errorf("Expected maxTokens 256, got %v", params["maxTokens"])
	}
	if params["temperature"] != float32(0.7) {
		t.Errorf("Expected temperature 0.7, got %v", params["temperature"])
	}
	if params["logprobs"] != false {
		t.Errorf("Expected logprobs false, got %v", params["logprobs"])
	}
	if params["n"] != 1 {
		t.Errorf("Expected n 1, got %v", params["n"])
	}
	stop, ok := params["stop"].([]string)
	if !ok || len(stop) != 1 || stop[0] != "\n" {
		t.Errorf("Expected stop [\\n], got %v", params["stop"])
	}
	// Unset fields must be absent, not zero-valued.
	for _, key := range []string{"topP", "presencePenalty", "repetitionPenalty", "bestOf"} {
		if _, present := params[key]; present {
			t.Errorf("Key '%s' should be absent for unset field", key)
		}
	}
}

// TestWriterConfig_DefaultParams_AllUnset tests the empty config.
func TestWriterConfig_DefaultParams_AllUnset(t *testing.T) {
	t.Parallel()

	params := WriterConfig{}.defaultParams()

	if len(params) != 0 {
		t.Errorf("Expected no default params, got %v", params)
	}
}

// =============================================================================
// Stop Sequence Tests
// =============================================================================

// TestTruncateAtStop tests client-side stop enforcement.
//
// # Description
//
// Verifies truncation at the earliest occurrence across all stop
// strings, regardless of their order in the slice.
func TestTruncateAtStop(t *testing.T) {
	t.Parallel()

	// "STOP1" begins at index 10, "STOP2" at index 20.
	text := "0123456789STOP1abcdeSTOP2xyz"

	testCases := []struct {
		name     string
		stops    []string
		expected string
	}{
		{
			name:     "earliest match wins",
			stops:    []string{"STOP1", "STOP2"},
			expected: "0123456789",
		},
		{
			name:     "order of stop strings is irrelevant",
			stops:    []string{"STOP2", "STOP1"},
			expected: "0123456789",
		},
		{
			name:     "single later match",
			stops:    []string{"STOP2"},
			expected: "0123456789STOP1abcde",
		},
		{
			name:     "no match leaves text unchanged",
			stops:    []string{"ABSENT"},
			expected: text,
		},
		{
			name:     "empty stop strings are ignored",
			stops:    []string{"", "STOP2"},
			expected: "0123456789STOP1abcde",
		},
		{
			name:     "match at index zero yields empty text",
			stops:    []string{"0123"},
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := truncateAtStop(text, tc.stops)
			if got != tc.expected {
				t.Errorf("Expected '%s', got '%s'", tc.expected, got)
			}
		})
	}
}

// TestComplete_StopTruncatesResponse tests end-to-end stop handling.
func TestComplete_StopTruncatesResponse(t *testing.T) {
	t.Parallel()

	server, captured := newMockWriterServer(t, http.StatusOK, "hello STOP world")
	defer server.Close()

	client := newTestWriterClient(t, server.URL, WriterConfig{})
	defer client.Close()

	text, err := client.Complete(context.Background(), "hi", []string{"STOP"}, nil)

	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "hello " {
		t.Errorf("Expected 'hello ', got '%s'", text)
	}
	// The call-level stop drives truncation only; it must not leak into
	// the outbound payload.
	if _, present := (*captured)[0].payload["stop"]; present {
		t.Error("Call-level stop should not appear in the request payload")
	}
}

// TestComplete_DefaultStopInPayloadOnly tests the other direction:
// a configured stop default rides in the payload but does not truncate.
func TestComplete_DefaultStopInPayloadOnly(t *testing.T) {
	t.Parallel()

	server, captured := newMockWriterServer(t, http.StatusOK, "alpha\nbeta")
	defer server.Close()

	client := newTestWriterClient(t, server.URL, WriterConfig{Stop: []string{"\n"}})
	defer client.Close()

	text, err := client.Complete(context.Background(), "hi", nil, nil)

	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "alpha\nbeta" {
		t.Errorf("Expected untruncated text, got '%s'", text)
	}
	payloadStop, ok := (*captured)[0].payload["stop"].([]any)
	if !ok || len(payloadStop) != 1 || payloadStop[0] != "\n" {
		t.Errorf("Expected payload stop [\\n], got %v", (*captured)[0].payload["stop"])
	}
}

// =============================================================================
// Request Shape Tests
// =============================================================================

// TestComplete_RequestShape tests the outbound request.
//
// # Description
//
// Verifies a single POST with the merged parameters plus the prompt,
// the raw-key Authorization header, and the JSON content headers.
func TestComplete_RequestShape(t *testing.T) {
	t.Parallel()

	server, captured := newMockWriterServer(t, http.StatusOK, "ok")
	defer server.Close()

	client := newTestWriterClient(t, server.URL, WriterConfig{
		Temperature: f32Ptr(0.5),
		N:           intPtr(1),
	})
	defer client.Close()

	_, err := client.Complete(context.Background(), "describe the tides", nil,
		map[string]any{"temperature": 0.9})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if len(*captured) != 1 {
		t.Fatalf("Expected exactly 1 request, got %d", len(*captured))
	}
	req := (*captured)[0]

	if req.method != http.MethodPost {
		t.Errorf("Expected POST, got %s", req.method)
	}
	if got := req.headers.Get("Authorization"); got != "test-key" {
		t.Errorf("Expected raw key in Authorization header, got '%s'", got)
	}
	if strings.HasPrefix(req.headers.Get("Authorization"), "Bearer") {
		t.Error("Authorization header must not carry a Bearer prefix")
	}
	if got := req.headers.Get("Content-Type"); got != "application/json" {
		t.Errorf("Expected Content-Type application/json, got '%s'", got)
	}
	if got := req.headers.Get("Accept"); got != "application/json" {
		t.Errorf("Expected Accept application/json, got '%s'", got)
	}

	if req.payload["prompt"] != "describe the tides" {
		t.Errorf("Expected prompt in payload, got %v", req.payload["prompt"])
	}
	if req.payload["temperature"] != 0.9 {
		t.Errorf("Expected override temperature 0.9, got %v", req.payload["temperature"])
	}
	if req.payload["n"] != float64(1) {
		t.Errorf("Expected default n 1, got %v", req.payload["n"])
	}
	if len(req.payload) != 3 {
		t.Errorf("Expected exactly prompt+temperature+n, got %v", req.payload)
	}
}

// TestComplete_DefaultsUntouchedAcrossCalls tests that per-call
// overrides do not bleed into the adapter defaults.
func TestComplete_DefaultsUntouchedAcrossCalls(t *testing.T) {
	t.Parallel()

	server, captured := newMockWriterServer(t, http.StatusOK, "ok")
	defer server.Close()

	client := newTestWriterClient(t, server.URL, WriterConfig{Temperature: f32Ptr(0.5)})
	defer client.Close()

	ctx := context.Background()
	if _, err := client.Complete(ctx, "first", nil, map[string]any{"temperature": 0.9}); err != nil {
		t.Fatalf("First call returned error: %v", err)
	}
	if _, err := client.Complete(ctx, "second", nil, nil); err != nil {
		t.Fatalf("Second call returned error: %v", err)
	}

	second := (*captured)[1].payload
	if second["temperature"] != 0.5 {
		t.Errorf("Second call should use the original default 0.5, got %v", second["temperature"])
	}
}

// =============================================================================
// Response Handling Tests
// =============================================================================

// TestComplete_RawBodyPassthrough tests response transparency.
//
// # Description
//
// Verifies that the body is returned as text with no JSON parsing and
// no status inspection, even for non-2xx responses.
func TestComplete_RawBodyPassthrough(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{"plain text", http.StatusOK, "the tide is high"},
		{"json body returned verbatim", http.StatusOK, `{"choices":[{"text":"hi"}]}`},
		{"server error body still returned", http.StatusInternalServerError, "upstream exploded"},
		{"unauthorized body still returned", http.StatusUnauthorized, `{"detail":"bad key"}`},
		{"empty body", http.StatusNoContent, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server, _ := newMockWriterServer(t, tc.status, tc.body)
			defer server.Close()

			client := newTestWriterClient(t, server.URL, WriterConfig{})
			defer client.Close()

			text, err := client.Complete(context.Background(), "hi", nil, nil)

			if err != nil {
				t.Fatalf("Complete returned error: %v", err)
			}
			if text != tc.body {
				t.Errorf("Expected body '%s' verbatim, got '%s'", tc.body, text)
			}
		})
	}
}

// TestComplete_TransportErrorUnchanged tests error transparency.
//
// # Description
//
// Verifies that a failure from the HTTP client reaches the caller as
// the client's own error, with no wrapping added.
func TestComplete_TransportErrorUnchanged(t *testing.T) {
	t.Parallel()

	server, _ := newMockWriterServer(t, http.StatusOK, "ok")
	serverURL := server.URL
	server.Close()

	cfg := WriterConfig{APIKey: "test-key", OrgID: "test-org", BaseURL: serverURL}
	client, err := NewWriterClient(cfg)
	if err != nil {
		t.Fatalf("NewWriterClient returned error: %v", err)
	}
	defer client.Close()

	_, err = client.Complete(context.Background(), "hi", nil, nil)

	if err == nil {
		t.Fatal("Complete should fail when the server is unreachable")
	}
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		t.Fatalf("Expected the http client's *url.Error, got %T: %v", err, err)
	}
	if err.Error() != urlErr.Error() {
		t.Errorf("Transport error was wrapped: %v", err)
	}
}

// TestComplete_ContextCancellation tests context propagation.
func TestComplete_ContextCancellation(t *testing.T) {
	t.Parallel()

	server, _ := newMockWriterServer(t, http.StatusOK, "ok")
	defer server.Close()

	client := newTestWriterClient(t, server.URL, WriterConfig{})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, "hi", nil, nil)

	if err == nil {
		t.Fatal("Complete should fail with a cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}

// =============================================================================
// Generate (LLMClient) Tests
// =============================================================================

// TestGenerate_TranslatesParams tests the LLMClient adapter surface.
//
// # Description
//
// Verifies that set GenerationParams fields become call-site overrides
// under their wire keys, that Stop drives truncation without entering
// the payload, and that TopK is dropped.
func TestGenerate_TranslatesParams(t *testing.T) {
	t.Parallel()

	server, captured := newMockWriterServer(t, http.StatusOK, "answer END trailing")
	defer server.Close()

	client := newTestWriterClient(t, server.URL, WriterConfig{})
	defer client.Close()

	text, err := client.Generate(context.Background(), "question", GenerationParams{
		Temperature: f32Ptr(0.2),
		MaxTokens:   intPtr(128),
		TopK:        intPtr(40),
		Stop:        []string{"END"},
	})

	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "answer " {
		t.Errorf("Expected 'answer ', got '%s'", text)
	}

	payload := (*captured)[0].payload
	if payload["temperature"] != 0.2 {
		t.Errorf("Expected temperature 0.2, got %v", payload["temperature"])
	}
	if payload["maxTokens"] != float64(128) {
		t.Errorf("Expected maxTokens 128, got %v", payload["maxTokens"])
	}
	if _, present := payload["stop"]; present {
		t.Error("Stop should not appear in the payload")
	}
	if _, present := payload["top_k"]; present {
		t.Error("TopK has no wire key and should be dropped")
	}
	if _, present := payload["topK"]; present {
		t.Error("TopK has no wire key and should be dropped")
	}
}

// TestGenerate_EmptyParams tests the minimal call.
func TestGenerate_EmptyParams(t *testing.T) {
	t.Parallel()

	server, captured := newMockWriterServer(t, http.StatusOK, "plain answer")
	defer server.Close()

	client := newTestWriterClient(t, server.URL, WriterConfig{})
	defer client.Close()

	text, err := client.Generate(context.Background(), "question", GenerationParams{})

	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "plain answer" {
		t.Errorf("Expected 'plain answer', got '%s'", text)
	}
	payload := (*captured)[0].payload
	if len(payload) != 1 || payload["prompt"] != "question" {
		t.Errorf("Expected payload with only the prompt, got %v", payload)
	}
}
