// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidegraph/tidegraph/services/gateway/telemetry"
	"github.com/tidegraph/tidegraph/services/llm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a Config that constructs without reaching any
// external service: telemetry off, history in a temp dir, and an
// Ollama backend pointed at nothing (construction does not dial).
func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		LLMBackend: llm.BackendOllama,
		Backends: llm.BackendConfig{
			Ollama: llm.OllamaConfig{BaseURL: "http://127.0.0.1:1"},
		},
		WeaviateURL:    "http://127.0.0.1:1",
		HistoryBackend: HistoryBadger,
		HistoryPath:    t.TempDir(),
		Telemetry: telemetry.Config{
			ServiceName:    "tidegraph-gateway-test",
			ServiceVersion: "test",
			Environment:    "test",
			TraceExporter:  "none",
			MetricExporter: "none",
		},
		GinMode: gin.TestMode,
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	cfg := applyConfigDefaults(Config{})

	assert.Equal(t, 12310, cfg.Port)
	assert.Equal(t, llm.BackendWriter, cfg.LLMBackend)
	assert.Equal(t, 5*time.Minute, cfg.SchemaTTL)
	assert.Equal(t, HistoryBadger, cfg.HistoryBackend)
	assert.Equal(t, "./data/history", cfg.HistoryPath)
	assert.Equal(t, telemetry.DefaultConfig().ServiceName, cfg.Telemetry.ServiceName)
}

func TestApplyConfigDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := applyConfigDefaults(Config{
		Port:           9999,
		LLMBackend:     llm.BackendOllama,
		HistoryBackend: HistoryDisabled,
	})

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, llm.BackendOllama, cfg.LLMBackend)
	assert.Equal(t, HistoryDisabled, cfg.HistoryBackend)
}

func TestNew_ServesHealth(t *testing.T) {
	svc, err := New(testConfig(t), nil)
	require.NoError(t, err)
	defer svc.Close()

	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNew_InvalidWeaviateURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.WeaviateURL = "not a url"

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestNew_UnknownHistoryBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.HistoryBackend = "redis"

	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history")
}

func TestNew_UnknownLLMBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLMBackend = "etched-in-stone"

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestNew_HistoryDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.HistoryBackend = HistoryDisabled

	svc, err := New(cfg, nil)
	require.NoError(t, err)
	svc.Close()
}

func TestClose_Idempotent(t *testing.T) {
	svc, err := New(testConfig(t), nil)
	require.NoError(t, err)

	svc.Close()
	svc.Close()
}
