// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command gateway starts the TideGraph HTTP gateway.
//
// This is the entry point for the containerized gateway service. It
// reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - TIDEGRAPH_PORT: HTTP server port (default: 12310)
//   - TIDEGRAPH_LLM_BACKEND: completion provider - writer, openai, ollama (default: writer)
//   - TIDEGRAPH_WEAVIATE_URL: graph store URL (required), e.g. http://weaviate:8080
//   - TIDEGRAPH_HISTORY_BACKEND: badger, weaviate, disabled (default: badger)
//   - TIDEGRAPH_HISTORY_PATH: Badger database directory (default: ./data/history)
//   - TIDEGRAPH_PROMPT_DIR: prompt template override directory (optional)
//   - TIDEGRAPH_SCHEMA_TTL_SECONDS: schema cache TTL (default: 300)
//   - TIDEGRAPH_LOG_LEVEL: debug, info, warn, error (default: info)
//   - TIDEGRAPH_LOG_DIR: also write JSON log files to this directory (optional)
//   - WRITER_API_KEY, WRITER_ORG_ID, WRITER_MODEL_ID, WRITER_BASE_URL: Writer backend
//   - OPENAI_API_KEY, OPENAI_MODEL: OpenAI backend
//   - OLLAMA_BASE_URL, OLLAMA_MODEL: Ollama backend
//   - OTEL_TRACES_EXPORTER, OTEL_METRICS_EXPORTER, OTEL_EXPORTER_OTLP_ENDPOINT: telemetry
//
// # Usage
//
//	go build -o tidegraph-gateway ./cmd/gateway
//	TIDEGRAPH_WEAVIATE_URL=http://localhost:8080 ./tidegraph-gateway
package main

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/tidegraph/tidegraph/pkg/logging"
	"github.com/tidegraph/tidegraph/services/gateway"
	"github.com/tidegraph/tidegraph/services/gateway/telemetry"
	"github.com/tidegraph/tidegraph/services/llm"
)

func main() {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(getEnvString("TIDEGRAPH_LOG_LEVEL", "info")),
		Service: "gateway",
		JSON:    true,
		LogDir:  os.Getenv("TIDEGRAPH_LOG_DIR"),
	})
	slog.SetDefault(logger.Slog())

	cfg := gateway.Config{
		Port:       getEnvInt("TIDEGRAPH_PORT", 12310),
		LLMBackend: getEnvString("TIDEGRAPH_LLM_BACKEND", llm.BackendWriter),
		Backends: llm.BackendConfig{
			Writer: llm.WriterConfigFromEnv(),
			OpenAI: llm.OpenAIConfigFromEnv(),
			Ollama: llm.OllamaConfigFromEnv(),
		},
		WeaviateURL:    os.Getenv("TIDEGRAPH_WEAVIATE_URL"),
		SchemaTTL:      time.Duration(getEnvInt("TIDEGRAPH_SCHEMA_TTL_SECONDS", 300)) * time.Second,
		HistoryBackend: getEnvString("TIDEGRAPH_HISTORY_BACKEND", gateway.HistoryBadger),
		HistoryPath:    getEnvString("TIDEGRAPH_HISTORY_PATH", "./data/history"),
		PromptDir:      os.Getenv("TIDEGRAPH_PROMPT_DIR"),
		Telemetry:      telemetry.DefaultConfig(),
	}

	slog.Info("Starting gateway",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
		"weaviate_url", cfg.WeaviateURL,
		"history_backend", cfg.HistoryBackend,
	)

	// Default (no-op) extension options; enterprise builds pass their own
	svc, err := gateway.New(cfg, nil)
	if err != nil {
		logger.Error("Failed to create gateway", "error", err)
		logger.Close()
		os.Exit(1)
	}

	if err := svc.Run(); err != nil {
		logger.Error("Gateway error", "error", err)
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
