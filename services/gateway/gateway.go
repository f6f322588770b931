// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gateway provides the HTTP front door for TideGraph.
//
// The gateway wires together the completion backend, the graph store,
// the QA pipeline, history persistence, and observability, and serves
// them over a Gin router.
//
// # Enterprise Integration
//
// Deployments inject their own authentication and audit logging via
// extensions.ServiceOptions; the open source build runs no-op defaults.
//
// # Usage
//
//	cfg := gateway.Config{Port: 12310, LLMBackend: "writer"}
//	svc, err := gateway.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tidegraph/tidegraph/pkg/extensions"
	"github.com/tidegraph/tidegraph/services/gateway/history"
	"github.com/tidegraph/tidegraph/services/gateway/observability"
	"github.com/tidegraph/tidegraph/services/gateway/routes"
	"github.com/tidegraph/tidegraph/services/gateway/telemetry"
	"github.com/tidegraph/tidegraph/services/graph"
	"github.com/tidegraph/tidegraph/services/graphqa"
	"github.com/tidegraph/tidegraph/services/llm"
)

// History backend names accepted by Config.HistoryBackend.
const (
	HistoryBadger   = "badger"
	HistoryWeaviate = "weaviate"
	HistoryDisabled = "disabled"
)

// Service defines the gateway lifecycle.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run blocks and
// should be called at most once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until it stops.
	Run() error

	// Router returns the configured Gin engine for testing.
	Router() *gin.Engine

	// Close releases resources without running the server. Run calls
	// it on exit; tests that only use Router must call it directly.
	Close()
}

// Config holds gateway configuration. Zero values get defaults from
// New; only WeaviateURL is required.
type Config struct {
	// Port is the HTTP server port. Default: 12310.
	Port int

	// LLMBackend selects the completion provider: "writer", "openai",
	// or "ollama". Default: "writer".
	LLMBackend string

	// Backends carries per-provider settings. Only the section for the
	// selected backend is read.
	Backends llm.BackendConfig

	// WeaviateURL is the graph store URL, e.g. "http://weaviate:8080".
	// Required.
	WeaviateURL string

	// SchemaTTL bounds how long a rendered schema is served from cache.
	// Default: 5 minutes. <= 0 disables caching.
	SchemaTTL time.Duration

	// HistoryBackend selects exchange persistence: "badger",
	// "weaviate", or "disabled". Default: "badger".
	HistoryBackend string

	// HistoryPath is the Badger database directory.
	// Default: "./data/history".
	HistoryPath string

	// PromptDir, when set, loads prompt template overrides from this
	// directory and hot-reloads them on change. Chains pick the
	// current templates up per request.
	PromptDir string

	// Telemetry configures tracing and metrics. Zero value uses
	// telemetry.DefaultConfig().
	Telemetry telemetry.Config

	// GinMode sets the Gin framework mode: "debug", "release", "test".
	// Empty keeps Gin's own default.
	GinMode string
}

// service implements Service.
type service struct {
	config            Config
	opts              extensions.ServiceOptions
	router            *gin.Engine
	llmClient         llm.LLMClient
	store             graph.Store
	histStore         history.Store
	templates         *graphqa.TemplateSource
	telemetryShutdown func(context.Context) error
}

// New builds a gateway Service from cfg.
//
// # Description
//
// Initialization order: defaults, telemetry, metrics, Weaviate client,
// graph store, history store, LLM client, router. Any failure after
// telemetry is up tears the partial service down before returning.
//
// A nil opts runs the no-op extension defaults.
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if opts != nil {
		s.opts = opts.Normalize()
	} else {
		s.opts = extensions.DefaultOptions()
	}

	shutdown, err := telemetry.Init(context.Background(), s.config.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.telemetryShutdown = shutdown

	observability.InitMetrics()

	weaviateClient, err := graph.NewWeaviateClient(s.config.WeaviateURL)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize graph store: %w", err)
	}
	s.store = graph.NewWeaviateStore(weaviateClient, s.config.SchemaTTL)

	switch s.config.HistoryBackend {
	case HistoryBadger:
		s.histStore, err = history.NewBadgerStore(history.BadgerConfig{Path: s.config.HistoryPath})
	case HistoryWeaviate:
		s.histStore, err = history.NewWeaviateStore(context.Background(), weaviateClient)
	case HistoryDisabled:
		s.histStore = history.NopStore{}
		slog.Info("History persistence disabled")
	default:
		err = fmt.Errorf("unknown history backend %q (want %s, %s, or %s)",
			s.config.HistoryBackend, HistoryBadger, HistoryWeaviate, HistoryDisabled)
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}

	s.llmClient, err = llm.NewClient(s.config.LLMBackend, s.config.Backends)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	if s.config.PromptDir != "" {
		s.templates, err = graphqa.NewTemplateSource(s.config.PromptDir)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to load prompt templates: %w", err)
		}
	}

	s.initRouter()
	return s, nil
}

// Run starts the HTTP server and blocks until it stops. Resources are
// released on return.
func (s *service) Run() error {
	defer s.Close()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting gateway server",
		"port", s.config.Port,
		"llm_backend", s.config.LLMBackend,
		"history_backend", s.config.HistoryBackend,
	)
	return s.router.Run(addr)
}

// Router returns the configured Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Close releases the history store, the LLM client, and telemetry.
// Safe to call on a partially constructed service and more than once.
func (s *service) Close() {
	if s.templates != nil {
		s.templates.Close()
		s.templates = nil
	}

	if s.histStore != nil {
		if err := s.histStore.Close(); err != nil {
			slog.Warn("History store close error", "error", err)
		}
		s.histStore = nil
	}

	if closer, ok := s.llmClient.(interface{ Close() }); ok {
		closer.Close()
	}
	s.llmClient = nil

	if s.telemetryShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.telemetryShutdown(ctx); err != nil {
			slog.Warn("Telemetry shutdown error", "error", err)
		}
		cancel()
		s.telemetryShutdown = nil
	}
}

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = llm.BackendWriter
	}
	if cfg.SchemaTTL == 0 {
		cfg.SchemaTTL = 5 * time.Minute
	}
	if cfg.HistoryBackend == "" {
		cfg.HistoryBackend = HistoryBadger
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = "./data/history"
	}
	if cfg.Telemetry == (telemetry.Config{}) {
		cfg.Telemetry = telemetry.DefaultConfig()
	}
	return cfg
}

// initRouter sets up the Gin engine with middleware and routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware(s.config.Telemetry.ServiceName))

	deps := routes.Deps{
		LLMClient:   s.llmClient,
		BackendName: s.config.LLMBackend,
		Store:       s.store,
		History:     s.histStore,
		Options:     s.opts,
	}
	// Assign only when present; a typed-nil TemplateProvider would
	// defeat the handlers' nil checks.
	if s.templates != nil {
		deps.Templates = s.templates
	}
	routes.SetupRoutes(s.router, deps)
}

var _ Service = (*service)(nil)
