// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the gateway.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the
// question-answering pipeline. Metrics include:
//   - Request counters (by endpoint, status, error type)
//   - Per-stage latency histograms (query generation, execution, synthesis)
//   - End-to-end answer latency
//   - Completion character volume (prompt/completion by model)
//   - Active stream gauges
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "tidegraph"

// Subsystem for gateway metrics
const gatewaySubsystem = "gateway"

// GatewayMetrics holds all Prometheus metrics for gateway operations.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring pipeline
// latency and error rates. Initialize once at startup via InitMetrics().
//
// # Fields
//
//   - RequestsTotal: Counter of requests by endpoint and status
//   - ErrorsTotal: Counter of errors by endpoint and error type
//   - AnswerDurationSeconds: Histogram of end-to-end answer latency
//   - StageDurationSeconds: Histogram of per-stage pipeline latency
//   - CompletionCharactersTotal: Counter of completion text volume
//   - ActiveStreams: Gauge of currently open streaming sessions
//
// # Thread Safety
//
// All operations are thread-safe.
type GatewayMetrics struct {
	// RequestsTotal counts gateway requests by endpoint and status.
	// Labels: endpoint (qa, qa_stream, completions, schema, history),
	// status (success, error)
	RequestsTotal *prometheus.CounterVec

	// ErrorsTotal counts errors by type and endpoint.
	// Labels: endpoint, error_code (validation, llm_error, store_error, etc.)
	ErrorsTotal *prometheus.CounterVec

	// AnswerDurationSeconds measures end-to-end question answering latency.
	// Labels: status (success, error)
	AnswerDurationSeconds *prometheus.HistogramVec

	// StageDurationSeconds measures pipeline stage latency.
	// Labels: stage (generate_query, execute_query, synthesize_answer)
	StageDurationSeconds *prometheus.HistogramVec

	// CompletionCharactersTotal counts completion text volume by direction
	// and model. Character counts stand in for tokens since the completion
	// endpoint returns raw text without usage metadata.
	// Labels: direction (prompt, completion), model
	CompletionCharactersTotal *prometheus.CounterVec

	// ActiveStreams tracks currently open streaming sessions.
	// Labels: endpoint
	ActiveStreams *prometheus.GaugeVec
}

// DefaultMetrics is the singleton instance of GatewayMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *GatewayMetrics

var initOnce sync.Once

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics on first call. Subsequent
// calls return the already-initialized instance, so multiple gateway
// services in one process share a registry without duplicate
// registration panics.
//
// # Outputs
//
//   - *GatewayMetrics: The initialized metrics instance.
//
// # Examples
//
//	func main() {
//	    observability.InitMetrics()
//	    // ... start server ...
//	}
//
// # Assumptions
//
//   - Prometheus default registry is available.
func InitMetrics() *GatewayMetrics {
	initOnce.Do(func() {
		DefaultMetrics = &GatewayMetrics{
			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: gatewaySubsystem,
					Name:      "requests_total",
					Help:      "Total number of gateway requests by endpoint and status",
				},
				[]string{"endpoint", "status"},
			),

			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: gatewaySubsystem,
					Name:      "errors_total",
					Help:      "Total gateway errors by type and endpoint",
				},
				[]string{"endpoint", "error_code"},
			),

			AnswerDurationSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: metricsNamespace,
					Subsystem: gatewaySubsystem,
					Name:      "answer_duration_seconds",
					Help:      "End-to-end question answering duration in seconds",
					Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
				},
				[]string{"status"},
			),

			StageDurationSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: metricsNamespace,
					Subsystem: gatewaySubsystem,
					Name:      "stage_duration_seconds",
					Help:      "Pipeline stage duration in seconds",
					Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
				},
				[]string{"stage"},
			),

			CompletionCharactersTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Subsystem: gatewaySubsystem,
					Name:      "completion_characters_total",
					Help:      "Total completion text volume by direction and model",
				},
				[]string{"direction", "model"},
			),

			ActiveStreams: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: metricsNamespace,
					Subsystem: gatewaySubsystem,
					Name:      "active_streams",
					Help:      "Number of currently open streaming sessions",
				},
				[]string{"endpoint"},
			),
		}
	})

	return DefaultMetrics
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeLLMError indicates a completion backend failure.
	ErrorCodeLLMError ErrorCode = "llm_error"

	// ErrorCodeStoreError indicates a graph store failure.
	ErrorCodeStoreError ErrorCode = "store_error"

	// ErrorCodeHistoryError indicates a history persistence failure.
	ErrorCodeHistoryError ErrorCode = "history_error"

	// ErrorCodeUnauthorized indicates an authentication failure.
	ErrorCodeUnauthorized ErrorCode = "unauthorized"

	// ErrorCodeInternal indicates internal server error.
	ErrorCodeInternal ErrorCode = "internal"

	// ErrorCodeClientDisconnect indicates client disconnected.
	ErrorCodeClientDisconnect ErrorCode = "client_disconnect"
)

// =============================================================================
// Endpoint Names
// =============================================================================

// Endpoint represents a gateway endpoint for metrics labeling.
type Endpoint string

const (
	// EndpointQA is the synchronous question answering endpoint.
	EndpointQA Endpoint = "qa"

	// EndpointQAStream is the websocket question answering endpoint.
	EndpointQAStream Endpoint = "qa_stream"

	// EndpointCompletions is the raw completion endpoint.
	EndpointCompletions Endpoint = "completions"

	// EndpointSchema is the graph schema endpoint.
	EndpointSchema Endpoint = "schema"

	// EndpointHistory is the session history endpoint.
	EndpointHistory Endpoint = "history"
)

// =============================================================================
// Pipeline Stages
// =============================================================================

// Stage represents a pipeline stage for latency labeling.
type Stage string

const (
	// StageGenerateQuery covers schema fetch plus query generation.
	StageGenerateQuery Stage = "generate_query"

	// StageExecuteQuery covers graph query execution.
	StageExecuteQuery Stage = "execute_query"

	// StageSynthesizeAnswer covers answer synthesis from the result.
	StageSynthesizeAnswer Stage = "synthesize_answer"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed gateway request.
//
// # Inputs
//
//   - endpoint: The endpoint that handled the request.
//   - success: Whether the request completed successfully.
func (m *GatewayMetrics) RecordRequest(endpoint Endpoint, success bool) {
	m.RequestsTotal.WithLabelValues(string(endpoint), statusLabel(success)).Inc()
}

// RecordError records a gateway error.
//
// # Inputs
//
//   - endpoint: The endpoint where the error occurred.
//   - code: The error type code.
func (m *GatewayMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// RecordAnswerDuration records end-to-end question answering latency.
//
// # Inputs
//
//   - seconds: Total duration in seconds.
//   - success: Whether the pipeline completed successfully.
func (m *GatewayMetrics) RecordAnswerDuration(seconds float64, success bool) {
	m.AnswerDurationSeconds.WithLabelValues(statusLabel(success)).Observe(seconds)
}

// RecordStageDuration records one pipeline stage's latency.
//
// # Inputs
//
//   - stage: The pipeline stage.
//   - seconds: Stage duration in seconds.
func (m *GatewayMetrics) RecordStageDuration(stage Stage, seconds float64) {
	m.StageDurationSeconds.WithLabelValues(string(stage)).Observe(seconds)
}

// RecordCompletionCharacters records completion text volume.
//
// # Inputs
//
//   - promptChars: Length of the prompt sent to the model.
//   - completionChars: Length of the completion returned.
//   - model: The model used.
func (m *GatewayMetrics) RecordCompletionCharacters(promptChars, completionChars int, model string) {
	m.CompletionCharactersTotal.WithLabelValues("prompt", model).Add(float64(promptChars))
	m.CompletionCharactersTotal.WithLabelValues("completion", model).Add(float64(completionChars))
}

// StreamStarted increments the active streams gauge.
//
// # Inputs
//
//   - endpoint: The endpoint handling the stream.
func (m *GatewayMetrics) StreamStarted(endpoint Endpoint) {
	m.ActiveStreams.WithLabelValues(string(endpoint)).Inc()
}

// StreamEnded decrements the active streams gauge.
//
// # Inputs
//
//   - endpoint: The endpoint that handled the stream.
func (m *GatewayMetrics) StreamEnded(endpoint Endpoint) {
	m.ActiveStreams.WithLabelValues(string(endpoint)).Dec()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
