package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("tidegraph.llm")

// Environment entries consulted by WriterConfigFromEnv. The credential
// names follow the hosted service's own conventions.
const (
	EnvWriterAPIKey  = "WRITER_API_KEY"
	EnvWriterOrgID   = "WRITER_ORG_ID"
	EnvWriterModelID = "WRITER_MODEL_ID"
	EnvWriterBaseURL = "WRITER_BASE_URL"
)

const (
	writerEndpointTemplate = "https://enterprise-api.writer.com/llm/organization/%s/model/%s/completions"
	defaultWriterModelID   = "palmyra-instruct"
	defaultWriterTimeout   = 60 * time.Second
)

// Configuration errors surfaced by NewWriterClient before any network
// activity.
var (
	ErrWriterAPIKeyMissing = fmt.Errorf("writer: API key missing (set %s or pass WriterConfig.APIKey)", EnvWriterAPIKey)
	ErrWriterOrgIDMissing  = fmt.Errorf("writer: organization id missing (set %s or pass WriterConfig.OrgID)", EnvWriterOrgID)
)

// WriterConfig configures a WriterClient. APIKey and OrgID are required;
// everything else is optional. The sampling fields are adapter-level
// defaults for every completion: nil fields are omitted from outbound
// requests entirely, leaving defaulting to the remote service.
type WriterConfig struct {
	// APIKey authenticates against the hosted API. Sent raw in the
	// Authorization header (the service uses no Bearer prefix).
	APIKey string

	// OrgID is the Writer organization the model belongs to.
	OrgID string

	// ModelID selects the hosted model. Default: "palmyra-instruct".
	ModelID string

	// BaseURL, when set, is used verbatim as the completions endpoint
	// and the org/model URL template is skipped.
	BaseURL string

	// Timeout bounds each HTTP call. Default: 60s. Ignored when
	// HTTPClient is set.
	Timeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// Default completion parameters, keyed per the wire protocol:
	// minTokens, maxTokens, temperature, topP, stop, presencePenalty,
	// repetitionPenalty, bestOf, logprobs, n.
	MinTokens         *int
	MaxTokens         *int
	Temperature       *float32
	TopP              *float32
	Stop              []string
	PresencePenalty   *float32
	RepetitionPenalty *float32
	BestOf            *int
	Logprobs          *bool
	N                 *int
}

// WriterConfigFromEnv builds a WriterConfig from the process
// environment. The API key additionally falls back to the conventional
// container secret path. Call this at the composition root and pass the
// result to NewWriterClient; the client itself never reads the
// environment.
func WriterConfigFromEnv() WriterConfig {
	apiKey := os.Getenv(EnvWriterAPIKey)
	if apiKey == "" {
		if content, err := os.ReadFile("/run/secrets/writer_api_key"); err == nil {
			apiKey = strings.TrimSpace(string(content))
			slog.Info("Read Writer API key from container secrets")
		}
	}

	return WriterConfig{
		APIKey:  apiKey,
		OrgID:   os.Getenv(EnvWriterOrgID),
		ModelID: os.Getenv(EnvWriterModelID),
		BaseURL: os.Getenv(EnvWriterBaseURL),
	}
}

// WriterClient calls the Writer Palmyra completions API. It implements
// LLMClient via Generate and exposes the lower-level Complete for
// callers that need raw parameter control.
//
// The completions endpoint behaves unusually for a JSON API: the
// response body is the completion text with no guaranteed JSON envelope
// and no meaningful status discipline, and the service does not
// reliably enforce the stop parameter. Complete therefore consumes the
// body as text and enforces stop sequences client-side.
type WriterClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     *secretValue
	modelID    string
	defaults   map[string]any
}

// NewWriterClient validates cfg and returns a ready client. A missing
// API key or organization id fails here, before any network call. The
// API key is sealed into locked memory for the client's lifetime; call
// Close when discarding the client.
func NewWriterClient(cfg WriterConfig) (*WriterClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrWriterAPIKeyMissing
	}
	if cfg.OrgID == "" {
		return nil, ErrWriterOrgIDMissing
	}

	modelID := cfg.ModelID
	if modelID == "" {
		modelID = defaultWriterModelID
		slog.Debug("WriterConfig.ModelID not set, defaulting", "model", modelID)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultWriterTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	endpoint := resolveWriterEndpoint(cfg.BaseURL, cfg.OrgID, modelID)
	slog.Info("Initializing Writer client", "model", modelID, "endpoint_override", cfg.BaseURL != "")

	return &WriterClient{
		httpClient: httpClient,
		endpoint:   endpoint,
		apiKey:     newSecretValue(cfg.APIKey),
		modelID:    modelID,
		defaults:   cfg.defaultParams(),
	}, nil
}

// Close wipes the sealed API key. The client must not be used after.
func (w *WriterClient) Close() {
	w.apiKey.destroy()
}

// resolveWriterEndpoint returns baseURL verbatim when set, otherwise
// the org/model completions URL.
func resolveWriterEndpoint(baseURL, orgID, modelID string) string {
	if baseURL != "" {
		return baseURL
	}
	return fmt.Sprintf(writerEndpointTemplate, orgID, modelID)
}

// defaultParams maps the set sampling fields to their wire keys.
// Unset fields produce no key.
func (cfg WriterConfig) defaultParams() map[string]any {
	params := make(map[string]any)
	if cfg.MinTokens != nil {
		params["minTokens"] = *cfg.MinTokens
	}
	if cfg.MaxTokens != nil {
		params["maxTokens"] = *cfg.MaxTokens
	}
	if cfg.Temperature != nil {
		params["temperature"] = *cfg.Temperature
	}
	if cfg.TopP != nil {
		params["topP"] = *cfg.TopP
	}
	if len(cfg.Stop) > 0 {
		params["stop"] = cfg.Stop
	}
	if cfg.PresencePenalty != nil {
		params["presencePenalty"] = *cfg.PresencePenalty
	}
	if cfg.RepetitionPenalty != nil {
		params["repetitionPenalty"] = *cfg.RepetitionPenalty
	}
	if cfg.BestOf != nil {
		params["bestOf"] = *cfg.BestOf
	}
	if cfg.Logprobs != nil {
		params["logprobs"] = *cfg.Logprobs
	}
	if cfg.N != nil {
		params["n"] = *cfg.N
	}
	return params
}

// mergeParams combines adapter defaults with call-site overrides.
// Overrides win key-by-key. Neither input is modified.
func mergeParams(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// Complete issues one completion call. The request body is the merged
// parameter set plus the prompt; the response body text is the result.
// stop drives the client-side truncation only — a stop parameter for
// the service itself belongs in the adapter defaults or in overrides.
//
// Transport errors from the HTTP client are returned unchanged. The
// HTTP status is not inspected.
func (w *WriterClient) Complete(ctx context.Context, prompt string, stop []string, overrides map[string]any) (string, error) {
	ctx, span := tracer.Start(ctx, "WriterClient.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", w.modelID))

	params := mergeParams(w.defaults, overrides)
	payload := make(map[string]any, len(params)+1)
	for k, v := range params {
		payload[k] = v
	}
	payload["prompt"] = prompt

	reqBodyBytes, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to marshal request to Writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewBuffer(reqBodyBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to create request to Writer: %w", err)
	}
	// Raw key, no Bearer prefix.
	req.Header.Set("Authorization", w.apiKey.reveal())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	slog.Debug("Sending completion request to Writer", "model", w.modelID)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	defer resp.Body.Close()

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	slog.Debug("Received Writer response", "status", resp.StatusCode, "body_length", len(respBodyBytes))

	text := string(respBodyBytes)
	if len(stop) > 0 {
		text = truncateAtStop(text, stop)
	}
	return text, nil
}

// Generate implements the LLMClient interface. Set params become
// call-site overrides; TopK has no Writer equivalent and is ignored.
func (w *WriterClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	overrides := make(map[string]any)
	if params.MinTokens != nil {
		overrides["minTokens"] = *params.MinTokens
	}
	if params.MaxTokens != nil {
		overrides["maxTokens"] = *params.MaxTokens
	}
	if params.Temperature != nil {
		overrides["temperature"] = *params.Temperature
	}
	if params.TopP != nil {
		overrides["topP"] = *params.TopP
	}
	if params.PresencePenalty != nil {
		overrides["presencePenalty"] = *params.PresencePenalty
	}
	if params.RepetitionPenalty != nil {
		overrides["repetitionPenalty"] = *params.RepetitionPenalty
	}
	if params.BestOf != nil {
		overrides["bestOf"] = *params.BestOf
	}
	if params.Logprobs != nil {
		overrides["logprobs"] = *params.Logprobs
	}
	if params.N != nil {
		overrides["n"] = *params.N
	}
	return w.Complete(ctx, prompt, params.Stop, overrides)
}

var _ LLMClient = (*WriterClient)(nil)
