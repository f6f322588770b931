package llm

import (
	"fmt"
	"log/slog"
)

// Backend names accepted by NewClient.
const (
	BackendWriter = "writer"
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

// BackendConfig carries the per-provider configuration. Only the
// section matching the selected backend is read.
type BackendConfig struct {
	Writer WriterConfig
	OpenAI OpenAIConfig
	Ollama OllamaConfig
}

// NewClient builds the provider selected by backend. Unknown names are
// an error rather than a silent fallback; the caller chose explicitly.
func NewClient(backend string, cfg BackendConfig) (LLMClient, error) {
	switch backend {
	case BackendWriter:
		slog.Info("Using Writer Palmyra completion backend")
		return NewWriterClient(cfg.Writer)
	case BackendOpenAI:
		slog.Info("Using OpenAI completion backend")
		return NewOpenAIClient(cfg.OpenAI)
	case BackendOllama:
		slog.Info("Using Ollama completion backend")
		return NewOllamaClient(cfg.Ollama)
	default:
		return nil, fmt.Errorf("unknown llm backend %q (want %s, %s, or %s)",
			backend, BackendWriter, BackendOpenAI, BackendOllama)
	}
}
