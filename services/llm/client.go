package llm

import (
	"context"
	"strings"
)

// GenerationParams carries per-call sampling options. Nil fields are
// left to the backend's own defaults and omitted from outbound requests.
type GenerationParams struct {
	Temperature       *float32 `json:"temperature,omitempty"`
	TopK              *int     `json:"top_k,omitempty"`
	TopP              *float32 `json:"top_p,omitempty"`
	MinTokens         *int     `json:"min_tokens,omitempty"`
	MaxTokens         *int     `json:"max_tokens,omitempty"`
	PresencePenalty   *float32 `json:"presence_penalty,omitempty"`
	RepetitionPenalty *float32 `json:"repetition_penalty,omitempty"`
	BestOf            *int     `json:"best_of,omitempty"`
	Logprobs          *bool    `json:"logprobs,omitempty"`
	N                 *int     `json:"n,omitempty"`
	Stop              []string `json:"stop,omitempty"`
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// truncateAtStop cuts text immediately before the earliest occurrence of
// any stop sequence. Hosted backends do not all enforce stop sequences
// server-side, so callers apply this to the returned text. Text with no
// occurrence is returned unchanged.
func truncateAtStop(text string, stops []string) string {
	cut := -1
	for _, s := range stops {
		if s == "" {
			continue
		}
		if idx := strings.Index(text, s); idx >= 0 && (cut == -1 || idx < cut) {
			cut = idx
		}
	}
	if cut == -1 {
		return text
	}
	return text[:cut]
}
