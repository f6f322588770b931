// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package graphqa answers natural-language questions against a graph
// store by generating a graph query with a language model, executing
// it, and synthesizing an answer from the result.
package graphqa

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/prompts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tidegraph/tidegraph/services/graph"
	"github.com/tidegraph/tidegraph/services/llm"
)

var tracer = otel.Tracer("tidegraph.graphqa")

// TemplateProvider supplies the two prompt templates per run, so a
// reloading source can swap them between questions.
type TemplateProvider interface {
	GenerationTemplate() prompts.PromptTemplate
	SynthesisTemplate() prompts.PromptTemplate
}

// staticTemplates is the fixed-template provider used by default and
// by the per-prompt options.
type staticTemplates struct {
	generation prompts.PromptTemplate
	synthesis  prompts.PromptTemplate
}

func (s staticTemplates) GenerationTemplate() prompts.PromptTemplate { return s.generation }
func (s staticTemplates) SynthesisTemplate() prompts.PromptTemplate  { return s.synthesis }

// Chain runs the two-stage question-answering pipeline.
//
// # Description
//
// Answer fetches the store schema, asks the model for a graph query,
// executes that query exactly as generated, and asks the model to
// phrase an answer from the result. The chain performs no validation,
// no retries, and no error translation: whatever its collaborators
// return is what the caller sees.
//
// # Assumptions
//
//   - Chains are cheap to construct; build one per request when a
//     request-scoped Progress sink is needed.
type Chain struct {
	llm       llm.LLMClient
	store     graph.Store
	templates TemplateProvider
	progress  Progress
	genParams llm.GenerationParams
}

// Option configures a Chain.
type Option func(*Chain)

// WithProgress sets the sink receiving intermediate artifacts.
func WithProgress(p Progress) Option {
	return func(c *Chain) {
		if p != nil {
			c.progress = p
		}
	}
}

// WithTemplates sets the template provider for both stages.
func WithTemplates(provider TemplateProvider) Option {
	return func(c *Chain) {
		if provider != nil {
			c.templates = provider
		}
	}
}

// WithGenerationPrompt replaces the query-generation template.
func WithGenerationPrompt(t prompts.PromptTemplate) Option {
	return func(c *Chain) {
		c.templates = staticTemplates{generation: t, synthesis: c.templates.SynthesisTemplate()}
	}
}

// WithSynthesisPrompt replaces the answer-synthesis template.
func WithSynthesisPrompt(t prompts.PromptTemplate) Option {
	return func(c *Chain) {
		c.templates = staticTemplates{generation: c.templates.GenerationTemplate(), synthesis: t}
	}
}

// WithGenerationParams sets the sampling parameters for both model calls.
func WithGenerationParams(p llm.GenerationParams) Option {
	return func(c *Chain) {
		c.genParams = p
	}
}

// New builds a Chain over the given model and store. Without options
// it uses the built-in templates and discards progress notifications.
func New(llmClient llm.LLMClient, store graph.Store, opts ...Option) *Chain {
	c := &Chain{
		llm:   llmClient,
		store: store,
		templates: staticTemplates{
			generation: DefaultGenerationPrompt(),
			synthesis:  DefaultSynthesisPrompt(),
		},
		progress: NopProgress{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Answer runs the pipeline for one question and returns the final
// answer text.
//
// Errors from the model or the store are returned unchanged.
func (c *Chain) Answer(ctx context.Context, question string) (string, error) {
	ctx, span := tracer.Start(ctx, "Chain.Answer")
	defer span.End()
	span.SetAttributes(attribute.Int("question_length", len(question)))

	schema, err := c.store.Schema(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	generationPrompt, err := c.templates.GenerationTemplate().Format(map[string]any{
		"question": question,
		"schema":   schema,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to format query generation prompt: %w", err)
	}

	statement, err := c.llm.Generate(ctx, generationPrompt, c.genParams)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("statement_length", len(statement)))
	slog.Debug("Generated graph query", "length", len(statement))
	c.progress.OnGeneratedQuery(ctx, statement)

	result, err := c.store.Query(ctx, statement)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	resultContext := renderContext(result)
	span.SetAttributes(attribute.Int("context_length", len(resultContext)))
	c.progress.OnResultContext(ctx, resultContext)

	synthesisPrompt, err := c.templates.SynthesisTemplate().Format(map[string]any{
		"question": question,
		"context":  resultContext,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to format answer synthesis prompt: %w", err)
	}

	answer, err := c.llm.Generate(ctx, synthesisPrompt, c.genParams)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return answer, nil
}

// renderContext turns a query result into the text handed to both the
// progress sink and the synthesis prompt. Strings pass through
// verbatim; everything else is rendered as JSON.
func renderContext(result any) string {
	if text, ok := result.(string); ok {
		return text
	}
	if data, err := json.Marshal(result); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", result)
}
