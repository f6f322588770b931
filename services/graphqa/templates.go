// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphqa

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tmc/langchaingo/prompts"
)

// Template file names looked up inside the template directory. A
// missing file means the built-in template for that stage.
const (
	GenerationTemplateFile = "generation.tmpl"
	SynthesisTemplateFile  = "synthesis.tmpl"
)

const templateReloadDebounce = 100 * time.Millisecond

// TemplateSource serves the prompt templates for the chain, overlaying
// built-in defaults with files from a directory and reloading them when
// the files change.
//
// # Description
//
// Edits to generation.tmpl or synthesis.tmpl take effect on the next
// Answer call without a restart. A template that fails to render is
// rejected and the previous one stays active. Deleting a file reverts
// that stage to the built-in template.
//
// # Thread Safety
//
// Safe for concurrent use.
type TemplateSource struct {
	dir     string
	watcher *fsnotify.Watcher

	done     chan struct{}
	stopOnce sync.Once

	mu         sync.RWMutex
	generation prompts.PromptTemplate
	synthesis  prompts.PromptTemplate
}

var _ TemplateProvider = (*TemplateSource)(nil)

// NewTemplateSource loads templates from dir and starts watching it.
// An empty dir yields a static source serving the built-in templates.
func NewTemplateSource(dir string) (*TemplateSource, error) {
	s := &TemplateSource{
		dir:        dir,
		done:       make(chan struct{}),
		generation: DefaultGenerationPrompt(),
		synthesis:  DefaultSynthesisPrompt(),
	}
	if dir == "" {
		return s, nil
	}

	s.reload()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create template watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch template directory %s: %w", dir, err)
	}
	s.watcher = watcher
	go s.watchLoop()

	slog.Info("Prompt template source initialized", "dir", dir)
	return s, nil
}

// Close stops the directory watcher. The source keeps serving the last
// loaded templates.
func (s *TemplateSource) Close() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.watcher != nil {
			s.watcher.Close()
		}
	})
}

// GenerationTemplate implements TemplateProvider.
func (s *TemplateSource) GenerationTemplate() prompts.PromptTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// SynthesisTemplate implements TemplateProvider.
func (s *TemplateSource) SynthesisTemplate() prompts.PromptTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.synthesis
}

// watchLoop debounces change events and reloads once the directory has
// been quiet for the debounce window.
func (s *TemplateSource) watchLoop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if name != GenerationTemplateFile && name != SynthesisTemplateFile {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(templateReloadDebounce)
				timerC = timer.C
			} else {
				timer.Reset(templateReloadDebounce)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Template watcher error", "error", err)
		case <-timerC:
			timer = nil
			timerC = nil
			s.reload()
		}
	}
}

// reload re-reads both template files and swaps in every template that
// loads and renders cleanly.
func (s *TemplateSource) reload() {
	s.mu.RLock()
	generation, synthesis := s.generation, s.synthesis
	s.mu.RUnlock()

	if loaded, ok := s.loadTemplate(GenerationTemplateFile, GenerationPromptFromText, DefaultGenerationPrompt,
		map[string]any{"question": "q", "schema": "s"}); ok {
		generation = loaded
	}
	if loaded, ok := s.loadTemplate(SynthesisTemplateFile, SynthesisPromptFromText, DefaultSynthesisPrompt,
		map[string]any{"question": "q", "context": "c"}); ok {
		synthesis = loaded
	}

	s.mu.Lock()
	s.generation = generation
	s.synthesis = synthesis
	s.mu.Unlock()
	slog.Debug("Prompt templates reloaded", "dir", s.dir)
}

// loadTemplate reads one template file. A missing file yields the
// built-in default; an unreadable or non-rendering template yields
// ok=false so the caller keeps the active one.
func (s *TemplateSource) loadTemplate(
	name string,
	fromText func(string) prompts.PromptTemplate,
	builtin func() prompts.PromptTemplate,
	sampleValues map[string]any,
) (prompts.PromptTemplate, bool) {
	path := filepath.Join(s.dir, name)
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return builtin(), true
	}
	if err != nil {
		slog.Warn("Failed to read prompt template, keeping active one", "path", path, "error", err)
		return prompts.PromptTemplate{}, false
	}

	template := fromText(string(content))
	if _, err := template.Format(sampleValues); err != nil {
		slog.Warn("Prompt template does not render, keeping active one", "path", path, "error", err)
		return prompts.PromptTemplate{}, false
	}
	return template, true
}
