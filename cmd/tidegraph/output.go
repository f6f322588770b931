// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/tidegraph/tidegraph/services/gateway/datatypes"
	"github.com/tidegraph/tidegraph/services/gateway/history"
)

// Terminal palette. Queries and contexts are intermediate artifacts so
// they render muted; answers render in the primary color.
var (
	ColorPrimary = lipgloss.Color("#2CD7C7")
	ColorMuted   = lipgloss.Color("241")
	ColorError   = lipgloss.Color("#E74C3C")

	answerStyle  = lipgloss.NewStyle().Foreground(ColorPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	labelStyle   = lipgloss.NewStyle().Foreground(ColorMuted).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(ColorError)
	sessionStyle = lipgloss.NewStyle().Foreground(ColorMuted).Italic(true)
)

// useColor reports whether stdout is a terminal. Piped output stays
// plain so it can be grepped.
func useColor() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func render(style lipgloss.Style, text string) string {
	if !useColor() {
		return text
	}
	return style.Render(text)
}

// printAnswer writes a QA response to stdout: the answer, and when the
// gateway returned them, the generated query and result context.
func printAnswer(resp *datatypes.QAResponse) {
	if resp.GeneratedQuery != "" {
		fmt.Println(render(labelStyle, "Generated query:"))
		fmt.Println(render(mutedStyle, resp.GeneratedQuery))
		fmt.Println()
	}
	if resp.ResultContext != "" {
		fmt.Println(render(labelStyle, "Result context:"))
		fmt.Println(render(mutedStyle, resp.ResultContext))
		fmt.Println()
	}
	fmt.Println(render(answerStyle, resp.Answer))
}

// printExchange writes one stored history exchange.
func printExchange(ex history.Exchange) {
	ts := time.Time(ex.CreatedAt).Local().Format("2006-01-02 15:04:05")
	fmt.Printf("%s\n", render(sessionStyle, ts))
	fmt.Printf("%s %s\n", render(labelStyle, "Q:"), ex.Question)
	if ex.GeneratedQuery != "" {
		fmt.Printf("%s %s\n", render(labelStyle, "query:"), render(mutedStyle, ex.GeneratedQuery))
	}
	fmt.Printf("%s %s\n", render(labelStyle, "A:"), render(answerStyle, ex.Answer))
	fmt.Println(render(mutedStyle, strings.Repeat("-", 40)))
}

// printError writes an error to stderr.
func printError(err error) {
	fmt.Fprintln(os.Stderr, render(errorStyle, fmt.Sprintf("Error: %v", err)))
}
