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
	"time"

	"github.com/spf13/cobra"

	"github.com/tidegraph/tidegraph/cmd/tidegraph/config"
)

// --- Global Command Variables ---
var (
	gatewayURL string // CLI override for gateway_url
	authToken  string // CLI override for token

	sessionID string
	showQuery bool

	temperature float64
	maxTokens   int
	stopSeqs    []string
	review      bool

	rootCmd = &cobra.Command{
		Use:   "tidegraph",
		Short: "A cli for the TideGraph graph question-answering gateway",
		Long: `Tidegraph talks to a running TideGraph gateway: ask natural-language
questions against the graph, run raw completions against the configured
backend, inspect the graph schema, and review session history.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := config.Load(); err != nil {
				fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
				os.Exit(1)
			}
		},
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question against the graph; no argument starts an interactive session",
		Run:   runAskCommand, // Defined in cmd_ask.go
	}

	completeCmd = &cobra.Command{
		Use:   "complete [prompt]",
		Short: "Send a raw completion to the configured backend, bypassing the pipeline",
		Args:  cobra.ExactArgs(1),
		Run:   runCompleteCommand, // Defined in cmd_complete.go
	}

	schemaCmd = &cobra.Command{
		Use:   "schema",
		Short: "Print the graph schema as the pipeline sees it",
		Run:   runSchemaCommand, // Defined in cmd_schema.go
	}

	historyCmd = &cobra.Command{
		Use:   "history [session_id]",
		Short: "Print the stored exchanges for a session, oldest first",
		Args:  cobra.ExactArgs(1),
		Run:   runHistoryCommand, // Defined in cmd_history.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway", "",
		"Gateway base URL (overrides the config file)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "",
		"Authorization token (overrides the config file)")

	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&sessionID, "session", "",
		"Session ID to continue an existing conversation")
	askCmd.Flags().BoolVar(&showQuery, "show-query", false,
		"Print the generated graph query and the raw result context")

	rootCmd.AddCommand(completeCmd)
	completeCmd.Flags().Float64Var(&temperature, "temperature", -1,
		"Sampling temperature (backend default when unset)")
	completeCmd.Flags().IntVar(&maxTokens, "max-tokens", 0,
		"Maximum tokens to generate (backend default when unset)")
	completeCmd.Flags().StringSliceVar(&stopSeqs, "stop", nil,
		"Stop sequences; output is cut at the earliest occurrence")
	completeCmd.Flags().BoolVar(&review, "review", false,
		"Show the prompt and confirm before sending")

	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(historyCmd)
}

// newClient builds a gateway client from the loaded config, letting
// command-line flags win over the file.
func newClient() *GatewayClient {
	baseURL := config.Global.GatewayURL
	if gatewayURL != "" {
		baseURL = gatewayURL
	}
	token := config.Global.Token
	if authToken != "" {
		token = authToken
	}
	timeout := time.Duration(config.Global.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return NewGatewayClient(baseURL, token, timeout)
}
