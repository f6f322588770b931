// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tidegraph/tidegraph/services/gateway/datatypes"
)

// runCompleteCommand handles `tidegraph complete`.
//
// Sends the prompt straight to the gateway's completion backend.
// Sampling flags that were not set are omitted from the request so
// the backend's own defaults apply. With --review the prompt is shown
// for confirmation before anything is sent.
func runCompleteCommand(cmd *cobra.Command, args []string) {
	prompt := args[0]

	req := datatypes.CompletionRequest{
		Prompt: prompt,
		Stop:   stopSeqs,
	}
	if cmd.Flags().Changed("temperature") {
		temp := float32(temperature)
		req.Temperature = &temp
	}
	if cmd.Flags().Changed("max-tokens") {
		req.MaxTokens = &maxTokens
	}

	if review {
		fmt.Println(render(labelStyle, "Prompt:"))
		fmt.Println(prompt)
		var confirmed bool
		err := huh.NewConfirm().
			Title("Send this prompt to the backend?").
			Affirmative("Send").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		if !confirmed {
			fmt.Fprintln(os.Stderr, "Cancelled.")
			return
		}
	}

	client := newClient()
	resp, err := client.Complete(context.Background(), req)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	fmt.Println(resp.Completion)
}
