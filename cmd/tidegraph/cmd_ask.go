// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tidegraph/tidegraph/cmd/tidegraph/config"
	"github.com/tidegraph/tidegraph/services/gateway/datatypes"
)

// runAskCommand handles `tidegraph ask`.
//
// With an argument, asks a single question and exits non-zero on
// pipeline failure. Without one, starts an interactive loop: each
// answer's session ID is carried into the next question so the
// conversation lands in one history session.
func runAskCommand(cmd *cobra.Command, args []string) {
	client := newClient()

	if len(args) > 0 {
		question := strings.Join(args, " ")
		if err := askOnce(client, question, &sessionID); err != nil {
			printError(err)
			os.Exit(1)
		}
		return
	}

	runAskLoop(client, NewInteractiveInputReader(50))
}

// runAskLoop drives the interactive session until EOF or "exit".
func runAskLoop(client *GatewayClient, reader InputReader) {
	fmt.Fprintln(os.Stderr, "Interactive session. Ctrl+D or \"exit\" to quit.")
	session := sessionID

	for {
		fmt.Fprint(os.Stderr, "\n")
		question, err := reader.ReadLine()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			printError(err)
			return
		}
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			return
		}

		// errors are printed but do not end the session
		if err := askOnce(client, question, &session); err != nil {
			printError(err)
		}
	}
}

// askOnce sends one question and prints the answer. session is both
// input and output: empty lets the gateway assign one, and the
// assigned ID is written back for the next call.
func askOnce(client *GatewayClient, question string, session *string) error {
	resp, err := client.Ask(context.Background(), datatypes.QARequest{
		Question:  question,
		SessionID: *session,
		ShowQuery: showQuery || config.Global.ShowQuery,
	})
	if err != nil {
		return err
	}

	if *session == "" {
		fmt.Fprintln(os.Stderr, render(sessionStyle, "session: "+resp.SessionID))
	}
	*session = resp.SessionID

	printAnswer(resp)
	return nil
}
