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

	"github.com/spf13/cobra"
)

// runHistoryCommand handles `tidegraph history <session_id>`.
func runHistoryCommand(cmd *cobra.Command, args []string) {
	client := newClient()
	resp, err := client.History(context.Background(), args[0])
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if len(resp.Exchanges) == 0 {
		fmt.Fprintf(os.Stderr, "No exchanges stored for session %s\n", resp.SessionID)
		return
	}

	for _, ex := range resp.Exchanges {
		printExchange(ex)
	}
}
