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

// runSchemaCommand handles `tidegraph schema`: prints the rendered
// graph schema exactly as the pipeline hands it to the model.
func runSchemaCommand(cmd *cobra.Command, args []string) {
	client := newClient()
	resp, err := client.Schema(context.Background())
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	fmt.Println(resp.Schema)
}
