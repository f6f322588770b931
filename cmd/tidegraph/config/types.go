// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

// Config holds the CLI's persisted settings, read from
// ~/.tidegraph/config.yaml.
type Config struct {
	// GatewayURL is the base URL of the TideGraph gateway.
	GatewayURL string `yaml:"gateway_url"`

	// Token is sent as the Authorization header on every request.
	// Leave empty when the gateway runs without auth.
	Token string `yaml:"token"`

	// ShowQuery prints the generated graph query alongside answers.
	ShowQuery bool `yaml:"show_query"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout_seconds"`
}

// Default returns the settings written on first run.
func Default() *Config {
	return &Config{
		GatewayURL: "http://localhost:12310",
		Timeout:    120,
	}
}
