// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines the seams where deployments plug in their
// own infrastructure without modifying the TideGraph core.
//
// The open source build runs every seam with a no-op default: any token
// authenticates as the local user, and audit events are discarded. A
// hosted deployment injects concrete implementations through
// ServiceOptions:
//
//	opts := extensions.ServiceOptions{
//	    AuthProvider: myIdPValidator,
//	    AuditLogger:  mySIEMForwarder,
//	}
//	svc, err := gateway.New(cfg, &opts)
//
// All implementations must be safe for concurrent use; the gateway calls
// them from request goroutines.
package extensions

// ServiceOptions groups the extension points a service accepts at
// construction. Nil fields are replaced with no-op defaults by
// Normalize, so a zero value is usable.
type ServiceOptions struct {
	// AuthProvider validates bearer tokens on incoming requests.
	// Default: NopAuthProvider (any token maps to the local user).
	AuthProvider AuthProvider

	// AuditLogger receives security-relevant events, notably every
	// model-generated graph query before it is executed.
	// Default: NopAuditLogger (events discarded).
	AuditLogger AuditLogger
}

// DefaultOptions returns ServiceOptions wired with no-op defaults.
// This is the configuration the open source binaries run with.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{
		AuthProvider: &NopAuthProvider{},
		AuditLogger:  &NopAuditLogger{},
	}
}

// Normalize fills nil fields with no-op implementations and returns
// the result. The receiver is not modified.
func (opts ServiceOptions) Normalize() ServiceOptions {
	if opts.AuthProvider == nil {
		opts.AuthProvider = &NopAuthProvider{}
	}
	if opts.AuditLogger == nil {
		opts.AuditLogger = &NopAuditLogger{}
	}
	return opts
}

// WithAuth returns a copy of opts using the given AuthProvider.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// WithAudit returns a copy of opts using the given AuditLogger.
func (opts ServiceOptions) WithAudit(logger AuditLogger) ServiceOptions {
	opts.AuditLogger = logger
	return opts
}
