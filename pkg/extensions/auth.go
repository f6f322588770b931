// Copyright (C) 2026 TideGraph Contributors (maintainers@tidegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned when token validation fails. Custom
// providers should wrap it so callers can test with errors.Is:
//
//	return nil, fmt.Errorf("token expired: %w", extensions.ErrUnauthorized)
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo is the identity attached to a request after successful
// validation. UserID is always populated; the rest is provider-specific.
type AuthInfo struct {
	// UserID uniquely identifies the authenticated user. Never empty.
	UserID string

	// Email may be empty if the provider does not supply one.
	Email string

	// Roles carries group memberships for downstream decisions.
	Roles []string

	// Metadata holds provider-specific claims (department, MFA state,
	// upstream session IDs) without changing this struct.
	Metadata map[string]any
}

// HasRole reports whether the user carries the given role.
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates an authentication token and resolves it to an
// identity. The token format is implementation-specific (JWT, API key,
// opaque session ID). Implementations must be safe for concurrent use.
type AuthProvider interface {
	// Validate returns the identity for a valid token, or an error
	// wrapping ErrUnauthorized when the token is rejected.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider accepts any token, including the empty string, and
// returns a local admin identity. It keeps single-user deployments
// working with no identity infrastructure.
type NopAuthProvider struct{}

// Validate ignores the token and returns the local user.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID: "local-user",
		Roles:  []string{"admin"},
	}, nil
}

var _ AuthProvider = (*NopAuthProvider)(nil)
