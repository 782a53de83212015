// Package mock provides test doubles for the interfaces in this module.
package mock

import (
	"context"

	"mcp-cognito/internal/cognito"
)

// Interface compliance check.
var _ cognito.Directory = (*Directory)(nil)

// Directory is a test double for cognito.Directory.
// Set the Fn field of each method a test expects to be called; calling a
// method whose Fn is nil panics.
type Directory struct {
	ListUserPoolsFn         func(ctx context.Context, p cognito.ListUserPoolsParams) (*cognito.UserPoolPage, error)
	ListIdentityProvidersFn func(ctx context.Context, p cognito.ListIdentityProvidersParams) (*cognito.IdentityProviderPage, error)
	ListUsersFn             func(ctx context.Context, p cognito.ListUsersParams) (*cognito.UserPage, error)
	AdminGetUserFn          func(ctx context.Context, userPoolID, username string) (*cognito.User, error)

	// Calls counts invocations of any method.
	Calls int
}

// ListUserPools delegates to ListUserPoolsFn.
func (d *Directory) ListUserPools(ctx context.Context, p cognito.ListUserPoolsParams) (*cognito.UserPoolPage, error) {
	d.Calls++
	return d.ListUserPoolsFn(ctx, p)
}

// ListIdentityProviders delegates to ListIdentityProvidersFn.
func (d *Directory) ListIdentityProviders(ctx context.Context, p cognito.ListIdentityProvidersParams) (*cognito.IdentityProviderPage, error) {
	d.Calls++
	return d.ListIdentityProvidersFn(ctx, p)
}

// ListUsers delegates to ListUsersFn.
func (d *Directory) ListUsers(ctx context.Context, p cognito.ListUsersParams) (*cognito.UserPage, error) {
	d.Calls++
	return d.ListUsersFn(ctx, p)
}

// AdminGetUser delegates to AdminGetUserFn.
func (d *Directory) AdminGetUser(ctx context.Context, userPoolID, username string) (*cognito.User, error) {
	d.Calls++
	return d.AdminGetUserFn(ctx, userPoolID, username)
}
