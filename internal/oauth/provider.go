// Package oauth defines the contract for the third-party sign-in provider
// (Google in the shipped app). The provider runs its own interactive flow
// and hands back tokens; the identity backend does the actual exchange.
package oauth

import (
	"context"
	"errors"
)

var (
	// ErrCancelled means the user aborted the provider flow.
	ErrCancelled = errors.New("sign-in cancelled")

	// ErrNoIDToken means the flow finished but produced no usable ID token.
	ErrNoIDToken = errors.New("no ID token from provider")
)

// Profile is the minimal profile data a provider reports alongside tokens.
type Profile struct {
	Email string
	Name  string
}

// Credential is the outcome of a completed provider sign-in flow.
type Credential struct {
	IDToken     string
	AccessToken string // optional
	Profile     Profile
}

// Provider is an interactive OAuth sign-in client.
type Provider interface {
	// SignIn runs the interactive flow and returns the resulting tokens.
	// Returns ErrCancelled or ErrNoIDToken as appropriate.
	SignIn(ctx context.Context) (Credential, error)

	// SignOut drops any provider-side session. Best effort.
	SignOut(ctx context.Context)

	// HandleRedirectURL completes a flow resumed via redirect/deep link.
	// Reports whether the URL belonged to this provider.
	HandleRedirectURL(url string) bool
}
