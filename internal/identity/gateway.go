// Package identity is the adapter between the session coordinator and the
// external identity backend. It translates coordinator intents into backend
// calls and normalizes every outcome into a small typed result set; no raw
// backend error ever crosses this boundary.
package identity

import (
	"context"
	"time"
)

// Session represents the authenticated identity as reported by the backend.
type Session struct {
	UserID        string
	Email         string
	DisplayName   string
	EmailVerified bool
	ExpiresAt     time.Time
}

// SignInOutcome classifies the result of a sign-in attempt.
type SignInOutcome int

const (
	SignInFailed SignInOutcome = iota
	SignInAuthenticated
	SignInNeedsVerification
)

// FailureKind classifies a failed operation so callers can distinguish
// retryable outages from rejected credentials.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureTransient covers network errors and backend outages.
	FailureTransient
	// FailureInvalidCredentials is a backend-reported auth rejection.
	FailureInvalidCredentials
	// FailureBackend is any other backend rejection (validation etc.).
	FailureBackend
)

// SignInResult is the normalized outcome of SignIn and SignInWithIDToken.
type SignInResult struct {
	Outcome SignInOutcome
	Session *Session // set when Outcome == SignInAuthenticated
	Email   string   // set when Outcome == SignInNeedsVerification
	Kind    FailureKind
	Reason  string // human-readable, set when Outcome == SignInFailed
}

// SignUpResult is the normalized outcome of SignUp.
type SignUpResult struct {
	Created              bool
	RequiresVerification bool
	Session              *Session // set when the account was auto-confirmed
	Kind                 FailureKind
	Reason               string // human-readable, set when Created is false
}

// Gateway is the contract the session coordinator uses to talk to the
// identity backend. Implementations must never return raw backend errors
// through the result types.
type Gateway interface {
	// CheckSession reports the currently valid session, or nil when there
	// is none. Backend failures are treated as "no session".
	CheckSession(ctx context.Context) *Session

	// SignUp creates an account. FullName may be empty.
	SignUp(ctx context.Context, email, password, fullName string) SignUpResult

	// SignIn authenticates with email and password.
	SignIn(ctx context.Context, email, password string) SignInResult

	// SignInWithIDToken exchanges an OAuth provider ID token for a backend
	// session. Accounts arriving this way are treated as pre-verified.
	SignInWithIDToken(ctx context.Context, idToken, accessToken string) SignInResult

	// SignOut ends the backend session. Local state is always cleared even
	// when the backend call fails; the returned error is for logging only.
	SignOut(ctx context.Context) error

	// ResetPassword requests a password-reset email. Reports whether the
	// request was accepted.
	ResetPassword(ctx context.Context, email string) bool

	// ResendVerification asks the backend to send the verification email
	// again. Reports whether the request was accepted.
	ResendVerification(ctx context.Context, email string) bool

	// CheckEmailVerification reports whether the backend now considers the
	// given email verified.
	CheckEmailVerification(ctx context.Context, email string) bool
}
