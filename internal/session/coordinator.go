// Package session contains the authentication/session coordinator: the
// route state machine that turns identity-backend results into a single
// authoritative application state.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/possamhq/possam/internal/identity"
	"github.com/possamhq/possam/internal/logging"
	"github.com/possamhq/possam/internal/oauth"
	"github.com/possamhq/possam/internal/toolstate"
)

// ToolsState is the slice of the tools store the coordinator needs.
type ToolsState interface {
	Connected(ctx context.Context) bool
	Reset(ctx context.Context) error
	Subscribe(sink toolstate.Sink)
}

// Coordinator orchestrates sign-up, sign-in, verification, and sign-out
// into route transitions on its Store.
//
// Operations are synchronous; the UI shell runs them on its own goroutines
// and is expected to use IsLoading to gate duplicate submissions. The
// coordinator does not serialize overlapping operations internally: results
// apply in completion order and the last write wins. State.Applied makes
// that ordering observable.
type Coordinator struct {
	store    *Store
	gateway  identity.Gateway
	provider oauth.Provider
	tools    ToolsState
	log      logging.Logger

	launchDelay    time.Duration
	resendCooldown time.Duration
	now            func() time.Time
}

func NewCoordinator(gateway identity.Gateway, provider oauth.Provider, tools ToolsState,
	log logging.Logger, launchDelay, resendCooldown time.Duration) *Coordinator {

	c := &Coordinator{
		store:          NewStore(),
		gateway:        gateway,
		provider:       provider,
		tools:          tools,
		log:            log.With("component", "session.coordinator"),
		launchDelay:    launchDelay,
		resendCooldown: resendCooldown,
		now:            time.Now,
	}
	tools.Subscribe(c)
	return c
}

// State returns the current state snapshot.
func (c *Coordinator) State() State { return c.store.Snapshot() }

// Subscribe registers a sink notified after every state change.
func (c *Coordinator) Subscribe(sink Sink) { c.store.Subscribe(sink) }

// ---- lifecycle hooks ----

// OnAppLaunch holds the splash route for the configured delay, then runs
// the initial session check.
func (c *Coordinator) OnAppLaunch(ctx context.Context) {
	select {
	case <-time.After(c.launchDelay):
	case <-ctx.Done():
		return
	}
	c.checkAuthState(ctx)
}

// OnAppForegrounded refreshes auth state when the app becomes active:
// a pending verification is re-checked, an unauthenticated screen re-runs
// the session check, and an authenticated session is left alone.
func (c *Coordinator) OnAppForegrounded(ctx context.Context) {
	st := c.store.Snapshot()
	switch {
	case st.Route == RouteSplash:
		// launch path owns the first check
	case st.Route == RouteVerification:
		c.RequestVerificationCheck(ctx)
	case st.Route.authenticated():
	default:
		c.checkAuthState(ctx)
	}
}

func (c *Coordinator) checkAuthState(ctx context.Context) {
	c.begin("Checking authentication...")

	if sess := c.gateway.CheckSession(ctx); sess != nil {
		c.applyAuthenticated(ctx, sess)
		return
	}

	c.store.mutate(func(st *State) {
		st.IsLoading = false
		st.LoadingMessage = ""
		st.Session = nil
		switch {
		case st.PendingEmail != "":
			st.Route = RouteVerification
		case st.Route == RouteSplash || st.Route.authenticated():
			st.Route = RouteWelcome
		}
	})
}

// ---- operations ----

// RequestSignIn authenticates with email and password.
func (c *Coordinator) RequestSignIn(ctx context.Context, email, password string) {
	c.begin("Signing in...")
	c.applySignInResult(ctx, c.gateway.SignIn(ctx, email, password), "Login failed")
}

// RequestSignUp creates a new account. The tools-connected flag is reset
// for every created account, verified or not.
func (c *Coordinator) RequestSignUp(ctx context.Context, email, password, fullName string) {
	c.begin("Creating account...")

	res := c.gateway.SignUp(ctx, email, password, fullName)
	if !res.Created {
		c.fail(reasonOr(res.Reason, "Sign up failed"))
		return
	}

	if err := c.tools.Reset(ctx); err != nil {
		c.log.Error(ctx, "failed to reset tools state on sign up", "error", err)
	}

	if res.RequiresVerification {
		c.applyPendingVerification(email)
		return
	}

	sess := res.Session
	if sess == nil {
		sess = &identity.Session{Email: email, EmailVerified: true}
	}
	c.applyAuthenticated(ctx, sess)
}

// RequestOAuthSignIn runs the provider flow and exchanges its ID token for
// a backend session.
func (c *Coordinator) RequestOAuthSignIn(ctx context.Context) {
	c.begin("Signing in with Google...")

	cred, err := c.provider.SignIn(ctx)
	if err != nil {
		switch {
		case errors.Is(err, oauth.ErrCancelled):
			c.fail("Google sign-in cancelled")
		case errors.Is(err, oauth.ErrNoIDToken):
			c.fail("Failed to get ID token from Google")
		default:
			c.log.Warn(ctx, "provider sign in failed", "error", err)
			c.fail("Google sign-in failed")
		}
		return
	}

	c.applySignInResult(ctx, c.gateway.SignInWithIDToken(ctx, cred.IDToken, cred.AccessToken),
		"Google sign-in failed")
}

// RequestSignOut ends the session. Local state always moves on, whatever
// the backend says: a consistent local UX beats strict consistency here.
func (c *Coordinator) RequestSignOut(ctx context.Context) {
	c.begin("Signing out...")

	c.provider.SignOut(ctx)
	if err := c.gateway.SignOut(ctx); err != nil {
		c.log.Warn(ctx, "backend sign out failed, clearing local session anyway", "error", err)
	}

	c.store.mutate(func(st *State) {
		st.IsLoading = false
		st.LoadingMessage = ""
		st.Session = nil
		st.PendingEmail = ""
		st.PendingSince = time.Time{}
		st.HasConnectedTools = false
		if st.Route.authenticated() {
			st.Route = RouteWelcome
		}
	})
}

// RequestPasswordReset asks the backend to send a reset email.
func (c *Coordinator) RequestPasswordReset(ctx context.Context, email string) bool {
	c.begin("Sending reset email...")

	if !c.gateway.ResetPassword(ctx, email) {
		c.fail("Failed to send password reset")
		return false
	}
	c.store.mutate(func(st *State) {
		st.IsLoading = false
		st.LoadingMessage = ""
	})
	return true
}

// RequestVerificationCheck polls the backend for the pending email's
// confirmation status and promotes the session when it is verified.
func (c *Coordinator) RequestVerificationCheck(ctx context.Context) bool {
	email := c.store.Snapshot().PendingEmail
	if email == "" {
		return false
	}
	if !c.gateway.CheckEmailVerification(ctx, email) {
		return false
	}

	sess := c.gateway.CheckSession(ctx)
	if sess == nil {
		// Verified, but no live session to read profile fields from.
		sess = &identity.Session{Email: email, EmailVerified: true}
	}
	c.applyAuthenticated(ctx, sess)
	return true
}

// RequestResendVerification re-sends the verification email, subject to
// the resend cooldown.
func (c *Coordinator) RequestResendVerification(ctx context.Context) bool {
	st := c.store.Snapshot()
	if st.PendingEmail == "" {
		return false
	}
	if !st.PendingSince.IsZero() && c.now().Sub(st.PendingSince) < c.resendCooldown {
		c.fail("Please wait before requesting another email")
		return false
	}
	if !c.gateway.ResendVerification(ctx, st.PendingEmail) {
		c.fail("Failed to resend verification email")
		return false
	}

	now := c.now()
	c.store.mutate(func(st *State) { st.PendingSince = now })
	return true
}

// NavigateTo performs a UI-initiated route change. Only moves between
// unauthenticated screens and the main/settings toggle are allowed; leaving
// the verification screen abandons the pending state. Reports whether the
// navigation happened.
func (c *Coordinator) NavigateTo(route Route) bool {
	if !navAllowed(c.store.Snapshot().Route, route) {
		c.log.Warn(context.Background(), "rejected navigation",
			"to", route.String())
		return false
	}
	c.store.mutate(func(st *State) {
		if !navAllowed(st.Route, route) {
			return
		}
		if st.Route == RouteVerification {
			st.PendingEmail = ""
			st.PendingSince = time.Time{}
		}
		st.Route = route
	})
	return true
}

// DismissError clears the error surface.
func (c *Coordinator) DismissError() {
	c.store.mutate(func(st *State) { st.ErrorMessage = "" })
}

// OnToolsConnectionChanged mirrors tools-store changes into the state.
func (c *Coordinator) OnToolsConnectionChanged(ev toolstate.Event) {
	c.store.mutate(func(st *State) { st.HasConnectedTools = ev.Connected })
}

// ---- shared transitions ----

func (c *Coordinator) applySignInResult(ctx context.Context, res identity.SignInResult, fallback string) {
	switch res.Outcome {
	case identity.SignInAuthenticated:
		c.applyAuthenticated(ctx, res.Session)
	case identity.SignInNeedsVerification:
		c.applyPendingVerification(res.Email)
	default:
		c.fail(reasonOr(res.Reason, fallback))
	}
}

func (c *Coordinator) applyAuthenticated(ctx context.Context, sess *identity.Session) {
	connected := c.tools.Connected(ctx)
	c.store.mutate(func(st *State) {
		st.IsLoading = false
		st.LoadingMessage = ""
		st.ErrorMessage = ""
		st.Session = sess
		st.PendingEmail = ""
		st.PendingSince = time.Time{}
		st.HasConnectedTools = connected
		st.Route = RouteMain
	})
}

func (c *Coordinator) applyPendingVerification(email string) {
	now := c.now()
	c.store.mutate(func(st *State) {
		st.IsLoading = false
		st.LoadingMessage = ""
		st.Session = nil
		st.PendingEmail = email
		st.PendingSince = now
		st.Route = RouteVerification
	})
}

func (c *Coordinator) begin(msg string) {
	c.store.mutate(func(st *State) {
		st.IsLoading = true
		st.LoadingMessage = msg
		st.ErrorMessage = ""
	})
}

func (c *Coordinator) fail(msg string) {
	c.store.mutate(func(st *State) {
		st.IsLoading = false
		st.LoadingMessage = ""
		st.ErrorMessage = msg
	})
}

func reasonOr(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}
