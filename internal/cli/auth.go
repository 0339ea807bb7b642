package cli

import (
	"context"
	"os"

	"github.com/possamhq/possam/internal/session"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) isAuthenticated() bool {
	return a.controller.State().Session != nil
}

// Status prints the current route, session, and tools flag.
func (a *App) Status(ctx context.Context) error {
	st := a.controller.State()
	printlnFn("Route:", st.Route.String())
	if st.Session != nil {
		printlnFn("Signed in as:", st.Session.Email)
		if st.Session.DisplayName != "" {
			printlnFn("Name:", st.Session.DisplayName)
		}
	} else {
		printlnFn("Not signed in")
	}
	if st.PendingEmail != "" {
		printlnFn("Awaiting verification for:", st.PendingEmail)
	}
	printlnFn("Tools connected:", st.HasConnectedTools)
	return nil
}

// Login navigates to the login screen, prompts for credentials, and runs
// the sign-in operation. The password buffer is wiped before returning.
func (a *App) Login(ctx context.Context) error {
	a.controller.NavigateTo(session.RouteLogin)

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer wipe(password)

	a.controller.RequestSignIn(ctx, email, string(password))
	a.report()
	return nil
}

// Signup navigates to the signup screen and creates an account.
func (a *App) Signup(ctx context.Context) error {
	a.controller.NavigateTo(session.RouteSignup)

	name, err := getSimpleText(a.reader, "Enter full name", os.Stdout)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer wipe(password)

	a.controller.RequestSignUp(ctx, email, string(password), name)

	if st := a.controller.State(); st.Route == session.RouteVerification {
		printlnFn("Check your inbox: a verification email was sent to", st.PendingEmail)
		return nil
	}
	a.report()
	return nil
}

// Google runs the OAuth sign-in flow.
func (a *App) Google(ctx context.Context) error {
	a.controller.NavigateTo(session.RouteLogin)
	a.controller.RequestOAuthSignIn(ctx)
	a.report()
	return nil
}

// Verify re-checks whether the pending email has been confirmed.
func (a *App) Verify(ctx context.Context) error {
	if a.controller.RequestVerificationCheck(ctx) {
		printlnFn("Email verified, welcome!")
	} else {
		printlnFn("Not verified yet. Check your inbox, then run 'verify' again.")
	}
	return nil
}

// Resend asks for another verification email.
func (a *App) Resend(ctx context.Context) error {
	if a.controller.RequestResendVerification(ctx) {
		printlnFn("Verification email sent")
		return nil
	}
	a.report()
	return nil
}

// Reset sends a password-reset email for the given address.
func (a *App) Reset(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	if a.controller.RequestPasswordReset(ctx, email) {
		printlnFn("Password reset email sent")
		return nil
	}
	a.report()
	return nil
}

// Refresh simulates the app returning to the foreground.
func (a *App) Refresh(ctx context.Context) error {
	a.controller.OnAppForegrounded(ctx)
	a.report()
	return nil
}

// Back returns from login/signup/verification to the previous screen.
func (a *App) Back(ctx context.Context) error {
	st := a.controller.State()
	var target session.Route
	switch st.Route {
	case session.RouteLogin, session.RouteSignup:
		target = session.RouteWelcome
	case session.RouteVerification:
		target = session.RouteLogin
	case session.RouteSettings:
		target = session.RouteMain
	default:
		printlnFn("Nowhere to go back to")
		return nil
	}
	if !a.controller.NavigateTo(target) {
		printlnFn("Cannot leave", st.Route.String())
	}
	return nil
}

// Logout ends any active call and signs out.
func (a *App) Logout(ctx context.Context) error {
	_ = a.voice.Stop(ctx)
	a.controller.RequestSignOut(ctx)
	a.report()
	return nil
}

// Settings toggles between the main and settings screens.
func (a *App) Settings(ctx context.Context) error {
	st := a.controller.State()
	target := session.RouteSettings
	if st.Route == session.RouteSettings {
		target = session.RouteMain
	}
	if !a.controller.NavigateTo(target) {
		printlnFn("Settings are only available while signed in")
	}
	return nil
}
