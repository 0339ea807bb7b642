// Package cli is the interactive shell around the session coordinator. It
// stands in for the mobile UI: commands drive coordinator operations and
// the prompt reflects the active route.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/possamhq/possam/internal/logging"
	"github.com/possamhq/possam/internal/session"
	"github.com/possamhq/possam/internal/voicesession"
)

// sessionController is the slice of the coordinator the shell drives.
// *session.Coordinator satisfies it; tests provide a stub.
type sessionController interface {
	State() session.State
	OnAppLaunch(ctx context.Context)
	OnAppForegrounded(ctx context.Context)
	RequestSignIn(ctx context.Context, email, password string)
	RequestSignUp(ctx context.Context, email, password, fullName string)
	RequestOAuthSignIn(ctx context.Context)
	RequestSignOut(ctx context.Context)
	RequestPasswordReset(ctx context.Context, email string) bool
	RequestVerificationCheck(ctx context.Context) bool
	RequestResendVerification(ctx context.Context) bool
	NavigateTo(route session.Route) bool
	DismissError()
}

// toolsStore is the slice of the tools store the shell needs.
type toolsStore interface {
	Connected(ctx context.Context) bool
	MarkConnected(ctx context.Context) error
	AddTool(ctx context.Context, id string) error
	Tools(ctx context.Context) ([]string, error)
}

type App struct {
	controller sessionController
	voice      *voicesession.Session
	tools      toolsStore
	log        logging.Logger
	reader     *bufio.Reader
}

func NewApp(controller sessionController, voice *voicesession.Session,
	tools toolsStore, log logging.Logger) *App {

	return &App{
		controller: controller,
		voice:      voice,
		tools:      tools,
		log:        log.With("component", "cli"),
		reader:     bufio.NewReader(os.Stdin),
	}
}

// Run performs the launch sequence and enters the REPL.
func (a *App) Run(ctx context.Context) {
	a.controller.OnAppLaunch(ctx)
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) status() string {
	st := a.controller.State()
	if st.Session != nil && st.Session.Email != "" {
		return st.Route.String() + " " + st.Session.Email
	}
	return st.Route.String()
}

// report prints the outcome of the last operation: the error surface if
// one is set, otherwise the current route.
func (a *App) report() {
	st := a.controller.State()
	if st.ErrorMessage != "" {
		printlnFn("Error:", st.ErrorMessage)
		a.controller.DismissError()
		return
	}
	printlnFn("Now on:", st.Route.String())
}
