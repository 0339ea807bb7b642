package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isAuthenticated() bool
	Status(ctx context.Context) error
	Login(ctx context.Context) error
	Signup(ctx context.Context) error
	Google(ctx context.Context) error
	Verify(ctx context.Context) error
	Resend(ctx context.Context) error
	Reset(ctx context.Context) error
	Refresh(ctx context.Context) error
	Back(ctx context.Context) error
	Logout(ctx context.Context) error
	Call(ctx context.Context) error
	Say(ctx context.Context, text string) error
	End(ctx context.Context) error
	Tools(ctx context.Context) error
	Connect(ctx context.Context, id string) error
	Settings(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the possam CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn). The command set
// depends on where the session is:
//
//	Not signed in:
//	  - help           — show available commands
//	  - status         — show route and session
//	  - login          — sign in with email and password
//	  - signup         — create an account
//	  - google         — sign in with a Google ID token
//	  - verify         — re-check a pending email verification
//	  - resend         — resend the verification email
//	  - reset          — send a password-reset email
//	  - refresh        — simulate the app returning to the foreground
//	  - back           — return to the previous screen
//	  - exit | quit    — leave the program
//
//	Signed in:
//	  - help           — show available commands
//	  - status         — show route and session
//	  - call           — start a voice call
//	  - say <text>     — speak during an active call
//	  - end            — end the call
//	  - tools          — list connected tools
//	  - connect <id>   — connect a tool
//	  - settings       — toggle the settings screen
//	  - refresh        — simulate the app returning to the foreground
//	  - logout         — sign out
//	  - exit | quit    — leave the program
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("possam> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isAuthenticated() {
				printlnFn("Available commands: status, call, say <text>, end, tools, connect <id>, settings, refresh, logout, exit")
			} else {
				printlnFn("Available commands: status, login, signup, google, verify, resend, reset, refresh, back, exit")
			}

		case "status":
			_ = a.Status(ctx)

		case "login":
			_ = a.Login(ctx)

		case "signup":
			_ = a.Signup(ctx)

		case "google":
			_ = a.Google(ctx)

		case "verify":
			_ = a.Verify(ctx)

		case "resend":
			_ = a.Resend(ctx)

		case "reset":
			_ = a.Reset(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "back":
			_ = a.Back(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "call":
			_ = a.Call(ctx)

		case "say":
			if len(args) == 0 {
				printlnFn("Usage: say <text>")
				continue
			}
			_ = a.Say(ctx, strings.Join(args, " "))

		case "end":
			_ = a.End(ctx)

		case "tools":
			_ = a.Tools(ctx)

		case "connect":
			if len(args) == 0 {
				printlnFn("Usage: connect <id>")
				continue
			}
			_ = a.Connect(ctx, args[0])

		case "settings":
			_ = a.Settings(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
