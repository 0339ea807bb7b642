package identity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable marks transport-level failures: the backend could not be
// reached or did not produce a response.
var ErrUnavailable = errors.New("identity backend unavailable")

// backendError is a non-2xx response from the identity backend.
type backendError struct {
	status int
	code   string
	msg    string
}

func (e *backendError) Error() string {
	return fmt.Sprintf("backend error (status %d, code %q): %s", e.status, e.code, e.msg)
}

func (e *backendError) invalidCredentials() bool {
	if e.code == "invalid_credentials" || e.code == "invalid_grant" {
		return true
	}
	return strings.Contains(strings.ToLower(e.msg), "invalid login credentials")
}

func (e *backendError) emailNotConfirmed() bool {
	if e.code == "email_not_confirmed" {
		return true
	}
	return strings.Contains(strings.ToLower(e.msg), "email not confirmed")
}

func (e *backendError) unauthorized() bool {
	return e.status == 401
}

// displayReason turns a backend rejection into a user-facing string,
// falling back to the given default when the backend supplied nothing.
func (e *backendError) displayReason(fallback string) string {
	if e.msg != "" {
		return e.msg
	}
	return fallback
}

func asBackendError(err error, target **backendError) bool {
	return errors.As(err, target)
}

// classify maps an adapter-internal error onto the result taxonomy.
func classify(err error, fallback string) (FailureKind, string) {
	if errors.Is(err, ErrUnavailable) {
		return FailureTransient, "Cannot reach the server. Please try again."
	}
	var be *backendError
	if errors.As(err, &be) {
		if be.invalidCredentials() {
			return FailureInvalidCredentials, "Invalid login credentials"
		}
		return FailureBackend, be.displayReason(fallback)
	}
	return FailureBackend, fallback
}
