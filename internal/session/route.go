package session

// Route is the coordinator's single source of navigational truth. Exactly
// one Route is active at a time and transitions happen only through the
// coordinator.
type Route int

const (
	RouteSplash Route = iota
	RouteWelcome
	RouteLogin
	RouteSignup
	RouteVerification
	RouteMain
	RouteSettings
)

func (r Route) String() string {
	switch r {
	case RouteSplash:
		return "splash"
	case RouteWelcome:
		return "welcome"
	case RouteLogin:
		return "login"
	case RouteSignup:
		return "signup"
	case RouteVerification:
		return "verification"
	case RouteMain:
		return "main"
	case RouteSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// authenticated reports whether the route is only reachable with a session.
func (r Route) authenticated() bool {
	return r == RouteMain || r == RouteSettings
}

// navAllowed is the whitelist for UI-initiated navigation. Everything else
// (splash exit, entering main, leaving an authenticated area) happens only
// as a side effect of coordinator operations.
func navAllowed(from, to Route) bool {
	switch from {
	case RouteWelcome:
		return to == RouteLogin || to == RouteSignup
	case RouteLogin:
		return to == RouteSignup || to == RouteWelcome
	case RouteSignup:
		return to == RouteLogin || to == RouteWelcome
	case RouteVerification:
		return to == RouteLogin
	case RouteMain:
		return to == RouteSettings
	case RouteSettings:
		return to == RouteMain
	default:
		return false
	}
}
