package guard

import (
	"net/url"

	"github.com/you/sessionkit/domain"
)

// Decision is the route gate's verdict for a navigation attempt.
type Decision int

const (
	// ShowLoading means an auth determination is in flight: render a neutral
	// placeholder and nothing else.
	ShowLoading Decision = iota
	// Redirect means the visitor is unauthenticated: capture the intent and
	// send them to the login view, replacing history.
	Redirect
	// Render means the guarded content may be shown.
	Render
)

func (d Decision) String() string {
	switch d {
	case ShowLoading:
		return "loading"
	case Redirect:
		return "redirect"
	case Render:
		return "render"
	default:
		return "unknown"
	}
}

// SessionSource is the slice of the session controller the guard consumes.
type SessionSource interface {
	Snapshot() domain.Snapshot
}

// Evaluate implements the route-gate contract. Loading takes precedence over
// everything; the public escape hatch renders immediately regardless of auth
// state.
func Evaluate(snap domain.Snapshot, public bool) Decision {
	if public {
		return Render
	}
	if snap.Loading() {
		return ShowLoading
	}
	if !snap.Authenticated() {
		return Redirect
	}
	return Render
}

// Guard couples the gate decision with redirect-intent capture and login URL
// construction.
type Guard struct {
	sessions  SessionSource
	intents   domain.IntentStore
	loginPath string
}

// New creates a route guard redirecting to loginPath.
func New(sessions SessionSource, intents domain.IntentStore, loginPath string) *Guard {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &Guard{sessions: sessions, intents: intents, loginPath: loginPath}
}

// Check gates a navigation to currentPath. On Redirect the original
// destination is recorded as the pending intent and the returned string is
// the login URL carrying it as a query parameter; otherwise the string is
// empty.
func (g *Guard) Check(currentPath string, public bool) (Decision, string) {
	d := Evaluate(g.sessions.Snapshot(), public)
	if d != Redirect {
		return d, ""
	}

	g.intents.Put(domain.RedirectIntent{FromPath: currentPath})
	return d, g.loginPath + "?redirect=" + url.QueryEscape(currentPath)
}
