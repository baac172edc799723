// Package guard decides, on every navigation, whether a route may be rendered
// for the current session or must redirect.
package guard

import (
	"fmt"

	"github.com/brunogervazio/ezcoins-web/internal/credential"
	"github.com/brunogervazio/ezcoins-web/internal/metrics"
)

// AuthState is the session state a route requires.
type AuthState int

const (
	// Any routes render regardless of session state.
	Any AuthState = iota
	// Authenticated routes require a stored token.
	Authenticated
	// Anonymous routes are only for users without a token (the login page).
	Anonymous
)

func (s AuthState) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "any"
	}
}

// Route is a static route descriptor.
type Route struct {
	Path     string
	Requires AuthState

	// RedirectTo, when set, makes the route an unconditional redirect.
	RedirectTo string
}

// Decision is the outcome of evaluating one navigation.
type Decision struct {
	Allowed  bool
	Redirect string
}

func (d Decision) String() string {
	if d.Allowed {
		return "allowed"
	}
	return fmt.Sprintf("denied -> %s", d.Redirect)
}

// CredentialReader is the read side of the credential store.
type CredentialReader interface {
	Read() (credential.Credentials, bool)
}

// Guard maps (route requirement, token presence) to a decision. It holds no
// state between calls and must be evaluated on every navigation.
type Guard struct {
	creds                CredentialReader
	anonymousEntry       string
	authenticatedLanding string
}

// New creates a Guard redirecting anonymous users to anonymousEntry and
// authenticated users away from anonymous-only routes to authenticatedLanding.
func New(creds CredentialReader, anonymousEntry, authenticatedLanding string) *Guard {
	return &Guard{
		creds:                creds,
		anonymousEntry:       anonymousEntry,
		authenticatedLanding: authenticatedLanding,
	}
}

// Evaluate decides whether route may render for the current credentials.
func (g *Guard) Evaluate(route Route) Decision {
	return g.Decide(route, g.Present())
}

// Present reports whether a token is stored right now.
func (g *Guard) Present() bool {
	_, present := g.creds.Read()
	return present
}

// Decide applies the decision table to an already observed token presence.
// Callers that need one consistent view across several decisions read
// Present once and pass it here.
func (g *Guard) Decide(route Route, present bool) Decision {
	var d Decision
	switch {
	case route.Requires == Authenticated && !present:
		d = Decision{Redirect: g.anonymousEntry}
	case route.Requires == Anonymous && present:
		d = Decision{Redirect: g.authenticatedLanding}
	default:
		d = Decision{Allowed: true}
	}

	outcome := "allowed"
	if !d.Allowed {
		outcome = "denied"
	}
	metrics.GuardDecisions.WithLabelValues(route.Path, outcome).Inc()
	return d
}

// AnonymousEntry is where unauthenticated users are sent.
func (g *Guard) AnonymousEntry() string {
	return g.anonymousEntry
}

// AuthenticatedLanding is where authenticated users are sent.
func (g *Guard) AuthenticatedLanding() string {
	return g.authenticatedLanding
}
