package router

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/brunogervazio/ezcoins-web/internal/guard"
)

const (
	// maxHops bounds redirect chains so a misconfigured table cannot loop.
	maxHops = 4

	// maxHistory is how many entries the history stack keeps; older ones are dropped.
	maxHistory = 64
)

var (
	// ErrRouteNotFound is returned for paths missing from the route table.
	ErrRouteNotFound = errors.New("route not found")

	// ErrRedirectLoop is returned when redirects do not settle within maxHops.
	ErrRedirectLoop = errors.New("redirect loop")
)

// Location is where a navigation ended up.
type Location struct {
	Path string `json:"path"`

	// Redirected is true when Path differs from the requested path.
	Redirected bool `json:"redirected"`

	// Authenticated is the token presence the guard decided on.
	Authenticated bool `json:"authenticated"`
}

type navOptions struct {
	replace bool
}

// NavOption modifies a single navigation.
type NavOption func(*navOptions)

// Replace makes the navigation replace the current history entry.
func Replace() NavOption {
	return func(o *navOptions) {
		o.replace = true
	}
}

// Router owns the route table, the current location and the history stack.
// Every navigation runs through the guard; a denied route is never returned
// as the location to render.
type Router struct {
	guard  *guard.Guard
	routes map[string]guard.Route
	logger *slog.Logger

	mu      sync.Mutex
	history []string
	seq     uint64
}

// New creates a Router over the given route table.
func New(g *guard.Guard, routes []guard.Route, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	table := make(map[string]guard.Route, len(routes))
	for _, r := range routes {
		table[r.Path] = r
	}
	return &Router{guard: g, routes: table, logger: logger}
}

// DefaultRoutes is the ez.coins route table.
func DefaultRoutes(anonymousEntry, authenticatedLanding string) []guard.Route {
	return []guard.Route{
		{Path: "/", RedirectTo: anonymousEntry},
		{Path: anonymousEntry, Requires: guard.Anonymous},
		{Path: authenticatedLanding, Requires: guard.Authenticated},
		{Path: "/history", Requires: guard.Authenticated},
		{Path: "/donate", Requires: guard.Authenticated},
	}
}

// Route looks up a route descriptor.
func (r *Router) Route(path string) (guard.Route, bool) {
	route, ok := r.routes[path]
	return route, ok
}

// Navigate resolves path through static redirects and the guard, records the
// final location and returns it.
func (r *Router) Navigate(path string, opts ...NavOption) (Location, error) {
	var o navOptions
	for _, opt := range opts {
		opt(&o)
	}

	// One read of the session for the whole chain, so every hop and the
	// returned location agree on it.
	present := r.guard.Present()

	target := path
	for hop := 0; ; hop++ {
		if hop > maxHops {
			return Location{}, fmt.Errorf("%w: %s", ErrRedirectLoop, path)
		}

		route, ok := r.routes[target]
		if !ok {
			return Location{}, fmt.Errorf("%w: %s", ErrRouteNotFound, target)
		}

		if route.RedirectTo != "" {
			target = route.RedirectTo
			continue
		}

		d := r.guard.Decide(route, present)
		if d.Allowed {
			break
		}

		r.logger.Debug("navigation denied",
			slog.String("path", target),
			slog.String("redirect", d.Redirect),
		)
		target = d.Redirect
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if o.replace && len(r.history) > 0 {
		r.history[len(r.history)-1] = target
	} else {
		r.history = append(r.history, target)
		if len(r.history) > maxHistory {
			r.history = slices.Clone(r.history[len(r.history)-maxHistory:])
		}
	}
	r.seq++

	return Location{Path: target, Redirected: target != path, Authenticated: present}, nil
}

// Current returns the path of the last completed navigation, or "" before any.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return ""
	}
	return r.history[len(r.history)-1]
}

// History returns a copy of the history stack, oldest first. Only the most
// recent maxHistory entries are kept.
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.history))
	copy(out, r.history)
	return out
}

// Seq counts completed navigations. Commands compare it before and after a
// remote call to notice the user navigated away in between.
func (r *Router) Seq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}
