package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/brunogervazio/ezcoins-web/internal/credential"
	"github.com/brunogervazio/ezcoins-web/internal/metrics"
	"github.com/brunogervazio/ezcoins-web/internal/remote"
	"github.com/brunogervazio/ezcoins-web/internal/router"
	"github.com/brunogervazio/ezcoins-web/internal/session"
)

// Authenticator is the remote login operation.
type Authenticator interface {
	Login(ctx context.Context, input remote.LoginInput) (*remote.AuthPayload, error)
}

// CredentialStore is the credential store as seen by the session commands.
type CredentialStore interface {
	Write(ctx context.Context, token, userID string) error
	Read() (credential.Credentials, bool)
	ReadWithGeneration() (credential.Credentials, uint64, bool)
	Clear(ctx context.Context)
	Generation() uint64
}

// SessionCache is the session cache as seen by the views.
type SessionCache interface {
	ReadCacheOnly(userID string) (session.Snapshot, bool)
	Hydrate(ctx context.Context, userID string) (session.Snapshot, error)
	Clear()
}

// Navigator is the router collaborator.
type Navigator interface {
	Navigate(path string, opts ...router.NavOption) (router.Location, error)
	Current() string
	Seq() uint64
}

// Controller issues the session-mutating commands. Login, logout and session
// expiry are serialized: a second command waits for the first to finish.
type Controller struct {
	auth   Authenticator
	creds  CredentialStore
	cache  SessionCache
	nav    Navigator
	logger *slog.Logger

	anonymousEntry       string
	authenticatedLanding string

	mu sync.Mutex
}

// NewController wires the session commands.
func NewController(
	auth Authenticator,
	creds CredentialStore,
	cache SessionCache,
	nav Navigator,
	anonymousEntry string,
	authenticatedLanding string,
	logger *slog.Logger,
) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		auth:                 auth,
		creds:                creds,
		cache:                cache,
		nav:                  nav,
		logger:               logger,
		anonymousEntry:       anonymousEntry,
		authenticatedLanding: authenticatedLanding,
	}
}

// Login authenticates against the remote service, stores the session and
// navigates to the authenticated landing route. On failure nothing is stored.
func (c *Controller) Login(ctx context.Context, input remote.LoginInput) (router.Location, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.creds.Generation()
	seq := c.nav.Seq()

	payload, err := c.auth.Login(ctx, input)
	if err != nil {
		metrics.SessionTransitions.WithLabelValues("login_failed").Inc()
		return router.Location{}, err
	}

	if c.creds.Generation() != gen || c.nav.Seq() != seq {
		c.logger.Info("dropping stale login result", slog.String("user_id", payload.UserID))
		return router.Location{}, ErrSuperseded
	}

	if err := c.creds.Write(ctx, payload.Token, payload.UserID); err != nil {
		return router.Location{}, fmt.Errorf("failed to store session: %w", err)
	}
	// A new identity must never see snapshots from a previous one.
	c.cache.Clear()
	metrics.SessionTransitions.WithLabelValues("login").Inc()
	c.logger.Info("logged in", slog.String("user_id", payload.UserID))

	if _, err := c.cache.Hydrate(ctx, payload.UserID); err != nil {
		if errors.Is(err, remote.ErrUnauthorized) {
			c.endSessionLocked(ctx, "expired")
			return router.Location{}, err
		}
		// The header renders without a balance until the next refresh.
		c.logger.Warn("initial hydrate failed", slog.String("error", err.Error()))
	}

	return c.nav.Navigate(c.authenticatedLanding, router.Replace())
}

// Logout drops the whole session cache, clears the credential store and then
// navigates to the anonymous entry route. Calling it twice is harmless.
func (c *Controller) Logout(ctx context.Context) (router.Location, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endSessionLocked(ctx, "logout")
}

// Refresh re-hydrates the current user's snapshot. An Unauthorized answer
// means the server dropped the session; it is handled as an implicit logout.
func (c *Controller) Refresh(ctx context.Context) (session.Snapshot, error) {
	creds, gen, ok := c.creds.ReadWithGeneration()
	if !ok {
		return session.Snapshot{}, ErrNoSession
	}

	snap, err := c.cache.Hydrate(ctx, creds.UserID)
	if err == nil {
		return snap, nil
	}

	if errors.Is(err, remote.ErrUnauthorized) {
		c.mu.Lock()
		// Only expire the session the failed read belonged to.
		current, curGen, present := c.creds.ReadWithGeneration()
		if present && curGen == gen && current.UserID == creds.UserID {
			c.endSessionLocked(ctx, "expired")
		} else {
			c.logger.Info("ignoring expiry of a replaced session", slog.String("user_id", creds.UserID))
		}
		c.mu.Unlock()
	}
	return session.Snapshot{}, err
}

// Current returns the cached snapshot for the signed-in user without any
// network traffic.
func (c *Controller) Current() (session.Snapshot, bool) {
	creds, ok := c.creds.Read()
	if !ok {
		return session.Snapshot{}, false
	}
	return c.cache.ReadCacheOnly(creds.UserID)
}

// Navigate forwards to the router.
func (c *Controller) Navigate(path string, opts ...router.NavOption) (router.Location, error) {
	return c.nav.Navigate(path, opts...)
}

// CurrentPath is the route currently shown.
func (c *Controller) CurrentPath() string {
	return c.nav.Current()
}

// Authenticated reports whether a session is stored.
func (c *Controller) Authenticated() bool {
	_, ok := c.creds.Read()
	return ok
}

func (c *Controller) endSessionLocked(ctx context.Context, kind string) (router.Location, error) {
	c.cache.Clear()
	c.creds.Clear(ctx)
	metrics.SessionTransitions.WithLabelValues(kind).Inc()
	c.logger.Info("session ended", slog.String("reason", kind))

	return c.nav.Navigate(c.anonymousEntry, router.Replace())
}

// AnonymousEntry is the route the session commands fall back to.
func (c *Controller) AnonymousEntry() string {
	return c.anonymousEntry
}
