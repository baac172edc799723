package credential

import (
	"context"
	"errors"
)

var (
	// ErrIncomplete is returned by Write when the token or the user ID is empty.
	ErrIncomplete = errors.New("credential: token and user id are both required")
)

// Credentials is the persisted session: the opaque token issued by the remote
// service and the user identifier it belongs to.
type Credentials struct {
	// Token is the bearer token attached to authenticated remote calls.
	Token string `json:"token"`

	// UserID addresses the session cache and parameterizes profile reads.
	UserID string `json:"user_id"`
}

// Complete reports whether both halves are present.
func (c Credentials) Complete() bool {
	return c.Token != "" && c.UserID != ""
}

// Backend is the persisted key/value surface behind a Store. Implementations
// must store token and user id as a single record so that a Save is atomic.
type Backend interface {
	// Load returns the persisted credentials, or nil if none are stored.
	Load(ctx context.Context) (*Credentials, error)

	// Save replaces the persisted credentials.
	Save(ctx context.Context, c Credentials) error

	// Delete removes the persisted credentials. Deleting nothing is not an error.
	Delete(ctx context.Context) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
