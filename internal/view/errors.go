package view

import (
	"errors"

	"github.com/brunogervazio/ezcoins-web/internal/remote"
)

var (
	// ErrSuperseded is returned when a login result arrived after the session or
	// the current page changed; the result is dropped.
	ErrSuperseded = errors.New("login superseded by a newer navigation")

	// ErrNoSession is returned by operations that need a stored session.
	ErrNoSession = errors.New("no active session")

	// ErrUnknownCommand is returned for navigation commands with no mapped path.
	ErrUnknownCommand = errors.New("unknown navigation command")
)

// Message renders err for inline display on the login view.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, remote.ErrUnauthorized):
		return "Invalid e-mail or password."
	case errors.Is(err, remote.ErrRemoteUnavailable):
		return "The ez.coins service is unavailable. Please try again."
	case errors.Is(err, ErrSuperseded):
		return ""
	default:
		return "Something went wrong. Please try again."
	}
}
