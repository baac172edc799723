package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized covers bad credentials and tokens the server no longer accepts.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRemoteUnavailable covers transport failures, server errors and unreadable responses.
	ErrRemoteUnavailable = errors.New("remote unavailable")
)

var unauthorizedCodes = map[string]bool{
	"UNAUTHENTICATED": true,
	"FORBIDDEN":       true,
	"BAD_USER_INPUT":  true,
}

// classifyStatus maps a non-200 HTTP status to an error kind.
func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, status)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrRemoteUnavailable, status, truncate(body, 256))
	}
}

// classifyErrors maps a GraphQL errors array. Errors without a recognised code
// fall back to uncoded, which lets the login mutation treat a plain rejection
// as bad credentials while reads treat it as a server fault.
func classifyErrors(errs []GraphQLError, uncoded error) error {
	first := errs[0]
	for _, e := range errs {
		if unauthorizedCodes[e.Code()] {
			return fmt.Errorf("%w: %s", ErrUnauthorized, e.Message)
		}
	}
	if first.Code() != "" {
		return fmt.Errorf("%w: %s: %s", ErrRemoteUnavailable, first.Code(), first.Message)
	}
	return fmt.Errorf("%w: %s", uncoded, first.Message)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
