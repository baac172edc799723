package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brunogervazio/ezcoins-web/internal/remote"
	"github.com/brunogervazio/ezcoins-web/internal/router"
	"github.com/brunogervazio/ezcoins-web/internal/session"
	"github.com/brunogervazio/ezcoins-web/internal/view"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// abortWithError maps err to a status and an EZC_* code.
func abortWithError(c *gin.Context, err error) {
	status, code := classify(err)
	msg := err.Error()
	if errors.Is(err, remote.ErrUnauthorized) || errors.Is(err, remote.ErrRemoteUnavailable) {
		msg = view.Message(err)
	}
	c.AbortWithStatusJSON(status, errorBody{Error: code, Message: msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, remote.ErrUnauthorized):
		return http.StatusUnauthorized, "EZC_UNAUTHORIZED"
	case errors.Is(err, remote.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable, "EZC_REMOTE_UNAVAILABLE"
	case errors.Is(err, view.ErrSuperseded):
		return http.StatusConflict, "EZC_LOGIN_SUPERSEDED"
	case errors.Is(err, session.ErrSessionChanged):
		return http.StatusConflict, "EZC_SESSION_CHANGED"
	case errors.Is(err, router.ErrRouteNotFound), errors.Is(err, view.ErrUnknownCommand):
		return http.StatusNotFound, "EZC_NOT_FOUND"
	case errors.Is(err, router.ErrRedirectLoop):
		return http.StatusInternalServerError, "EZC_REDIRECT_LOOP"
	default:
		return http.StatusInternalServerError, "EZC_INTERNAL"
	}
}
