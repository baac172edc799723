package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brunogervazio/ezcoins-web/internal/middleware"
	"github.com/brunogervazio/ezcoins-web/internal/remote"
	"github.com/brunogervazio/ezcoins-web/internal/view"
)

// loginRequest accepts either a JSON body or a posted form.
type loginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// SessionHandler runs the login, logout and refresh commands.
type SessionHandler struct {
	ctrl   *view.Controller
	login  *view.LoginView
	header *view.Header
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(ctrl *view.Controller, login *view.LoginView, header *view.Header) *SessionHandler {
	return &SessionHandler{ctrl: ctrl, login: login, header: header}
}

// Login authenticates and redirects to the authenticated landing route.
func (h *SessionHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{
			Error:   "EZC_LOGIN_INVALID_INPUT",
			Message: "E-mail and password are required.",
		})
		return
	}

	loc, err := h.login.Submit(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.Logger(c).Info("login failed", slog.String("error", err.Error()))
		abortWithError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, loc.Path)
}

// Logout ends the session. It succeeds whether or not one existed.
func (h *SessionHandler) Logout(c *gin.Context) {
	loc, err := h.header.Logout(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, loc.Path)
}

// Refresh re-hydrates the signed-in user's snapshot.
func (h *SessionHandler) Refresh(c *gin.Context) {
	snap, err := h.ctrl.Refresh(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"snapshot": snap,
			"balance":  h.header.BalanceLabel(),
		})
	case errors.Is(err, view.ErrNoSession), errors.Is(err, remote.ErrUnauthorized):
		c.Redirect(http.StatusSeeOther, h.ctrl.AnonymousEntry())
	default:
		middleware.Logger(c).Warn("refresh failed", slog.String("error", err.Error()))
		abortWithError(c, err)
	}
}
