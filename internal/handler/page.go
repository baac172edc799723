package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brunogervazio/ezcoins-web/internal/router"
	"github.com/brunogervazio/ezcoins-web/internal/session"
	"github.com/brunogervazio/ezcoins-web/internal/view"
)

// PageModel is what the front-end renders for an allowed route.
type PageModel struct {
	Path       string       `json:"path"`
	Header     *HeaderModel `json:"header,omitempty"`
	LoginError string       `json:"login_error,omitempty"`
}

// HeaderModel is the authenticated app bar.
type HeaderModel struct {
	Snapshot *session.Snapshot  `json:"snapshot,omitempty"`
	Balance  string             `json:"balance"`
	Menus    map[view.Menu]bool `json:"menus"`
}

// PageHandler turns page requests into navigations.
type PageHandler struct {
	ctrl   *view.Controller
	login  *view.LoginView
	header *view.Header
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(ctrl *view.Controller, login *view.LoginView, header *view.Header) *PageHandler {
	return &PageHandler{ctrl: ctrl, login: login, header: header}
}

// Show navigates to the requested path. A guard denial becomes a redirect to
// the route the guard chose; an allowed route renders its page model.
func (h *PageHandler) Show(c *gin.Context) {
	path := c.Request.URL.Path
	loc, err := h.ctrl.Navigate(path)
	if err == nil && !loc.Redirected && h.ctrl.Authenticated() != loc.Authenticated {
		// The session changed while the route was resolved; decide again.
		loc, err = h.ctrl.Navigate(path, router.Replace())
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	if loc.Redirected {
		c.Redirect(http.StatusFound, loc.Path)
		return
	}

	page := PageModel{Path: loc.Path}
	if loc.Path == h.ctrl.AnonymousEntry() {
		page.LoginError = h.login.ErrorMessage()
	}
	if loc.Authenticated {
		page.Header = h.headerModel()
	}
	c.JSON(http.StatusOK, page)
}

// ToggleMenu flips one header menu.
func (h *PageHandler) ToggleMenu(c *gin.Context) {
	m := view.Menu(c.Param("menu"))
	if m != view.AccountMenu && m != view.MobileMenu {
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody{Error: "EZC_MENU_UNKNOWN", Message: string(m)})
		return
	}
	h.header.Toggle(m)
	c.JSON(http.StatusOK, gin.H{"menus": h.header.Menus()})
}

// CloseMenus closes every header menu.
func (h *PageHandler) CloseMenus(c *gin.Context) {
	h.header.CloseAll()
	c.JSON(http.StatusOK, gin.H{"menus": h.header.Menus()})
}

// Nav runs a header navigation button.
func (h *PageHandler) Nav(c *gin.Context) {
	loc, err := h.header.Go(view.NavCommand(c.Param("command")))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, loc.Path)
}

func (h *PageHandler) headerModel() *HeaderModel {
	m := &HeaderModel{
		Balance: h.header.BalanceLabel(),
		Menus:   h.header.Menus(),
	}
	if snap, ok := h.header.Snapshot(); ok {
		m.Snapshot = &snap
	}
	return m
}
