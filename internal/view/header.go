package view

import (
	"context"
	"fmt"
	"sync"

	"github.com/brunogervazio/ezcoins-web/internal/router"
	"github.com/brunogervazio/ezcoins-web/internal/session"
)

// Menu identifies one of the header dropdowns.
type Menu string

const (
	AccountMenu Menu = "account"
	MobileMenu  Menu = "mobile"
)

// NavCommand is a header navigation button.
type NavCommand string

const (
	NavHistory NavCommand = "history"
	NavDonate  NavCommand = "donate"

	// NavAccount only closes the account menu; it has no page of its own.
	NavAccount NavCommand = "account"
)

// navTargets maps each header command to the route it opens.
var navTargets = map[NavCommand]string{
	NavHistory: "/history",
	NavDonate:  "/donate",
}

// Header is the authenticated app bar: balance chip, avatar, the account and
// mobile menus, and the navigation buttons.
type Header struct {
	ctrl *Controller

	mu   sync.Mutex
	open map[Menu]bool
}

func NewHeader(ctrl *Controller) *Header {
	return &Header{ctrl: ctrl, open: make(map[Menu]bool)}
}

// Snapshot is the cached profile and wallet, or false if none was hydrated.
func (h *Header) Snapshot() (session.Snapshot, bool) {
	return h.ctrl.Current()
}

// BalanceLabel is the text of the balance chip.
func (h *Header) BalanceLabel() string {
	snap, ok := h.Snapshot()
	if !ok {
		return "EZȻ -"
	}
	return fmt.Sprintf("EZȻ %d", snap.Wallet.ToOffer)
}

func (h *Header) IsOpen(m Menu) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open[m]
}

func (h *Header) Open(m Menu) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.open[m] = true
}

// Close closes m. Closing the account menu also closes the mobile menu it
// may have been opened from.
func (h *Header) Close(m Menu) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.open, m)
	if m == AccountMenu {
		delete(h.open, MobileMenu)
	}
}

// Toggle flips m and reports whether it is now open.
func (h *Header) Toggle(m Menu) bool {
	if h.IsOpen(m) {
		h.Close(m)
		return false
	}
	h.Open(m)
	return true
}

func (h *Header) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.open)
}

// Menus reports the open state of every menu.
func (h *Header) Menus() map[Menu]bool {
	return map[Menu]bool{
		AccountMenu: h.IsOpen(AccountMenu),
		MobileMenu:  h.IsOpen(MobileMenu),
	}
}

// Go runs a navigation button.
func (h *Header) Go(cmd NavCommand) (router.Location, error) {
	if cmd == NavAccount {
		h.Close(AccountMenu)
		return router.Location{Path: h.ctrl.CurrentPath()}, nil
	}

	path, ok := navTargets[cmd]
	if !ok {
		return router.Location{}, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	h.CloseAll()
	return h.ctrl.Navigate(path)
}

// Logout closes the menus and ends the session.
func (h *Header) Logout(ctx context.Context) (router.Location, error) {
	h.CloseAll()
	return h.ctrl.Logout(ctx)
}
