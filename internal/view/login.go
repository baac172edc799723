package view

import (
	"context"
	"sync"

	"github.com/brunogervazio/ezcoins-web/internal/remote"
	"github.com/brunogervazio/ezcoins-web/internal/router"
)

// LoginView backs the login form. It remembers the last failure so the page
// can show it inline.
type LoginView struct {
	ctrl *Controller

	mu      sync.Mutex
	lastErr string
}

func NewLoginView(ctrl *Controller) *LoginView {
	return &LoginView{ctrl: ctrl}
}

// Submit runs the login command with already-validated input.
func (v *LoginView) Submit(ctx context.Context, email, password string) (router.Location, error) {
	loc, err := v.ctrl.Login(ctx, remote.LoginInput{Email: email, Password: password})

	v.mu.Lock()
	v.lastErr = Message(err)
	v.mu.Unlock()

	return loc, err
}

// ErrorMessage is the inline error from the last submit, or "".
func (v *LoginView) ErrorMessage() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// Reset clears the inline error.
func (v *LoginView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastErr = ""
}
