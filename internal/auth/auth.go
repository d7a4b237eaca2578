// Package auth is the sign-in gate in front of the app screens. There is one
// configured user and no real identity provider behind it.
package auth

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// ErrInvalidCredentials is returned by Login when email or password do not match.
var ErrInvalidCredentials = errors.New("wrong email or password")

// User is the signed-in user.
type User struct {
	Name   string
	Email  string
	Avatar string
}

// DefaultUser and DefaultPassword are the built-in demo account.
var DefaultUser = User{
	Name:   "Jack",
	Email:  "jack@example.com",
	Avatar: "🧳",
}

const DefaultPassword = "qwerty"

// Gate tracks whether the user is signed in.
type Gate struct {
	mu            sync.RWMutex
	authenticated bool
	user          User
	password      string
	logger        *slog.Logger
}

// NewGate creates a signed-out gate for user.
func NewGate(user User, password string, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		user:     user,
		password: password,
		logger:   logger.With(slog.String("component", "auth")),
	}
}

// Login signs in when email and password match the configured user.
func (g *Gate) Login(email, password string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !strings.EqualFold(strings.TrimSpace(email), g.user.Email) || password != g.password {
		g.logger.Info("login rejected", slog.String("email", email))
		return ErrInvalidCredentials
	}
	g.authenticated = true
	g.logger.Info("logged in", slog.String("email", g.user.Email))
	return nil
}

// Logout signs out. It is safe to call when already signed out.
func (g *Gate) Logout() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.authenticated {
		g.logger.Info("logged out", slog.String("email", g.user.Email))
	}
	g.authenticated = false
}

func (g *Gate) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.authenticated
}

// User returns the signed-in user, or false when signed out.
func (g *Gate) User() (User, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.authenticated {
		return User{}, false
	}
	return g.user, true
}

// Protect renders protected content only for a signed-in user. Otherwise it
// calls redirect and returns "" without calling render.
func Protect(g *Gate, redirect func(), render func() string) string {
	if g == nil || !g.IsAuthenticated() {
		if redirect != nil {
			redirect()
		}
		return ""
	}
	return render()
}
