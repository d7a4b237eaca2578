package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate() *Gate {
	return NewGate(DefaultUser, DefaultPassword, nil)
}

func TestLoginLogout(t *testing.T) {
	g := newGate()
	assert.False(t, g.IsAuthenticated())
	_, ok := g.User()
	assert.False(t, ok)

	require.NoError(t, g.Login(" Jack@Example.com ", "qwerty"))
	assert.True(t, g.IsAuthenticated())
	user, ok := g.User()
	require.True(t, ok)
	assert.Equal(t, "Jack", user.Name)

	g.Logout()
	assert.False(t, g.IsAuthenticated())
	g.Logout()
	assert.False(t, g.IsAuthenticated())
}

func TestLoginRejectsWrongCredentials(t *testing.T) {
	tests := []struct {
		name, email, password string
	}{
		{name: "wrong password", email: "jack@example.com", password: "QWERTY"},
		{name: "wrong email", email: "jill@example.com", password: "qwerty"},
		{name: "empty", email: "", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGate()
			assert.ErrorIs(t, g.Login(tt.email, tt.password), ErrInvalidCredentials)
			assert.False(t, g.IsAuthenticated())
		})
	}
}

func TestProtect(t *testing.T) {
	g := newGate()
	var redirects, renders int
	redirect := func() { redirects++ }
	render := func() string { renders++; return "cities" }

	assert.Equal(t, "", Protect(g, redirect, render))
	assert.Equal(t, 1, redirects)
	assert.Equal(t, 0, renders, "protected content must not render while signed out")

	require.NoError(t, g.Login("jack@example.com", "qwerty"))
	assert.Equal(t, "cities", Protect(g, redirect, render))
	assert.Equal(t, 1, redirects)
	assert.Equal(t, 1, renders)

	assert.Equal(t, "", Protect(nil, nil, render))
	assert.Equal(t, 1, renders)
}
