package ui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldwise/internal/auth"
	"worldwise/internal/geocode"
	"worldwise/internal/logging"
	"worldwise/internal/model"
	"worldwise/internal/session"
	"worldwise/internal/store"
)

type fakeGeocoder struct {
	mu    sync.Mutex
	place geocode.Place
	err   error
	calls int
}

func (f *fakeGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (geocode.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.place, f.err
}

func parisGeocoder() *fakeGeocoder {
	return &fakeGeocoder{place: geocode.Place{
		CityName:    "Paris",
		Country:     "France",
		CountryCode: "FR",
		Emoji:       "🇫🇷",
	}}
}

func newTestApp(t *testing.T, geocoder Geocoder) (Model, *store.Store, *auth.Gate) {
	t.Helper()
	st := store.New(nil, store.WithDelays(0, 0, 0), store.WithLogger(logging.Discard()))
	t.Cleanup(func() { _ = st.Close() })

	gate := auth.NewGate(auth.DefaultUser, auth.DefaultPassword, logging.Discard())
	m := New(Options{
		Store:         st,
		Geocoder:      geocoder,
		Gate:          gate,
		Logger:        logging.Discard(),
		LoginEmail:    auth.DefaultUser.Email,
		LoginPassword: auth.DefaultPassword,
	})
	m, _ = send(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, st, gate
}

func send(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// collect runs cmd and any batched commands, returning the produced messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findMsg[T any](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			return v
		}
	}
	var zero T
	require.Failf(t, "message not produced", "%T not in %v", zero, msgs)
	return zero
}

func loggedIn(t *testing.T, m Model) Model {
	t.Helper()
	m, cmd := send(m, keyPress("enter"))
	m, _ = send(m, findMsg[loggedInMsg](t, collect(cmd)))
	require.Equal(t, model.ScreenCities, m.screen)
	return m
}

func TestStartsOnLogin(t *testing.T) {
	m, _, _ := newTestApp(t, nil)

	assert.Equal(t, model.ScreenLogin, m.screen)
	assert.Equal(t, "/", m.route)
	assert.Contains(t, m.View(), "Email address")
}

func TestSignedOutAppRouteRedirectsToLogin(t *testing.T) {
	m, _, gate := newTestApp(t, nil)

	for _, route := range []string{"app/cities", "app/countries", "app/form?lat=1&lng=2", "app/cities/abc"} {
		t.Run(route, func(t *testing.T) {
			next, _ := send(m, model.NavigateMsg{Route: route})
			assert.Equal(t, model.ScreenLogin, next.screen)
			assert.Equal(t, "/", next.route)
			assert.False(t, gate.IsAuthenticated())
		})
	}
}

func TestSignedOutViewNeverRendersAppScreens(t *testing.T) {
	m, _, _ := newTestApp(t, nil)
	m.screen = model.ScreenCities

	view := m.View()
	assert.NotContains(t, view, "Add your first city")
	assert.NotContains(t, view, "Welcome")
}

func TestLoginNavigatesToCities(t *testing.T) {
	m, _, gate := newTestApp(t, nil)

	m = loggedIn(t, m)

	assert.True(t, gate.IsAuthenticated())
	view := m.View()
	assert.Contains(t, view, "Add your first city")
	assert.Contains(t, view, "Welcome, Jack")
}

func TestLoginWithWrongPassword(t *testing.T) {
	m, _, gate := newTestApp(t, nil)
	m.login.inputs[1].SetValue("nope")

	m, cmd := send(m, keyPress("enter"))

	assert.Nil(t, cmd)
	assert.Equal(t, model.ScreenLogin, m.screen)
	assert.Equal(t, auth.ErrInvalidCredentials.Error(), m.login.error)
	assert.False(t, gate.IsAuthenticated())
}

func TestLogoutReturnsToLogin(t *testing.T) {
	m, _, gate := newTestApp(t, nil)
	m = loggedIn(t, m)

	m, _ = send(m, keyPress("L"))

	assert.Equal(t, model.ScreenLogin, m.screen)
	assert.False(t, gate.IsAuthenticated())
}

func TestDropPinGeocodeAndCreate(t *testing.T) {
	geocoder := parisGeocoder()
	m, st, _ := newTestApp(t, geocoder)
	m = loggedIn(t, m)

	m, _ = send(m, keyPress("p"))
	require.NotNil(t, m.pinPrompt)
	assert.Equal(t, model.ModeInsert, m.mode)

	m.pinPrompt.input.SetValue("48.85, 2.35")
	m, cmd := send(m, keyPress("enter"))
	nav := findMsg[model.NavigateMsg](t, collect(cmd))
	assert.Equal(t, "app/form", session.Path(nav.Route))

	m, cmd = send(m, nav)
	require.Equal(t, model.ScreenCityForm, m.screen)
	require.NotNil(t, m.cityForm)
	assert.True(t, m.cityForm.geocoding)
	assert.Equal(t, model.Position{Lat: 48.85, Lng: 2.35}, m.mapCenter)

	m, _ = send(m, findMsg[model.GeocodedMsg](t, collect(cmd)))
	assert.False(t, m.cityForm.geocoding)
	assert.Equal(t, "Paris", m.cityForm.inputs[0].Value())

	m, cmd = send(m, keyPress("enter"))
	created := findMsg[model.CityCreatedMsg](t, collect(cmd))
	m, _ = send(m, created)

	assert.Equal(t, model.ScreenCities, m.screen)
	assert.Equal(t, "Added 🇫🇷 Paris", m.info)

	cities := st.State().Cities
	require.Len(t, cities, 1)
	assert.Equal(t, "Paris", cities[0].CityName)
	assert.Equal(t, "France", cities[0].Country)
	assert.Equal(t, model.Position{Lat: 48.85, Lng: 2.35}, cities[0].Position)
	assert.Equal(t, 1, geocoder.calls)
}

func TestGeocodeFailureShowsMessageAndAddsNothing(t *testing.T) {
	geocoder := &fakeGeocoder{err: &geocode.Error{Kind: geocode.ErrNoCityAtLocation, Lat: 0, Lng: -30}}
	m, st, _ := newTestApp(t, geocoder)
	m = loggedIn(t, m)

	m, cmd := send(m, model.NavigateMsg{Route: "app/form?lat=0&lng=-30"})
	m, _ = send(m, findMsg[model.GeocodedMsg](t, collect(cmd)))

	assert.Contains(t, m.View(), "There seems not to be any city on this location")

	m, cmd = send(m, keyPress("enter"))
	assert.Nil(t, cmd)
	assert.Empty(t, st.State().Cities)
}

func TestFormWithoutCoordinatesAsksForPin(t *testing.T) {
	geocoder := parisGeocoder()
	m, _, _ := newTestApp(t, geocoder)
	m = loggedIn(t, m)

	m, cmd := send(m, model.NavigateMsg{Route: "app/form?lat=48.85"})

	assert.Nil(t, cmd)
	assert.Equal(t, model.ScreenCityForm, m.screen)
	assert.Contains(t, m.View(), "Start by dropping a pin")
	assert.Zero(t, geocoder.calls)
}

func TestFormCancelGoesBack(t *testing.T) {
	m, _, _ := newTestApp(t, parisGeocoder())
	m = loggedIn(t, m)
	m, _ = send(m, model.NavigateMsg{Route: routeCountries})
	m, _ = send(m, model.NavigateMsg{Route: "app/form?lat=1&lng=2"})

	m, cmd := send(m, keyPress("esc"))
	m, _ = send(m, findMsg[model.FormCancelledMsg](t, collect(cmd)))

	assert.Equal(t, model.ScreenCountries, m.screen)
}

func TestCityDetailSelectAndDelete(t *testing.T) {
	m, st, _ := newTestApp(t, nil)
	m = loggedIn(t, m)
	city := st.CreateCity(model.NewCity{
		CityName: "Lisbon",
		Country:  "Portugal",
		Emoji:    "🇵🇹",
		Date:     time.Date(2027, 5, 1, 0, 0, 0, 0, time.UTC),
		Position: model.Position{Lat: 38.72, Lng: -9.14},
	})

	m, cmd := send(m, model.NavigateMsg{Route: session.CityRoute(city)})
	require.Equal(t, model.ScreenCityDetail, m.screen)
	m, _ = send(m, findMsg[model.CitySelectedMsg](t, collect(cmd)))

	assert.True(t, m.cityDetail.found)
	assert.Equal(t, city.Position, m.mapCenter)
	assert.Equal(t, city.ID, st.State().CurrentCity.ID)
	assert.Contains(t, m.View(), "Lisbon")

	m, cmd = send(m, keyPress("d"))
	m, _ = send(m, findMsg[model.CityDeletedMsg](t, collect(cmd)))

	assert.Equal(t, model.ScreenCities, m.screen)
	assert.Empty(t, st.State().Cities)
}

func TestCityDetailUnknownID(t *testing.T) {
	m, _, _ := newTestApp(t, nil)
	m = loggedIn(t, m)

	m, cmd := send(m, model.NavigateMsg{Route: "app/cities/missing"})
	m, _ = send(m, findMsg[model.CitySelectedMsg](t, collect(cmd)))

	assert.True(t, m.cityDetail.resolved)
	assert.False(t, m.cityDetail.found)
	assert.Contains(t, m.View(), "City not found")
}

func TestStateUpdatesRefreshLists(t *testing.T) {
	m, _, _ := newTestApp(t, nil)
	m = loggedIn(t, m)

	state := store.State{Cities: []model.City{
		{ID: "1", CityName: "Lisbon", Country: "Portugal", Emoji: "🇵🇹"},
		{ID: "2", CityName: "Porto", Country: "Portugal", Emoji: "🇵🇹"},
		{ID: "3", CityName: "Madrid", Country: "Spain", Emoji: "🇪🇸"},
	}}
	m, _ = send(m, stateMsg{state: state})

	assert.Len(t, m.cities.allRows, 3)
	assert.Len(t, m.countries.allRows, 2)

	m, _ = send(m, keyPress("o"))
	assert.Equal(t, model.ScreenCountries, m.screen)
	assert.Contains(t, m.View(), "Spain")
}

func TestUnknownRouteFallsBackToCities(t *testing.T) {
	m, _, _ := newTestApp(t, nil)
	m = loggedIn(t, m)

	m, _ = send(m, model.NavigateMsg{Route: "app/nowhere"})

	assert.Equal(t, model.ScreenCities, m.screen)
	assert.Equal(t, routeCities, m.route)
}

func TestHelpToggle(t *testing.T) {
	m, _, _ := newTestApp(t, nil)
	m = loggedIn(t, m)

	m, _ = send(m, keyPress("?"))
	assert.True(t, m.showingHelp)
	assert.True(t, strings.Contains(m.View(), "Drop a pin"))

	m, _ = send(m, keyPress("esc"))
	assert.False(t, m.showingHelp)
}
