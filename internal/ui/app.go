package ui

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"worldwise/internal/auth"
	"worldwise/internal/model"
	"worldwise/internal/session"
	"worldwise/internal/store"
	"worldwise/internal/util"
)

const (
	routeLogin     = "/"
	routeCities    = "app/cities"
	routeCountries = "app/countries"
	maxHistory     = 50
)

// defaultMapCenter is where the map starts before any pin or city is opened.
var defaultMapCenter = model.Position{Lat: 40, Lng: 0}

// Options wires the root model. Geocoder is nil when reverse geocoding is
// disabled; the form then asks for the country by hand.
type Options struct {
	Store         *store.Store
	Geocoder      Geocoder
	Gate          *auth.Gate
	Prefs         PrefsStore
	Logger        *slog.Logger
	LoginEmail    string
	LoginPassword string
}

type stateMsg struct {
	state store.State
}

// Model is the root Bubble Tea model.
type Model struct {
	store         *store.Store
	geocoder      Geocoder
	gate          *auth.Gate
	prefsWriter   *prefsWriter
	logger        *slog.Logger
	loginEmail    string
	loginPassword string

	route     string
	history   []string
	coords    session.Coordinates
	mapCenter model.Position
	screen    model.Screen
	mode      model.Mode
	gState    GState

	state    store.State
	updates  <-chan store.State
	spinner  spinner.Model
	spinning bool

	width  int
	height int

	error       string
	info        string
	showingHelp bool
	columnJump  bool

	// Screen models
	login      *LoginModel
	cities     *CitiesModel
	countries  *CountriesModel
	cityDetail *CityDetailModel
	cityForm   *CityFormModel
	pinPrompt  *PinPromptModel

	keys  KeyMap
	prefs UIPreferences
}

// New creates a new root model showing the login screen.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	updates, _ := opts.Store.Subscribe()
	state := opts.Store.State()
	prefs := loadUIPreferences(opts.Prefs)

	cities := NewCitiesModel(state.Cities)
	cities.ApplyPrefs(prefs.Cities)
	cities.SetCurrent(state.CurrentCity.ID)
	countries := NewCountriesModel(state.Cities)
	countries.ApplyPrefs(prefs.Countries)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		store:         opts.Store,
		geocoder:      opts.Geocoder,
		gate:          opts.Gate,
		logger:        logger.With(slog.String("component", "ui")),
		loginEmail:    opts.LoginEmail,
		loginPassword: opts.LoginPassword,
		mapCenter:     defaultMapCenter,
		gState:        GStateIdle,
		state:         state,
		updates:       updates,
		spinner:       sp,
		cities:        cities,
		countries:     countries,
		keys:          DefaultKeyMap(),
		prefs:         prefs,
	}
	m.prefsWriter = newPrefsWriter(opts.Prefs, m.logger)
	m, _ = m.show(routeLogin)
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForState(m.updates), textinput.Blink)
}

// Update handles messages. Every transition ends with the sign-in check so an
// app screen is never left showing to a signed-out user.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	return next.guard(cmd)
}

func (m Model) guard(cmd tea.Cmd) (Model, tea.Cmd) {
	if m.screen == model.ScreenLogin {
		return m, cmd
	}
	var redirect tea.Cmd
	auth.Protect(m.gate, func() {
		m.history = nil
		m, redirect = m.show(routeLogin)
	}, func() string { return "" })
	if redirect == nil {
		return m, cmd
	}
	return m, tea.Batch(cmd, redirect)
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stateMsg:
		m.applyState(msg.state)
		cmds := []tea.Cmd{waitForState(m.updates)}
		if m.state.IsLoading && !m.spinning {
			m.spinning = true
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if msg.ID == m.spinner.ID() {
			if !m.state.IsLoading {
				m.spinning = false
				return m, nil
			}
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m.updateForm(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case loggedInMsg:
		m.info = ""
		return m.navigate(routeCities)

	case model.NavigateMsg:
		return m.navigate(msg.Route)

	case pinCancelledMsg:
		m.pinPrompt = nil
		m.mode = model.ModeNav
		return m, nil

	case model.GeocodedMsg:
		return m.updateForm(msg)

	case model.CityCreatedMsg:
		m.info = fmt.Sprintf("Added %s %s", msg.City.Emoji, msg.City.CityName)
		if m.screen == model.ScreenCityForm {
			return m.navigate(routeCities)
		}
		return m, nil

	case model.CitySelectedMsg:
		if m.cityDetail != nil && m.cityDetail.Resolve(msg) && msg.Found {
			m.mapCenter = msg.City.Position
		}
		return m, nil

	case model.CityDeletedMsg:
		m.info = "City deleted"
		if m.screen == model.ScreenCityDetail && m.cityDetail != nil && m.cityDetail.id == msg.ID {
			return m.navigate(routeCities)
		}
		return m, nil

	case model.FormCancelledMsg:
		return m.back()

	case model.ErrorMsg:
		m.error = msg.Err.Error()
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.mode == model.ModeNav && m.columnJump {
		if msg.String() == "esc" {
			m.columnJump = false
			m.info = ""
			return m, nil
		}
		if n, err := strconv.Atoi(msg.String()); err == nil {
			if t := m.currentTable(); t != nil && t.JumpToColumn(n) {
				m.columnJump = false
				m.info = fmt.Sprintf("Jumped to column %d", n)
				return m, m.persistCurrentTablePrefs()
			}
			m.info = fmt.Sprintf("Column %d unavailable", n)
			return m, nil
		}
	}

	if m.mode == model.ModeNav && key.Matches(msg, m.keys.Help) {
		m.showingHelp = !m.showingHelp
		return m, nil
	}
	if m.showingHelp {
		if msg.String() == "esc" {
			m.showingHelp = false
		}
		return m, nil
	}

	if m.pinPrompt != nil {
		prompt, cmd := m.pinPrompt.Update(msg)
		m.pinPrompt = &prompt
		return m, cmd
	}

	switch m.screen {
	case model.ScreenLogin:
		if m.login != nil {
			login, cmd := m.login.Update(msg)
			m.login = &login
			return m, cmd
		}
		return m, nil
	case model.ScreenCityForm:
		return m.updateForm(msg)
	}
	return m.handleNavMode(msg)
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.cityForm == nil {
		return m, nil
	}
	form, cmd := m.cityForm.Update(msg)
	m.cityForm = &form
	return m, cmd
}

// navigate moves to route and records the current route for back.
func (m Model) navigate(route string) (Model, tea.Cmd) {
	if m.route != "" && m.route != route && m.route != routeLogin && session.Path(m.route) != "app/form" {
		// Model copies must not share a backing array.
		m.history = append(m.history[:len(m.history):len(m.history)], m.route)
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
	}
	return m.show(route)
}

// back returns to the previous route, or the cities list.
func (m Model) back() (Model, tea.Cmd) {
	for len(m.history) > 0 {
		prev := m.history[len(m.history)-1]
		m.history = m.history[:len(m.history)-1]
		if prev != m.route {
			return m.show(prev)
		}
	}
	return m.show(routeCities)
}

// show switches to the screen for route. The coordinate session is derived
// here, once per navigation.
func (m Model) show(route string) (Model, tea.Cmd) {
	m.route = route
	m.coords = session.FromRoute(route)
	if pos, ok := m.coords.Position(); ok {
		m.mapCenter = pos
	}
	m.error = ""
	m.columnJump = false
	m.pinPrompt = nil
	m.cityForm = nil
	m.cityDetail = nil
	m.login = nil
	m.mode = model.ModeNav

	path := strings.Trim(session.Path(route), "/")
	switch {
	case path == "":
		m.route = routeLogin
		m.screen = model.ScreenLogin
		m.mode = model.ModeInsert
		m.login = NewLoginModel(m.gate, m.loginEmail, m.loginPassword)
		return m, textinput.Blink

	case path == routeCountries:
		m.screen = model.ScreenCountries

	case strings.HasPrefix(path, routeCities+"/"):
		id, err := url.PathUnescape(strings.TrimPrefix(path, routeCities+"/"))
		if err != nil || id == "" {
			return m.show(routeCities)
		}
		m.screen = model.ScreenCityDetail
		m.cityDetail = NewCityDetailModel(id)
		return m, selectCityCmd(m.store, id)

	case path == "app/form":
		m.screen = model.ScreenCityForm
		m.mode = model.ModeInsert
		m.cityForm = NewCityFormModel(m.coords, m.geocoder, m.store)
		return m, m.cityForm.Init()

	default:
		m.route = routeCities
		m.screen = model.ScreenCities
	}
	return m, nil
}

func (m *Model) applyState(st store.State) {
	m.state = st
	m.cities.SetRows(st.Cities)
	m.cities.SetCurrent(st.CurrentCity.ID)
	m.countries.SetCities(st.Cities)
}

// handleNavMode handles navigation mode input.
func (m Model) handleNavMode(msg tea.KeyMsg) (Model, tea.Cmd) {
	if t := m.currentTable(); t != nil {
		switch {
		case key.Matches(msg, m.keys.NextColumn):
			t.NextColumn()
			return m, m.persistCurrentTablePrefs()
		case key.Matches(msg, m.keys.PrevColumn):
			t.PrevColumn()
			return m, m.persistCurrentTablePrefs()
		case key.Matches(msg, m.keys.ColumnJump):
			m.columnJump = true
			m.info = "Jump to column: press 1-9 (esc to cancel)"
			return m, nil
		case key.Matches(msg, m.keys.SortAsc):
			t.SortActiveColumn(false)
			m.info = "Sorted ascending"
			return m, m.persistCurrentTablePrefs()
		case key.Matches(msg, m.keys.SortDesc):
			t.SortActiveColumn(true)
			m.info = "Sorted descending"
			return m, m.persistCurrentTablePrefs()
		case key.Matches(msg, m.keys.HideColumn):
			if !t.HideActiveColumn() {
				m.info = "Cannot hide last visible column"
				return m, nil
			}
			m.info = "Column hidden"
			return m, m.persistCurrentTablePrefs()
		case key.Matches(msg, m.keys.ShowColumns):
			t.ShowAllColumns()
			m.info = "All columns shown"
			return m, m.persistCurrentTablePrefs()
		case key.Matches(msg, m.keys.FilterValue):
			if !t.FilterBySelectedValue() {
				m.info = "No filterable value in selected cell"
				return m, nil
			}
			m.info = "Filter applied from selected value"
			return m, nil
		case key.Matches(msg, m.keys.ClearFilter):
			if t.ClearFilter() {
				m.info = "Filter cleared"
			}
			return m, nil
		}
	}

	// Handle "gg" state machine
	if key.Matches(msg, m.keys.Top) {
		if m.gState == GStateIdle {
			m.gState = GStateFirstG
			return m, nil
		}
		m.gState = GStateIdle
		if l := m.currentList(); l != nil {
			l.JumpToTop()
		}
		return m, nil
	}
	m.gState = GStateIdle

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.DropPin):
		m.pinPrompt = NewPinPromptModel(m.mapCenter)
		m.mode = model.ModeInsert
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Logout):
		m.gate.Logout()
		m.info = ""
		m.history = nil
		return m.show(routeLogin)
	case key.Matches(msg, m.keys.Cities):
		return m.navigate(routeCities)
	case key.Matches(msg, m.keys.Countries):
		return m.navigate(routeCountries)
	case key.Matches(msg, m.keys.NextTab), key.Matches(msg, m.keys.PrevTab):
		switch m.screen {
		case model.ScreenCities:
			return m.navigate(routeCountries)
		case model.ScreenCountries:
			return m.navigate(routeCities)
		}
	}

	if l := m.currentList(); l != nil {
		switch {
		case key.Matches(msg, m.keys.Down):
			l.MoveDown()
			return m, nil
		case key.Matches(msg, m.keys.Up):
			l.MoveUp()
			return m, nil
		case key.Matches(msg, m.keys.Bottom):
			l.JumpToBottom()
			return m, nil
		case key.Matches(msg, m.keys.HalfPageDown):
			l.HalfPageDown(m.height / 2)
			return m, nil
		case key.Matches(msg, m.keys.HalfPageUp):
			l.HalfPageUp(m.height / 2)
			return m, nil
		}
	}

	switch m.screen {
	case model.ScreenCities:
		return m.handleCitiesNav(msg)
	case model.ScreenCityDetail:
		return m.handleCityDetailNav(msg)
	}
	return m, nil
}

func (m Model) handleCitiesNav(msg tea.KeyMsg) (Model, tea.Cmd) {
	city, ok := m.cities.Selected()
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Select):
		return m.navigate(session.CityRoute(city))
	case key.Matches(msg, m.keys.Delete):
		return m, deleteCityCmd(m.store, city.ID)
	}
	return m, nil
}

func (m Model) handleCityDetailNav(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m.back()
	case key.Matches(msg, m.keys.Delete):
		if m.cityDetail != nil && m.cityDetail.found {
			return m, deleteCityCmd(m.store, m.cityDetail.id)
		}
	}
	return m, nil
}

type listNavigator interface {
	MoveDown()
	MoveUp()
	JumpToTop()
	JumpToBottom()
	HalfPageDown(pageSize int)
	HalfPageUp(pageSize int)
}

func (m *Model) currentList() listNavigator {
	switch m.screen {
	case model.ScreenCities:
		return m.cities
	case model.ScreenCountries:
		return m.countries
	}
	return nil
}

func (m *Model) currentTable() tableController {
	switch m.screen {
	case model.ScreenCities:
		return m.cities
	case model.ScreenCountries:
		return m.countries
	}
	return nil
}

func (m *Model) persistCurrentTablePrefs() tea.Cmd {
	switch m.screen {
	case model.ScreenCities:
		m.prefs.Cities = m.cities.Prefs()
	case model.ScreenCountries:
		m.prefs.Countries = m.countries.Prefs()
	}
	return m.prefsWriter.save(m.prefs)
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if m.showingHelp {
		return RenderFullHelp(m.width, m.height)
	}

	showTabs := m.screen == model.ScreenCities || m.screen == model.ScreenCountries

	// Header and footer take 2 lines each; tabs 2 more when shown.
	contentHeight := m.height - 4
	if showTabs {
		contentHeight -= 2
	}
	if m.error != "" {
		contentHeight--
	}
	if m.info != "" {
		contentHeight--
	}
	if m.pinPrompt != nil {
		contentHeight -= 4
	}
	contentHeight = max(3, contentHeight)

	var content string
	var breadcrumbParts []string
	if m.screen == model.ScreenLogin {
		breadcrumbParts = []string{"Log in"}
		if m.login != nil {
			content = m.login.View(m.width, contentHeight)
		}
	} else {
		content = auth.Protect(m.gate, nil, func() string {
			var out string
			out, breadcrumbParts = m.renderApp(contentHeight)
			return out
		})
	}

	parts := []string{m.renderHeader(breadcrumbParts)}
	if showTabs {
		parts = append(parts, renderTabs(m.screen, m.width))
	}
	if m.error != "" {
		parts = append(parts, ErrorStyle.Width(m.width).Render("Error: "+m.error))
	}
	if m.info != "" {
		parts = append(parts, SuccessStyle.Width(m.width).Render(m.info))
	}
	if m.pinPrompt != nil {
		parts = append(parts, m.pinPrompt.View(m.width))
	}

	// Ensure content fills the available height to anchor footer at bottom
	parts = append(parts,
		lipgloss.NewStyle().Width(m.width).Height(contentHeight).Render(content),
		RenderHelp(m.screen, m.mode, m.width),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderApp(height int) (string, []string) {
	switch m.screen {
	case model.ScreenCities:
		return m.cities.View(m.width, height), []string{"Cities"}
	case model.ScreenCountries:
		return m.countries.View(m.width, height), []string{"Countries"}
	case model.ScreenCityDetail:
		crumbs := []string{"Cities", "Detail"}
		if m.cityDetail == nil {
			return "", crumbs
		}
		if m.cityDetail.found {
			crumbs[1] = m.cityDetail.city.CityName
		}
		return m.cityDetail.View(m.width, height, m.state.IsLoading, m.spinner.View()), crumbs
	case model.ScreenCityForm:
		if m.cityForm == nil {
			return "", []string{"Cities", "Add"}
		}
		return m.cityForm.View(m.width, height), []string{"Cities", "Add"}
	}
	return "", nil
}

func renderTabs(screen model.Screen, width int) string {
	tabs := []struct {
		name   string
		screen model.Screen
	}{
		{"Cities", model.ScreenCities},
		{"Countries", model.ScreenCountries},
	}

	var tabStrings []string
	for _, tab := range tabs {
		tabStyle := lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(ColorMuted)

		if screen == tab.screen {
			tabStyle = tabStyle.
				Foreground(ColorText).
				Bold(true).
				Underline(true)
		}

		tabStrings = append(tabStrings, tabStyle.Render(tab.name))
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Left, tabStrings...)
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 2).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		Render(tabBar)
}

func (m Model) renderHeader(breadcrumbParts []string) string {
	title := HeaderStyle.Render("worldwise")

	var breadcrumb string
	if len(breadcrumbParts) > 0 {
		separator := BreadcrumbStyle.Render(" › ")
		parts := make([]string, len(breadcrumbParts))
		for i, part := range breadcrumbParts {
			if i == len(breadcrumbParts)-1 {
				parts[i] = BreadcrumbActiveStyle.Render(part)
			} else {
				parts[i] = BreadcrumbStyle.Render(part)
			}
		}
		breadcrumb = separator + strings.Join(parts, separator)
	}

	left := "  " + title + breadcrumb

	var right []string
	if m.state.IsLoading {
		right = append(right, m.spinner.View())
	}
	if user, ok := m.signedInUser(); ok {
		right = append(right, user.Avatar+" Welcome, "+user.Name)
	}
	right = append(right, "⌖ "+util.FormatPosition(m.mapCenter))
	rightStr := BreadcrumbStyle.Render(strings.Join(right, "  ")) + "  "

	padding := max(0, m.width-lipgloss.Width(left)-lipgloss.Width(rightStr))
	return TitleStyle.Width(m.width).Render(left + strings.Repeat(" ", padding) + rightStr)
}

func (m Model) signedInUser() (auth.User, bool) {
	if m.gate == nil {
		return auth.User{}, false
	}
	return m.gate.User()
}

func waitForState(updates <-chan store.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return nil
		}
		return stateMsg{state: st}
	}
}

func selectCityCmd(st *store.Store, id string) tea.Cmd {
	return func() tea.Msg {
		city, found := st.SelectCity(id)
		return model.CitySelectedMsg{ID: id, City: city, Found: found}
	}
}

func deleteCityCmd(st *store.Store, id string) tea.Cmd {
	return func() tea.Msg {
		st.DeleteCity(id)
		return model.CityDeletedMsg{ID: id}
	}
}
