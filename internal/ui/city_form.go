package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"worldwise/internal/geocode"
	"worldwise/internal/model"
	"worldwise/internal/session"
	"worldwise/internal/util"
)

const geocodeTimeout = 10 * time.Second

var errCountryRequired = errors.New("country is required")

// Geocoder resolves a pin into a place.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (geocode.Place, error)
}

// CityCreator commits a validated draft.
type CityCreator interface {
	CreateCity(draft model.NewCity) model.City
}

type formField int

const (
	fieldCityName formField = iota
	fieldCountry
	fieldCountryCode
	fieldDate
	fieldNotes
)

// CityFormModel is the add-city form for a dropped pin. With a geocoder the
// city and country come from the pin; without one they are typed in.
type CityFormModel struct {
	creator  CityCreator
	geocoder Geocoder
	keys     FormKeyMap

	position    model.Position
	hasPosition bool
	manual      bool

	geocoding  bool
	geocodeErr string
	country    string
	emoji      string

	fields       []formField
	inputs       []textinput.Model
	focusedField int
	error        string
	saving       bool
	spinner      spinner.Model
}

// NewCityFormModel creates the form for the coordinate in coords.
func NewCityFormModel(coords session.Coordinates, geocoder Geocoder, creator CityCreator) *CityFormModel {
	pos, ok := coords.Position()

	fields := []formField{fieldCityName, fieldDate, fieldNotes}
	if geocoder == nil {
		fields = []formField{fieldCityName, fieldCountry, fieldCountryCode, fieldDate, fieldNotes}
	}

	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		in := textinput.New()
		switch f {
		case fieldCityName:
			in.Placeholder = "City name"
			in.CharLimit = 100
		case fieldCountry:
			in.Placeholder = "Country"
			in.CharLimit = 100
		case fieldCountryCode:
			in.Placeholder = "FR"
			in.CharLimit = 2
		case fieldDate:
			in.Placeholder = "October 31, 2027"
			in.CharLimit = 32
			in.SetValue(time.Now().Format("January 2, 2006"))
		case fieldNotes:
			in.Placeholder = "Your notes..."
			in.CharLimit = 500
		}
		inputs[i] = in
	}
	inputs[0].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &CityFormModel{
		creator:     creator,
		geocoder:    geocoder,
		keys:        DefaultFormKeyMap(),
		position:    pos,
		hasPosition: ok,
		manual:      geocoder == nil,
		geocoding:   ok && geocoder != nil,
		fields:      fields,
		inputs:      inputs,
		spinner:     sp,
	}
}

// Init starts the reverse geocode lookup when the pin is complete.
func (m *CityFormModel) Init() tea.Cmd {
	if !m.hasPosition {
		return nil
	}
	if m.manual {
		return textinput.Blink
	}
	return tea.Batch(m.spinner.Tick, reverseGeocodeCmd(m.geocoder, m.position))
}

func reverseGeocodeCmd(g Geocoder, pos model.Position) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), geocodeTimeout)
		defer cancel()
		place, err := g.ReverseGeocode(ctx, pos.Lat, pos.Lng)
		if err != nil {
			return model.GeocodedMsg{Position: pos, Err: err}
		}
		return model.GeocodedMsg{
			Position: pos,
			CityName: place.CityName,
			Country:  place.Country,
			Emoji:    place.Emoji,
		}
	}
}

// Update handles all messages.
func (m CityFormModel) Update(msg tea.Msg) (CityFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case model.GeocodedMsg:
		if !m.geocoding || msg.Position != m.position {
			return m, nil
		}
		m.geocoding = false
		if msg.Err != nil {
			m.geocodeErr = geocode.Message(msg.Err)
			return m, nil
		}
		m.country = msg.Country
		m.emoji = msg.Emoji
		m.inputs[0].SetValue(msg.CityName)
		return m, textinput.Blink
	case spinner.TickMsg:
		if !m.geocoding && !m.saving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.saving {
		return m, nil
	}

	if key.Matches(keyMsg, m.keys.Cancel) {
		return m, func() tea.Msg { return model.FormCancelledMsg{} }
	}
	if !m.ready() {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Save):
		return m.save()
	case key.Matches(keyMsg, m.keys.NextField):
		m.nextField()
		return m, nil
	case key.Matches(keyMsg, m.keys.PrevField):
		m.prevField()
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focusedField], cmd = m.inputs[m.focusedField].Update(keyMsg)
	return m, cmd
}

// ready reports whether the form fields are editable.
func (m *CityFormModel) ready() bool {
	return m.hasPosition && !m.geocoding && m.geocodeErr == ""
}

func (m *CityFormModel) value(f formField) string {
	for i, field := range m.fields {
		if field == f {
			return strings.TrimSpace(m.inputs[i].Value())
		}
	}
	return ""
}

// Draft builds and validates the city the form would create.
func (m *CityFormModel) Draft() (model.NewCity, error) {
	date, err := util.ParseDateInput(m.value(fieldDate))
	if err != nil {
		return model.NewCity{}, fmt.Errorf("%w (e.g. October 31, 2027)", err)
	}

	country, emoji := m.country, m.emoji
	if m.manual {
		country = m.value(fieldCountry)
		if country == "" {
			return model.NewCity{}, errCountryRequired
		}
		emoji, err = geocode.ConvertToEmoji(m.value(fieldCountryCode))
		if err != nil {
			return model.NewCity{}, err
		}
	}

	draft := model.NewCity{
		CityName: m.value(fieldCityName),
		Country:  country,
		Emoji:    emoji,
		Date:     date,
		Notes:    m.value(fieldNotes),
		Position: m.position,
	}
	if err := draft.Validate(); err != nil {
		return model.NewCity{}, err
	}
	return draft, nil
}

func (m CityFormModel) save() (CityFormModel, tea.Cmd) {
	draft, err := m.Draft()
	if err != nil {
		m.error = err.Error()
		return m, nil
	}

	m.error = ""
	m.saving = true
	creator := m.creator
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return model.CityCreatedMsg{City: creator.CreateCity(draft)}
	})
}

func (m *CityFormModel) nextField() {
	m.inputs[m.focusedField].Blur()
	m.focusedField = (m.focusedField + 1) % len(m.inputs)
	m.inputs[m.focusedField].Focus()
}

func (m *CityFormModel) prevField() {
	m.inputs[m.focusedField].Blur()
	m.focusedField--
	if m.focusedField < 0 {
		m.focusedField = len(m.inputs) - 1
	}
	m.inputs[m.focusedField].Focus()
}

// View renders the form.
func (m *CityFormModel) View(width, height int) string {
	switch {
	case !m.hasPosition:
		return EmptyStateStyle.Width(width).Height(height).
			Render("Start by dropping a pin. Press esc, then p to enter a coordinate.")
	case m.geocoding:
		return EmptyStateStyle.Width(width).Height(height).
			Render(m.spinner.View() + " Looking up the city at " + util.FormatPosition(m.position) + "...")
	case m.geocodeErr != "":
		msg := lipgloss.JoinVertical(lipgloss.Left,
			ErrorStyle.Render("⛔️ "+m.geocodeErr),
			"",
			HelpDescStyle.Render("Press esc to go back."),
		)
		return PanelStyle.Width(width - 4).Render(msg)
	}

	cityName := m.value(fieldCityName)
	if cityName == "" {
		cityName = "this city"
	}

	var rendered []string
	for i, f := range m.fields {
		var label string
		switch f {
		case fieldCityName:
			label = "City name *"
			if m.emoji != "" {
				label += "  " + m.emoji
			}
		case fieldCountry:
			label = "Country *"
		case fieldCountryCode:
			label = "Country code (2 letters) *"
		case fieldDate:
			label = "When did you go to " + cityName + "? *"
		case fieldNotes:
			label = "Notes about your trip to " + cityName
		}
		rendered = append(rendered, renderFormField(label, m.inputs[i], i == m.focusedField))
	}

	rendered = append(rendered, HelpDescStyle.Render("Pin "+util.FormatPosition(m.position)))
	if m.error != "" {
		rendered = append(rendered, ErrorStyle.Render(m.error))
	}
	if m.saving {
		rendered = append(rendered, HelpDescStyle.Render(m.spinner.View()+" Adding city..."))
	}

	return PanelStyle.
		Width(width - 4).
		Height(max(0, height-4)).
		Render(strings.Join(rendered, "\n\n"))
}

func renderFormField(label string, input textinput.Model, focused bool) string {
	style := BorderStyle
	if focused {
		style = ActiveBorderStyle
	}

	field := lipgloss.JoinVertical(
		lipgloss.Left,
		LabelStyle.Render(label),
		input.View(),
	)

	return style.Render(field)
}
