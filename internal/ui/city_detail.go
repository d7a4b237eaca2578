package ui

import (
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"worldwise/internal/model"
	"worldwise/internal/util"
)

const wikipediaBaseURL = "https://en.wikipedia.org/wiki/"

// CityDetailModel represents the city detail screen. It shows the store's
// current city once the selection for id has been committed.
type CityDetailModel struct {
	id       string
	resolved bool
	found    bool
	city     model.City
}

// NewCityDetailModel creates a detail model waiting for the selection of id.
func NewCityDetailModel(id string) *CityDetailModel {
	return &CityDetailModel{id: id}
}

// Resolve records the committed selection. Selections of another id are ignored.
func (m *CityDetailModel) Resolve(msg model.CitySelectedMsg) bool {
	if msg.ID != m.id {
		return false
	}
	m.resolved = true
	m.found = msg.Found
	m.city = msg.City
	return true
}

// View renders the detail. loading comes from the store state.
func (m *CityDetailModel) View(width, height int, loading bool, spin string) string {
	if loading || !m.resolved {
		return EmptyStateStyle.Width(width).Height(height).Render(spin + " Loading city...")
	}
	if !m.found {
		return EmptyStateStyle.Width(width).Height(height).Render("City not found. Press h to go back.")
	}

	c := m.city
	var sections []string

	sections = append(sections, strings.Join([]string{
		LabelStyle.Render("City name"),
		NormalRowStyle.Bold(true).Render(c.Emoji + " " + c.CityName),
	}, "\n"))

	sections = append(sections, strings.Join([]string{
		LabelStyle.Render("You went to " + c.CityName + " on"),
		NormalRowStyle.Render(util.FormatDateLong(c.Date)),
	}, "\n"))

	if c.Notes != "" {
		sections = append(sections, strings.Join([]string{
			LabelStyle.Render("Your notes"),
			NormalRowStyle.Render(c.Notes),
		}, "\n"))
	}

	sections = append(sections, strings.Join([]string{
		LabelStyle.Render("Learn more"),
		HelpKeyStyle.Render("Check out " + c.CityName + " on Wikipedia → " + wikipediaURL(c.CityName)),
	}, "\n"))

	divider := lipgloss.NewStyle().
		Foreground(ColorMuted).
		Render(strings.Repeat("─", max(0, width-8)))
	sections = append(sections, divider, HelpDescStyle.Render("Pinned at "+util.FormatPosition(c.Position)))

	content := PanelStyle.
		Width(width - 4).
		Render(strings.Join(sections, "\n\n"))

	shortcuts := lipgloss.NewStyle().
		Width(width - 4).
		Align(lipgloss.Right).
		Render(HelpDescStyle.Render("d delete  h back"))

	return lipgloss.JoinVertical(lipgloss.Left, shortcuts, content)
}

func wikipediaURL(cityName string) string {
	return wikipediaBaseURL + url.PathEscape(cityName)
}
