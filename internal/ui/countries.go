package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"worldwise/internal/model"
)

type countryRow struct {
	model.Country
	cities int
}

// CountriesModel represents the countries list screen.
type CountriesModel struct {
	table[countryRow]
}

// NewCountriesModel creates a new countries model.
func NewCountriesModel(cities []model.City) *CountriesModel {
	m := &CountriesModel{
		table: newTable([]tableColumn{
			{key: "country", label: "country", width: 28},
			{key: "cities", label: "cities", width: 10},
		}, countryValue),
	}
	m.SetCities(cities)
	return m
}

// SetCities rebuilds the rows from the city collection.
func (m *CountriesModel) SetCities(cities []model.City) {
	counts := make(map[string]int, len(cities))
	for _, c := range cities {
		counts[c.Country]++
	}
	countries := model.Countries(cities)
	rows := make([]countryRow, 0, len(countries))
	for _, c := range countries {
		rows = append(rows, countryRow{Country: c, cities: counts[c.Country]})
	}
	m.SetRows(rows)
}

func countryValue(r countryRow, key string) string {
	switch key {
	case "country":
		return r.Country.Country
	case "cities":
		// Zero-padded so string sorting orders numerically.
		return strconv.Itoa(100000 + r.cities)
	default:
		return ""
	}
}

// View renders the countries list.
func (m *CountriesModel) View(width, height int) string {
	if len(m.allRows) == 0 {
		emptyMsg := `    👋 Add your first city by dropping a pin.
    Countries appear here once you have visited a city.`
		return EmptyStateStyle.
			Width(width).
			Height(height).
			Render(emptyMsg)
	}

	visible, widths, headers := m.layout(width)
	header := renderTableRow(headers, widths, TableHeaderStyle)

	visibleHeight := height - 3
	var rows []string
	for i := m.offset; i < len(m.rows) && i < m.offset+visibleHeight; i++ {
		row := m.rows[i]
		style := NormalRowStyle
		if i%2 == 1 {
			style = style.Background(ColorStripe)
		}
		if i == m.cursor {
			style = SelectedRowStyle
		}

		cells := make([]string, 0, len(visible))
		for _, idx := range visible {
			switch m.columns[idx].key {
			case "country":
				cells = append(cells, row.Emoji+" "+row.Country.Country)
			case "cities":
				cells = append(cells, strconv.Itoa(row.cities))
			}
		}
		rows = append(rows, renderTableRow(cells, widths, style))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, header, strings.Join(rows, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, content, "", m.status("countries"))
}
