package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"worldwise/internal/model"
	"worldwise/internal/util"
)

// CitiesModel represents the cities list screen.
type CitiesModel struct {
	table[model.City]
	currentID string
}

// NewCitiesModel creates a new cities model.
func NewCitiesModel(cities []model.City) *CitiesModel {
	m := &CitiesModel{
		table: newTable([]tableColumn{
			{key: "city", label: "city", width: 24},
			{key: "country", label: "country", width: 18},
			{key: "date", label: "date", width: 20},
			{key: "position", label: "position", width: 18},
			{key: "notes", label: "notes", width: 24},
		}, cityValue),
	}
	m.SetRows(cities)
	return m
}

// SetCurrent marks the city the store considers current.
func (m *CitiesModel) SetCurrent(id string) {
	m.currentID = id
}

func cityValue(c model.City, key string) string {
	switch key {
	case "city":
		return c.CityName
	case "country":
		return c.Country
	case "date":
		if c.Date.IsZero() {
			return ""
		}
		return c.Date.Format("2006-01-02")
	case "position":
		return util.FormatPosition(c.Position)
	case "notes":
		return c.Notes
	default:
		return ""
	}
}

// View renders the cities list.
func (m *CitiesModel) View(width, height int) string {
	if len(m.allRows) == 0 {
		emptyMsg := `    👋 Add your first city by dropping a pin.
    Press  p  and enter a latitude and longitude.`
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
		city := m.rows[i]
		style := NormalRowStyle
		if i%2 == 1 {
			style = style.Background(ColorStripe)
		}
		if city.ID == m.currentID {
			style = CurrentRowStyle
		}
		if i == m.cursor {
			style = SelectedRowStyle
		}

		cells := make([]string, 0, len(visible))
		for _, idx := range visible {
			col := m.columns[idx]
			switch col.key {
			case "city":
				cells = append(cells, city.Emoji+" "+util.TruncateString(city.CityName, col.width-5))
			case "country":
				cells = append(cells, util.TruncateString(city.Country, col.width-2))
			case "date":
				cells = append(cells, util.FormatDate(city.Date))
			case "position":
				cells = append(cells, util.FormatPosition(city.Position))
			case "notes":
				cells = append(cells, util.TruncateString(city.Notes, col.width-2))
			}
		}
		rows = append(rows, renderTableRow(cells, widths, style))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, header, strings.Join(rows, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, content, "", m.status("cities"))
}
