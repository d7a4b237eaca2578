package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"worldwise/internal/model"
)

// RenderHelp renders context-sensitive help footer.
func RenderHelp(screen model.Screen, mode model.Mode, width int) string {
	switch screen {
	case model.ScreenLogin:
		return renderLoginHelp(width)
	case model.ScreenCityForm:
		return renderFormHelp(width)
	}
	if mode == model.ModeInsert {
		return renderPinHelp(width)
	}

	switch screen {
	case model.ScreenCities:
		return renderCitiesHelp(width)
	case model.ScreenCountries:
		return renderCountriesHelp(width)
	case model.ScreenCityDetail:
		return renderCityDetailHelp(width)
	default:
		return renderDefaultHelp(width)
	}
}

func renderCitiesHelp(width int) string {
	keys := []string{
		helpKey("j/k", "navigate"),
		helpKey("enter", "open"),
		helpKey("d", "delete"),
		helpKey("p", "drop pin"),
		helpKey("o", "countries"),
		helpKey("tab", "next col"),
		helpKey("s/S", "sort"),
		helpKey("n/N", "filter"),
		helpKey("?", "help"),
	}
	return renderHelpLine(keys, width)
}

func renderCountriesHelp(width int) string {
	keys := []string{
		helpKey("j/k", "navigate"),
		helpKey("c", "cities"),
		helpKey("p", "drop pin"),
		helpKey("tab", "next col"),
		helpKey("s/S", "sort"),
		helpKey("?", "help"),
	}
	return renderHelpLine(keys, width)
}

func renderCityDetailHelp(width int) string {
	keys := []string{
		helpKey("h/esc", "back"),
		helpKey("d", "delete"),
		helpKey("p", "drop pin"),
	}
	return renderHelpLine(keys, width)
}

func renderFormHelp(width int) string {
	keys := []string{
		helpKey("tab", "next field"),
		helpKey("shift+tab", "prev field"),
		helpKey("enter/ctrl+s", "add"),
		helpKey("esc", "back"),
	}
	return renderHelpLine(keys, width)
}

func renderPinHelp(width int) string {
	keys := []string{
		helpKey("enter", "add city at pin"),
		helpKey("esc", "cancel"),
	}
	return renderHelpLine(keys, width)
}

func renderLoginHelp(width int) string {
	keys := []string{
		helpKey("tab", "next field"),
		helpKey("enter", "log in"),
		helpKey("esc", "quit"),
	}
	return renderHelpLine(keys, width)
}

func renderDefaultHelp(width int) string {
	keys := []string{
		helpKey("j/k", "navigate"),
		helpKey("h/l", "back/select"),
		helpKey("q", "quit"),
	}
	return renderHelpLine(keys, width)
}

func helpKey(key, desc string) string {
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(desc)
}

func renderHelpLine(keys []string, width int) string {
	line := strings.Join(keys, "  ")
	return FooterStyle.Width(width).Render(line)
}

// RenderFullHelp renders the full help screen.
func RenderFullHelp(width, height int) string {
	content := lipgloss.NewStyle().
		Width(width-4).
		Height(height-6).
		Padding(1, 2)

	sections := []string{
		titleSection("Navigation"),
		helpSection([]helpItem{
			{"j / ↓", "Move down"},
			{"k / ↑", "Move up"},
			{"h / esc / b", "Go back"},
			{"l / enter", "Open city"},
			{"← / →", "Switch between cities and countries"},
			{"c / o", "Go to cities / countries"},
			{"gg", "Jump to top"},
			{"G", "Jump to bottom"},
			{"ctrl+d", "Half page down"},
			{"ctrl+u", "Half page up"},
			{"L", "Log out"},
			{"q", "Quit"},
			{"?", "Toggle help"},
		}),
		titleSection("Lists"),
		helpSection([]helpItem{
			{"tab / shift+tab", "Cycle active column"},
			{"/ then 1-9", "Jump to column"},
			{"s / S", "Sort active column asc/desc"},
			{"z / Z", "Hide active column / show all"},
			{"n / N", "Filter by selected value / clear"},
		}),
		titleSection("Cities"),
		helpSection([]helpItem{
			{"p", "Drop a pin and add the city there"},
			{"d", "Delete selected city"},
			{"enter / l", "Open city detail"},
		}),
		titleSection("Add City Form"),
		helpSection([]helpItem{
			{"tab", "Next field"},
			{"shift+tab", "Previous field"},
			{"enter / ctrl+s", "Add city"},
			{"esc", "Back"},
		}),
	}

	helpText := content.Render(strings.Join(sections, "\n\n"))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Width(width).Render("Help"),
		helpText,
		FooterStyle.Width(width).Render(HelpKeyStyle.Render("esc")+" "+HelpDescStyle.Render("close help")),
	)
}

type helpItem struct {
	key  string
	desc string
}

func titleSection(title string) string {
	return LabelStyle.Render(title)
}

func helpSection(items []helpItem) string {
	var lines []string
	for _, item := range items {
		lines = append(lines, "  "+HelpKeyStyle.Render(item.key)+" - "+HelpDescStyle.Render(item.desc))
	}
	return strings.Join(lines, "\n")
}
