package ui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"worldwise/internal/model"
	"worldwise/internal/session"
)

var errInvalidPin = errors.New("enter a pin as \"lat, lng\" with lat in [-90, 90] and lng in [-180, 180]")

type pinCancelledMsg struct{}

// PinPromptModel takes the coordinate of a dropped pin.
type PinPromptModel struct {
	input textinput.Model
	error string
}

// NewPinPromptModel creates the prompt, starting at center.
func NewPinPromptModel(center model.Position) *PinPromptModel {
	in := textinput.New()
	in.Placeholder = "48.8566, 2.3522"
	in.CharLimit = 64
	in.Prompt = "pin> "
	in.SetValue(formatPin(center))
	in.CursorEnd()
	in.Focus()
	return &PinPromptModel{input: in}
}

// Update handles all messages.
func (m PinPromptModel) Update(msg tea.Msg) (PinPromptModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "esc":
		return m, func() tea.Msg { return pinCancelledMsg{} }
	case "enter":
		pos, err := ParsePin(m.input.Value())
		if err != nil {
			m.error = err.Error()
			return m, nil
		}
		route := session.FormRoute(pos)
		return m, func() tea.Msg { return model.NavigateMsg{Route: route} }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(keyMsg)
	return m, cmd
}

// View renders the prompt.
func (m *PinPromptModel) View(width int) string {
	lines := []string{
		LabelStyle.Render("Drop a pin") + HelpDescStyle.Render("  enter to add a city there, esc to cancel"),
		m.input.View(),
	}
	if m.error != "" {
		lines = append(lines, ErrorStyle.Render(m.error))
	}
	return ActiveBorderStyle.Padding(0, 1).Width(max(20, width-2)).Render(strings.Join(lines, "\n"))
}

// ParsePin reads "lat, lng" (comma or whitespace separated).
func ParsePin(s string) (model.Position, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(parts) != 2 {
		return model.Position{}, errInvalidPin
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return model.Position{}, errInvalidPin
	}
	lng, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return model.Position{}, errInvalidPin
	}
	pos := model.Position{Lat: lat, Lng: lng}
	if !pos.Valid() {
		return model.Position{}, errInvalidPin
	}
	return pos, nil
}

func formatPin(pos model.Position) string {
	return strconv.FormatFloat(pos.Lat, 'f', -1, 64) + ", " + strconv.FormatFloat(pos.Lng, 'f', -1, 64)
}
