package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"worldwise/internal/auth"
)

type loggedInMsg struct{}

// LoginModel is the public entry screen.
type LoginModel struct {
	gate         *auth.Gate
	keys         FormKeyMap
	inputs       []textinput.Model
	focusedField int
	error        string
}

// NewLoginModel creates the login form, prefilled with email and password.
func NewLoginModel(gate *auth.Gate, email, password string) *LoginModel {
	inputs := make([]textinput.Model, 2)

	inputs[0] = textinput.New()
	inputs[0].Placeholder = "jack@example.com"
	inputs[0].CharLimit = 200
	inputs[0].SetValue(email)
	inputs[0].Focus()

	inputs[1] = textinput.New()
	inputs[1].Placeholder = "password"
	inputs[1].CharLimit = 200
	inputs[1].EchoMode = textinput.EchoPassword
	inputs[1].EchoCharacter = '•'
	inputs[1].SetValue(password)

	return &LoginModel{
		gate:   gate,
		keys:   DefaultFormKeyMap(),
		inputs: inputs,
	}
}

// Update handles all messages.
func (m LoginModel) Update(msg tea.Msg) (LoginModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case keyMsg.String() == "esc":
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Save):
		email := strings.TrimSpace(m.inputs[0].Value())
		password := m.inputs[1].Value()
		if err := m.gate.Login(email, password); err != nil {
			m.error = err.Error()
			return m, nil
		}
		m.error = ""
		return m, func() tea.Msg { return loggedInMsg{} }
	case key.Matches(keyMsg, m.keys.NextField), key.Matches(keyMsg, m.keys.PrevField):
		m.inputs[m.focusedField].Blur()
		m.focusedField = (m.focusedField + 1) % len(m.inputs)
		m.inputs[m.focusedField].Focus()
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focusedField], cmd = m.inputs[m.focusedField].Update(keyMsg)
	return m, cmd
}

// View renders the login form.
func (m *LoginModel) View(width, height int) string {
	fields := []string{
		LabelStyle.Render("WorldWise") + HelpDescStyle.Render("  You travel the world. WorldWise keeps track of your adventures."),
		renderFormField("Email address", m.inputs[0], m.focusedField == 0),
		renderFormField("Password", m.inputs[1], m.focusedField == 1),
	}
	if m.error != "" {
		fields = append(fields, ErrorStyle.Render(m.error))
	}

	card := PanelStyle.Width(min(72, max(40, width-6))).Render(strings.Join(fields, "\n\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, card)
}
