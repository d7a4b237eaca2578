package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// OnboardingSettings records the answers of the first-run setup.
type OnboardingSettings struct {
	Completed        bool `json:"completed"`
	GeocodingEnabled bool `json:"geocoding_enabled"`
}

func onboardingPath(configDir string) string {
	return filepath.Join(configDir, "onboarding.json")
}

func loadOnboardingSettings(configDir string) (OnboardingSettings, error) {
	data, err := os.ReadFile(onboardingPath(configDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return OnboardingSettings{}, nil
		}
		return OnboardingSettings{}, err
	}

	var settings OnboardingSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return OnboardingSettings{}, err
	}
	return settings, nil
}

func saveOnboardingSettings(configDir string, settings OnboardingSettings) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(onboardingPath(configDir), data, 0644)
}

func shouldRunOnboarding(settings OnboardingSettings) bool {
	if settings.Completed {
		return false
	}
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

type onboardingStep int

const (
	stepConsent onboardingStep = iota
	stepDone
)

type onboardingModel struct {
	step     onboardingStep
	enable   bool
	settings OnboardingSettings
	status   string
	width    int
	height   int
}

var (
	obColorMuted  = lipgloss.Color("#AAAAAA")
	obColorText   = lipgloss.Color("#ECECEC")
	obColorAccent = lipgloss.Color("#00C46A")
	obColorBrand  = lipgloss.Color("#FFB545")
	obColorDanger = lipgloss.Color("#F38BA8")

	obTitleStyle = lipgloss.NewStyle().
			Foreground(obColorBrand).
			Bold(true)

	obHeaderStyle = lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(obColorMuted).
			Padding(1, 2)

	obLabelStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obMutedStyle = lipgloss.NewStyle().
			Foreground(obColorMuted)

	obOptionStyle = lipgloss.NewStyle().
			Foreground(obColorText)

	obOptionSelected = lipgloss.NewStyle().
				Foreground(obColorAccent).
				Bold(true)

	obWarnStyle = lipgloss.NewStyle().
			Foreground(obColorDanger)

	obFooterStyle = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(obColorMuted)
)

func newOnboardingModel() onboardingModel {
	return onboardingModel{
		step:   stepConsent,
		enable: true,
		settings: OnboardingSettings{
			Completed:        true,
			GeocodingEnabled: true,
		},
	}
}

func (m onboardingModel) Init() tea.Cmd { return nil }

func (m onboardingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if m.step != stepConsent {
			return m, nil
		}
		switch msg.String() {
		case "y", "Y":
			m.enable = true
			return m.confirm()
		case "n", "N":
			m.enable = false
			return m.confirm()
		case "up", "k", "left", "h":
			m.enable = true
		case "down", "j", "right", "l":
			m.enable = false
		case "enter":
			return m.confirm()
		case "ctrl+c", "q":
			m.settings.GeocodingEnabled = false
			m.status = "Setup canceled. Cities will be entered by hand."
			m.step = stepDone
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m onboardingModel) confirm() (tea.Model, tea.Cmd) {
	m.settings.GeocodingEnabled = m.enable
	if m.enable {
		m.status = "Dropped pins will be looked up online."
	} else {
		m.status = "Reverse geocoding disabled. Cities will be entered by hand."
	}
	m.step = stepDone
	return m, tea.Quit
}

func (m onboardingModel) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 28
	}

	contentHeight := max(8, height-4)
	ui := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(width),
		m.renderContent(width, contentHeight),
		m.renderFooter(width),
	)

	return lipgloss.NewStyle().
		Foreground(obColorText).
		Width(width).
		Height(height).
		Render(ui)
}

func (m onboardingModel) renderHeader(width int) string {
	left := "  " + obTitleStyle.Render("worldwise") + " " + obMutedStyle.Render("› Setup")
	right := obMutedStyle.Render(time.Now().Format("Mon 02 Jan")) + "  "
	padding := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return obHeaderStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m onboardingModel) renderFooter(width int) string {
	if m.step == stepConsent {
		return obFooterStyle.Width(width).Render("↑↓/jk to navigate  y/n enter to confirm  q cancel")
	}
	return obFooterStyle.Width(width).Render("Setup complete")
}

func (m onboardingModel) renderContent(width, height int) string {
	cardWidth := min(92, width-6)
	if cardWidth < 40 {
		cardWidth = width - 2
	}

	var body string
	switch m.step {
	case stepConsent:
		on := "Look up dropped pins online"
		off := "Type city and country by hand"

		var onDisplay, offDisplay string
		if m.enable {
			onDisplay = "  " + obOptionSelected.Render("→ "+on)
			offDisplay = "    " + obOptionStyle.Render(off)
		} else {
			onDisplay = "    " + obOptionStyle.Render(on)
			offDisplay = "  " + obOptionSelected.Render("→ "+off)
		}

		body = lipgloss.JoinVertical(
			lipgloss.Left,
			obLabelStyle.Render("Find the city for each pin you drop?"),
			"",
			obMutedStyle.Render("The coordinate of a pin is sent to a reverse geocoding service."),
			"",
			onDisplay,
			offDisplay,
			"",
			obMutedStyle.Render("You can change this later in ~/.worldwise/onboarding.json"),
		)
	default:
		msg := obMutedStyle.Render(m.status)
		if !m.settings.GeocodingEnabled {
			msg = obWarnStyle.Render(m.status)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, obLabelStyle.Render("Onboarding Complete"), "", msg)
	}

	card := obPanelStyle.Width(cardWidth).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, card)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func runOnboarding(configDir string) (OnboardingSettings, error) {
	prog := tea.NewProgram(newOnboardingModel(), tea.WithAltScreen())
	finalModel, err := prog.Run()
	if err != nil {
		return OnboardingSettings{}, fmt.Errorf("onboarding tui failed: %w", err)
	}
	m, ok := finalModel.(onboardingModel)
	if !ok {
		return OnboardingSettings{}, fmt.Errorf("unexpected onboarding model type")
	}
	if err := saveOnboardingSettings(configDir, m.settings); err != nil {
		return OnboardingSettings{}, err
	}
	return m.settings, nil
}
