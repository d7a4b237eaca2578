package cmd

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WORLDWISE_DB", filepath.Join(dir, "travel.db"))

	config, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "travel.db"), config.DBPath)
	assert.Equal(t, dir, config.ConfigDir)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "text", config.LogFormat)
	assert.Equal(t, 5*time.Second, config.GeocodeTimeout)
	assert.Equal(t, 2.0, config.GeocodeRPS)
	assert.False(t, config.Serialize)
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WORLDWISE_DB", filepath.Join(dir, "env.db"))
	t.Setenv("WORLDWISE_LOG_LEVEL", "warn")
	t.Setenv("WORLDWISE_GEOCODE_TIMEOUT", "750ms")

	config, err := Load([]string{
		"-db", filepath.Join(dir, "flag.db"),
		"-log-level", "debug",
		"-serialize",
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "flag.db"), config.DBPath)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, 750*time.Millisecond, config.GeocodeTimeout)
	assert.True(t, config.Serialize)
}

func TestLoadRejectsMalformedEnvironment(t *testing.T) {
	t.Setenv("WORLDWISE_DB", filepath.Join(t.TempDir(), "travel.db"))
	t.Setenv("WORLDWISE_GEOCODE_RPS", "fast")

	_, err := Load(nil)
	assert.Error(t, err)
}

func TestOnboardingSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	settings, err := loadOnboardingSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, OnboardingSettings{}, settings)

	want := OnboardingSettings{Completed: true, GeocodingEnabled: false}
	require.NoError(t, saveOnboardingSettings(dir, want))

	got, err := loadOnboardingSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, shouldRunOnboarding(got))
}

func TestOnboardingConsent(t *testing.T) {
	tests := []struct {
		name string
		keys []tea.KeyMsg
		want bool
	}{
		{"enter keeps default", []tea.KeyMsg{{Type: tea.KeyEnter}}, true},
		{"n declines", []tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune("n")}}, false},
		{"move down then enter", []tea.KeyMsg{
			{Type: tea.KeyRunes, Runes: []rune("j")},
			{Type: tea.KeyEnter},
		}, false},
		{"q cancels", []tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune("q")}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m tea.Model = newOnboardingModel()
			for _, k := range tt.keys {
				m, _ = m.Update(k)
			}
			om := m.(onboardingModel)
			assert.Equal(t, stepDone, om.step)
			assert.True(t, om.settings.Completed)
			assert.Equal(t, tt.want, om.settings.GeocodingEnabled)
		})
	}
}
