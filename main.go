package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"worldwise/cmd"
	"worldwise/internal/auth"
	"worldwise/internal/db"
	"worldwise/internal/geocode"
	"worldwise/internal/logging"
	"worldwise/internal/model"
	"worldwise/internal/persist"
	"worldwise/internal/store"
	"worldwise/internal/ui"
)

// version is set at build time via -ldflags
var version = "dev"

const citiesKey = "cities"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse CLI flags
	config, err := cmd.ParseFlags(version)
	if err != nil {
		return err
	}

	// The terminal belongs to the TUI, so logs go to a file.
	logFile, err := os.OpenFile(filepath.Join(config.ConfigDir, "worldwise.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	logger := logging.Setup(config.LogLevel, config.LogFormat, logFile)
	logger.Info("starting worldwise", slog.String("version", version), slog.String("db", config.DBPath))

	// Open database
	database, err := db.Open(config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	cities := persist.NewValue(database, citiesKey, func() []model.City { return []model.City{} }, logger)
	storeOpts := []store.Option{store.WithLogger(logger)}
	if config.Serialize {
		storeOpts = append(storeOpts, store.WithSerializedOperations())
	}
	st := store.New(cities, storeOpts...)
	defer st.Close()

	// Initialize reverse geocoder
	var geocoder ui.Geocoder
	if config.GeocodingEnabled {
		geocoder = geocode.NewClient(
			geocode.WithBaseURL(config.GeocodeURL),
			geocode.WithTimeout(config.GeocodeTimeout),
			geocode.WithRateLimit(config.GeocodeRPS),
			geocode.WithLogger(logger),
		)
	} else {
		fmt.Fprintln(os.Stderr, "ℹ  Reverse geocoding disabled in onboarding settings")
	}

	user := auth.DefaultUser
	password := auth.DefaultPassword
	if config.UserName != "" {
		user.Name = config.UserName
	}
	if config.UserEmail != "" {
		user.Email = config.UserEmail
	}
	if config.UserPassword != "" {
		password = config.UserPassword
	}
	gate := auth.NewGate(user, password, logger)

	prefs := persist.NewValue(database, ui.PrefsKey, ui.DefaultUIPreferences, logger)

	// Create and run Bubble Tea app
	app := ui.New(ui.Options{
		Store:         st,
		Geocoder:      geocoder,
		Gate:          gate,
		Prefs:         prefs,
		Logger:        logger,
		LoginEmail:    user.Email,
		LoginPassword: password,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run app: %w", err)
	}
	return nil
}
