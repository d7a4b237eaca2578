package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds CLI configuration.
type Config struct {
	DBPath         string        `env:"WORLDWISE_DB"`
	LogLevel       string        `env:"WORLDWISE_LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"WORLDWISE_LOG_FORMAT" envDefault:"text"`
	GeocodeURL     string        `env:"WORLDWISE_GEOCODE_URL"`
	GeocodeTimeout time.Duration `env:"WORLDWISE_GEOCODE_TIMEOUT" envDefault:"5s"`
	GeocodeRPS     float64       `env:"WORLDWISE_GEOCODE_RPS" envDefault:"2"`
	Serialize      bool          `env:"WORLDWISE_SERIALIZE" envDefault:"false"`
	UserName       string        `env:"WORLDWISE_USER_NAME"`
	UserEmail      string        `env:"WORLDWISE_USER_EMAIL"`
	UserPassword   string        `env:"WORLDWISE_USER_PASSWORD"`

	// Derived, not read from the environment.
	ConfigDir        string
	GeocodingEnabled bool
	Version          string
}

// ParseFlags parses command-line flags, runs first-run onboarding when needed,
// and returns configuration.
func ParseFlags(version string) (*Config, error) {
	config, err := Load(os.Args[1:])
	if err != nil {
		return nil, err
	}
	config.Version = version

	settings, err := loadOnboardingSettings(config.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load onboarding settings: %w", err)
	}

	if shouldRunOnboarding(settings) {
		settings, err = runOnboarding(config.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("failed to run onboarding: %w", err)
		}
	}

	config.GeocodingEnabled = settings.GeocodingEnabled || !settings.Completed
	return config, nil
}

// Load builds the configuration from .env files, the environment and args.
// Flags win over the environment, which wins over .env files.
func Load(args []string) (*Config, error) {
	// Load .env files first so env-based defaults work with flag parsing.
	if err := loadDotEnv(".env", ".env.local"); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	fset := flag.NewFlagSet("worldwise", flag.ContinueOnError)
	fset.StringVar(&config.DBPath, "db", config.DBPath, "Path to SQLite database file (default: ~/.worldwise/worldwise.db)")
	fset.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level: debug, info, warn, error")
	fset.StringVar(&config.GeocodeURL, "geocode-url", config.GeocodeURL, "Reverse geocoding endpoint")
	fset.BoolVar(&config.Serialize, "serialize", config.Serialize, "Run create/select/delete one at a time in call order")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	// Set default DB path if not specified
	if config.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		config.ConfigDir = filepath.Join(home, ".worldwise")
		config.DBPath = filepath.Join(config.ConfigDir, "worldwise.db")
	} else {
		config.ConfigDir = filepath.Dir(config.DBPath)
	}

	if err := os.MkdirAll(config.ConfigDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	return config, nil
}

// loadDotEnv loads each file that exists. Variables already set are kept.
func loadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}
