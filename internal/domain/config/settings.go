package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Settings are operator defaults that apply across runbooks: where the
// ledger lives, how long a single action may run, and how re-runs
// treat prior history. Loaded from ~/.hostprep/config.toml; flags
// override.
type Settings struct {
	// LedgerDir is the directory for per-host ledger files.
	LedgerDir string `toml:"ledger_dir"`
	// StepTimeout bounds a single action (e.g. "15m").
	StepTimeout string `toml:"step_timeout"`
	// ReverifyPolicy is "trust-ledger" or "always-reverify".
	ReverifyPolicy string `toml:"reverify_policy"`
	// SSH holds default connection settings.
	SSH SSHSettings `toml:"ssh"`
}

// SSHSettings are default remote connection settings.
type SSHSettings struct {
	User         string `toml:"user"`
	Port         int    `toml:"port"`
	IdentityFile string `toml:"identity_file"`
	KnownHosts   string `toml:"known_hosts"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	home, _ := os.UserHomeDir()
	return Settings{
		LedgerDir:      filepath.Join(home, ".hostprep", "ledger"),
		StepTimeout:    "10m",
		ReverifyPolicy: "trust-ledger",
		SSH: SSHSettings{
			User: "root",
			Port: 22,
		},
	}
}

// DefaultSettingsPath returns the standard settings file location.
func DefaultSettingsPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hostprep", "config.toml")
}

// LoadSettings reads settings from path, layered over the defaults.
// A missing file is not an error.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings: %w", err)
	}

	if err := toml.Unmarshal(data, &settings); err != nil {
		return settings, NewSettingsParseError(path, err)
	}

	if _, err := settings.Timeout(); err != nil {
		return settings, &UserError{
			Message:    fmt.Sprintf("invalid step_timeout %q", settings.StepTimeout),
			Context:    path,
			Suggestion: `Use a Go duration such as "10m" or "1h".`,
			Underlying: err,
		}
	}

	return settings, nil
}

// Timeout parses the step timeout duration.
func (s Settings) Timeout() (time.Duration, error) {
	if s.StepTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(s.StepTimeout)
}
