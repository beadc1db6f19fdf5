package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/opus-domini/alertd/internal/alerts"
)

const (
	DefaultListenAddr = "127.0.0.1:4050"
	DefaultLogLevel   = "info"
)

type Config struct {
	ListenAddr string
	LogLevel   string
	ConfigPath string
	// Alerts seeds the store at startup.
	Alerts []alerts.Alert
	// UnknownKeys lists file keys that did not map to any setting.
	UnknownKeys []string
}

type fileConfig struct {
	Listen   string         `toml:"listen"`
	LogLevel string         `toml:"log_level"`
	Alerts   []alerts.Alert `toml:"alerts"`
}

const defaultConfigContent = `# alertd configuration
# All values shown are defaults. Uncomment and edit to customize.

# Address and port the server listens on.
# Environment variable: ALERTD_LISTEN
# listen = "127.0.0.1:4050"

# Log level: debug, info, warn, error.
# Environment variable: ALERTD_LOG_LEVEL
# log_level = "info"

# Alerts loaded into the store at startup. When no [[alerts]] table is
# present the two built-in alerts are used; "alerts = []" starts empty.
#
# [[alerts]]
# id = 1
# name = "First"
# frequency = 0.0
# active = true
`

// Load resolves configuration with env > file > default precedence. A
// commented default file is created when none exists.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr: DefaultListenAddr,
		LogLevel:   DefaultLogLevel,
		ConfigPath: resolvePath(),
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); errors.Is(err, os.ErrNotExist) {
			writeDefaultConfig(cfg.ConfigPath)
		}
	}

	file, defined, unknown, err := loadFile(cfg.ConfigPath)
	if err != nil {
		return Config{}, err
	}
	cfg.UnknownKeys = unknown

	// Listen: env > file > default
	if v := strings.TrimSpace(os.Getenv("ALERTD_LISTEN")); v != "" {
		cfg.ListenAddr = v
	} else if v := strings.TrimSpace(file.Listen); v != "" {
		cfg.ListenAddr = v
	}

	// Log level: env > file > default (info)
	if v := strings.TrimSpace(os.Getenv("ALERTD_LOG_LEVEL")); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	} else if v := strings.TrimSpace(file.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if defined {
		cfg.Alerts = file.Alerts
	} else {
		cfg.Alerts = alerts.DefaultSeed()
	}
	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen address is required")
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.ListenAddr, err)
	}
	return nil
}

func resolvePath() string {
	if v := strings.TrimSpace(os.Getenv("ALERTD_CONFIG")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".alertd", "config.toml")
}

// loadFile decodes the TOML file at path. A missing file yields the zero
// config. alertsDefined reports whether the file set the alerts key.
func loadFile(path string) (out fileConfig, alertsDefined bool, unknown []string, err error) {
	if path == "" {
		return fileConfig{}, false, nil, nil
	}
	md, err := toml.DecodeFile(path, &out)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileConfig{}, false, nil, nil
		}
		return fileConfig{}, false, nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		unknown = append(unknown, key.String())
	}
	return out, md.IsDefined("alerts"), unknown, nil
}

// writeDefaultConfig creates the config file with commented-out defaults.
// Best-effort: errors are silently ignored.
func writeDefaultConfig(path string) {
	_ = os.MkdirAll(filepath.Dir(path), 0o700)
	_ = os.WriteFile(path, []byte(defaultConfigContent), 0o600) //nolint:gosec // fixed content, not user input
}
