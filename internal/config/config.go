// Package config loads the doctag configuration from ~/.doctag/config.yaml,
// a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides
const (
	EnvAPIURL      = "DOCTAG_API_URL"
	EnvSessionFile = "DOCTAG_SESSION_FILE"
	EnvLogLevel    = "DOCTAG_LOG_LEVEL"
)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".doctag"

// Config is the doctag configuration
type Config struct {
	BaseURL     string        `yaml:"base_url"`
	APIRoot     string        `yaml:"api_root"`
	SessionFile string        `yaml:"session_file,omitempty"`
	Timeout     time.Duration `yaml:"timeout"`
	ToastTTL    time.Duration `yaml:"toast_ttl"`
	Logging     LoggingConfig `yaml:"logging"`
	Output      OutputConfig  `yaml:"output"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "text", "json"
	File   string `yaml:"file,omitempty"`
}

type OutputConfig struct {
	Format  string `yaml:"format"` // "text", "json", "yaml"
	NoColor bool   `yaml:"no_color,omitempty"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		BaseURL:  "http://localhost:8000",
		APIRoot:  "/api/",
		Timeout:  30 * time.Second,
		ToastTTL: 5 * time.Second,
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Dir returns ~/.doctag
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// DefaultPath returns ~/.doctag/config.yaml
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the configuration at path over the defaults. A missing file is
// not an error. Environment overrides are applied afterwards, with variables
// from a .env file in the working directory filling in unset ones.
func Load(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile reads the configuration file over the defaults without applying
// the environment. A missing file yields the defaults.
func ReadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.BaseURL = v
	}
	if v, ok := lookup(EnvSessionFile); ok && v != "" {
		c.SessionFile = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url must not be empty")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must start with http:// or https://, got %q", c.BaseURL)
	}
	if c.Timeout < 0 || c.ToastTTL < 0 {
		return errors.New("timeout and toast_ttl must not be negative")
	}
	return nil
}

// SessionPath returns the session file location, defaulting to
// ~/.doctag/session.json.
func (c *Config) SessionPath() (string, error) {
	if c.SessionFile != "" {
		return expandHome(c.SessionFile)
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

// LogPath returns the TUI log file location, defaulting to
// ~/.doctag/doctag.log.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File != "" {
		return expandHome(c.Logging.File)
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "doctag.log"), nil
}

// Save writes the configuration to path
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get returns a value by dotted key, e.g. "logging.level".
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "base_url":
		return c.BaseURL, nil
	case "api_root":
		return c.APIRoot, nil
	case "session_file":
		return c.SessionFile, nil
	case "timeout":
		return c.Timeout.String(), nil
	case "toast_ttl":
		return c.ToastTTL.String(), nil
	case "logging.level":
		return c.Logging.Level, nil
	case "logging.format":
		return c.Logging.Format, nil
	case "logging.file":
		return c.Logging.File, nil
	case "output.format":
		return c.Output.Format, nil
	case "output.no_color":
		return strconv.FormatBool(c.Output.NoColor), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// Set assigns a value by dotted key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "base_url":
		c.BaseURL = value
	case "api_root":
		c.APIRoot = value
	case "session_file":
		c.SessionFile = value
	case "timeout", "toast_ttl":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		if key == "timeout" {
			c.Timeout = d
		} else {
			c.ToastTTL = d
		}
	case "logging.level":
		c.Logging.Level = value
	case "logging.format":
		c.Logging.Format = value
	case "logging.file":
		c.Logging.File = value
	case "output.format":
		c.Output.Format = value
	case "output.no_color":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %w", key, err)
		}
		c.Output.NoColor = b
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return c.Validate()
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
