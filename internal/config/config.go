// Package config provides YAML-based configuration loading with
// environment variable expansion.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the default config file location.
const EnvConfigPath = "PHANTOM_CONFIG"

// Log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Config represents the application configuration.
type Config struct {
	Vault    VaultConfig    `yaml:"vault"`
	Journal  JournalConfig  `yaml:"journal"`
	Security SecurityConfig `yaml:"security"`
	Conceal  ConcealConfig  `yaml:"conceal"`
	Autolock AutolockConfig `yaml:"autolock"`
	Log      LogConfig      `yaml:"log"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Security.Validate(); err != nil {
		return err
	}
	if err := c.Conceal.Validate(); err != nil {
		return err
	}
	if err := c.Autolock.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}

// VaultConfig holds the vault home directory where the registry and
// journal databases live.
type VaultConfig struct {
	Home string `yaml:"home"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Home, validation.Required),
	)
}

// StorePath returns the vault registry database path.
func (c *VaultConfig) StorePath() string {
	return filepath.Join(c.Home, "store.db")
}

// JournalConfig holds the activity journal database configuration. An
// empty Path places the journal next to the registry.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// ResolvePath returns the journal path, falling back to the vault home.
func (c *JournalConfig) ResolvePath(vaultHome string) string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(vaultHome, "journal.db")
}

// SecurityConfig holds process hardening and deletion settings.
type SecurityConfig struct {
	WipePasses       int  `yaml:"wipe_passes"`
	LockMemory       bool `yaml:"lock_memory"`
	DisableCoreDumps bool `yaml:"disable_core_dumps"`
}

// Validate validates the security configuration.
func (c *SecurityConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.WipePasses, validation.Required, validation.Min(1), validation.Max(35)),
	)
}

// ConcealConfig holds the process disguise settings.
type ConcealConfig struct {
	Disguise string `yaml:"disguise"`
}

// Validate validates the conceal configuration. Linux caps process
// names at 15 bytes.
func (c *ConcealConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Disguise, validation.Length(0, 15)),
	)
}

// AutolockConfig holds the idle re-encryption watcher settings.
type AutolockConfig struct {
	Enabled     bool `yaml:"enabled"`
	IdleSeconds int  `yaml:"idle_seconds"`
}

// Validate validates the autolock configuration.
func (c *AutolockConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IdleSeconds, validation.Required, validation.Min(1)),
	)
}

// IdleTimeout returns the idle duration after which a watched vault is
// re-encrypted.
func (c *AutolockConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleSeconds) * time.Second
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Vault: VaultConfig{
			Home: filepath.Join(home, ".phantom_vault"),
		},
		Security: SecurityConfig{
			WipePasses:       3,
			DisableCoreDumps: true,
		},
		Conceal: ConcealConfig{
			Disguise: "",
		},
		Autolock: AutolockConfig{
			Enabled:     false,
			IdleSeconds: 300,
		},
		Log: LogConfig{
			Level: LogLevelInfo,
		},
	}
}

// DefaultPath returns the config file location, honoring the
// PHANTOM_CONFIG environment variable.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "phantom", "config.yaml")
}

// Load loads configuration from a YAML file with environment variable
// expansion. Values not present in the file keep their defaults.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads the configuration file if it exists and falls
// back to defaults when it does not.
func LoadOrDefault(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return NewDefaultConfig(), nil
	}
	return Load(filename)
}
