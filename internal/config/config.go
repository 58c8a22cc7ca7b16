package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/sudo-mcp/internal/executor"
	"github.com/marcelocantos/sudo-mcp/internal/rules"
)

// DefaultAuditPath is where the audit trail goes unless configured otherwise.
const DefaultAuditPath = "/var/log/sudo-mcp/audit.log"

// Environment variables consulted by ApplyEnv.
const (
	EnvAuditLog  = "SUDO_MCP_AUDIT_LOG"
	EnvTimeout   = "SUDO_MCP_TIMEOUT"
	EnvBlocklist = "SUDO_MCP_BLOCKLIST"
)

// Config holds the global sudo-mcp configuration.
type Config struct {
	Audit     AuditConfig     `yaml:"audit"`
	Execution ExecutionConfig `yaml:"execution"`
	Blocklist BlocklistConfig `yaml:"blocklist"`
	Log       LogConfig       `yaml:"log"`
}

// AuditConfig controls audit log settings.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// ExecutionConfig controls the privileged executor.
type ExecutionConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// Backend replaces the pkexec/sudo/bash chain. Empty means the default.
	Backend []string `yaml:"backend"`
}

// BlocklistConfig selects the policy ruleset. File takes a path to a
// blocklist document, Profile names an embedded one; at most one may be set.
// Disabled turns validation off entirely.
type BlocklistConfig struct {
	File     string `yaml:"file"`
	Profile  string `yaml:"profile"`
	Disabled bool   `yaml:"disabled"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ExecutionOptions is the resolved, immutable subset handed to the core.
type ExecutionOptions struct {
	AuditLogPath          string
	DefaultTimeoutSeconds int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Audit: AuditConfig{
			Path: DefaultAuditPath,
		},
		Execution: ExecutionConfig{
			TimeoutSeconds: executor.DefaultTimeoutSeconds,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config from the standard location
// (~/.config/sudo-mcp/config.yaml). If the file doesn't exist, returns the
// default config.
func Load() (*Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from the given path. A missing file yields the
// defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.Audit.Path = expandHome(cfg.Audit.Path)
	cfg.Blocklist.File = expandHome(cfg.Blocklist.File)
	return cfg, nil
}

// ApplyEnv overrides fields from the SUDO_MCP_* environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvAuditLog); ok && v != "" {
		c.Audit.Path = expandHome(v)
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Execution.TimeoutSeconds = n
	}
	if v, ok := lookup(EnvBlocklist); ok && v != "" {
		c.Blocklist.File = expandHome(v)
	}
	return nil
}

// Validate reports the first problem with the configuration.
func (c *Config) Validate() error {
	if c.Audit.Path == "" {
		return errors.New("audit log path must not be empty")
	}
	if c.Execution.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.Execution.TimeoutSeconds)
	}
	if c.Blocklist.File != "" && c.Blocklist.Profile != "" {
		return errors.New("blocklist file and profile are mutually exclusive")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// Options returns the execution options the gateway is built from.
func (c *Config) Options() ExecutionOptions {
	return ExecutionOptions{
		AuditLogPath:          c.Audit.Path,
		DefaultTimeoutSeconds: c.Execution.TimeoutSeconds,
	}
}

// Ruleset resolves the configured blocklist. Errors are
// *rules.ConfigurationError and are fatal at startup.
func (c *Config) Ruleset() (*rules.Ruleset, error) {
	switch {
	case c.Blocklist.Disabled:
		return rules.Disabled(), nil
	case c.Blocklist.File != "":
		return rules.LoadFile(c.Blocklist.File)
	case c.Blocklist.Profile != "":
		return rules.Profile(c.Blocklist.Profile)
	default:
		return rules.Default(), nil
	}
}

// RulesetSource describes where Ruleset draws its rules from, for logging.
func (c *Config) RulesetSource() string {
	switch {
	case c.Blocklist.Disabled:
		return "disabled"
	case c.Blocklist.File != "":
		return c.Blocklist.File
	case c.Blocklist.Profile != "":
		return "profile:" + c.Blocklist.Profile
	default:
		return "built-in"
	}
}

// LogLevel parses Log.Level. Empty means info.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "sudo-mcp", "config.yaml")
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
