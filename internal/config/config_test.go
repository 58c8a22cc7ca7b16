package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marcelocantos/sudo-mcp/internal/rules"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Audit.Path != "/var/log/sudo-mcp/audit.log" {
		t.Errorf("audit path = %q", cfg.Audit.Path)
	}
	if cfg.Execution.TimeoutSeconds != 15 {
		t.Errorf("timeout = %d", cfg.Execution.TimeoutSeconds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	opts := cfg.Options()
	if opts.AuditLogPath != cfg.Audit.Path || opts.DefaultTimeoutSeconds != 15 {
		t.Errorf("options = %+v", opts)
	}
}

func TestLoadFromMissing(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Execution.TimeoutSeconds != 15 {
		t.Error("missing file should yield defaults")
	}
}

func TestLoadFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
audit:
  path: ~/audit.log
execution:
  timeout_seconds: 60
  backend: [sudo, -n, bash, -c]
blocklist:
  profile: strict
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	home, _ := os.UserHomeDir()
	if cfg.Audit.Path != filepath.Join(home, "audit.log") {
		t.Errorf("audit path = %q", cfg.Audit.Path)
	}
	if cfg.Execution.TimeoutSeconds != 60 {
		t.Errorf("timeout = %d", cfg.Execution.TimeoutSeconds)
	}
	if strings.Join(cfg.Execution.Backend, " ") != "sudo -n bash -c" {
		t.Errorf("backend = %v", cfg.Execution.Backend)
	}
	if cfg.Blocklist.Profile != "strict" {
		t.Errorf("profile = %q", cfg.Blocklist.Profile)
	}
	level, err := cfg.LogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("level = %v, %v", level, err)
	}
}

func TestLoadFromPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("blocklist:\n  disabled: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audit.Path != DefaultAuditPath || cfg.Execution.TimeoutSeconds != 15 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if !cfg.Blocklist.Disabled {
		t.Error("disabled not read")
	}
}

func TestLoadFromInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("audit: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAuditLog:  "/tmp/a.log",
		EnvTimeout:   " 42 ",
		EnvBlocklist: "/etc/sudo-mcp/blocklist.json",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatal(err)
	}
	if cfg.Audit.Path != "/tmp/a.log" || cfg.Execution.TimeoutSeconds != 42 ||
		cfg.Blocklist.File != "/etc/sudo-mcp/blocklist.json" {
		t.Errorf("env not applied: %+v", cfg)
	}

	env[EnvTimeout] = "soon"
	if err := DefaultConfig().ApplyEnv(lookup); err == nil {
		t.Error("expected error for non-numeric timeout")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty audit path", func(c *Config) { c.Audit.Path = "" }, "audit"},
		{"zero timeout", func(c *Config) { c.Execution.TimeoutSeconds = 0 }, "timeout"},
		{"negative timeout", func(c *Config) { c.Execution.TimeoutSeconds = -5 }, "timeout"},
		{"file and profile", func(c *Config) {
			c.Blocklist.File = "/x"
			c.Blocklist.Profile = "strict"
		}, "mutually exclusive"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestRuleset(t *testing.T) {
	cfg := DefaultConfig()
	rs, err := cfg.Ruleset()
	if err != nil || rs != rules.Default() {
		t.Errorf("expected built-in ruleset, got %v", err)
	}
	if cfg.RulesetSource() != "built-in" {
		t.Errorf("source = %q", cfg.RulesetSource())
	}

	cfg.Blocklist.Disabled = true
	rs, err = cfg.Ruleset()
	if err != nil || rs.Len() != 0 {
		t.Errorf("expected empty ruleset when disabled, got %d rules, %v", rs.Len(), err)
	}

	cfg = DefaultConfig()
	cfg.Blocklist.Profile = "minimal"
	rs, err = cfg.Ruleset()
	if err != nil || rs.Len() == 0 || rs.Len() > 5 {
		t.Errorf("minimal profile: %v", err)
	}
	if cfg.RulesetSource() != "profile:minimal" {
		t.Errorf("source = %q", cfg.RulesetSource())
	}

	cfg = DefaultConfig()
	cfg.Blocklist.File = filepath.Join(t.TempDir(), "missing.json")
	_, err = cfg.Ruleset()
	var cerr *rules.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}
