// Package cli implements the sudo-mcp command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/sudo-mcp/internal/config"
)

// exitError carries a process exit status without an error message, for
// commands whose output already says everything.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// flags holds the persistent flags shared by every subcommand.
type flags struct {
	configPath    string
	auditLog      string
	timeout       int
	blocklistFile string
	profile       string
	noBlocklist   bool
	logLevel      string
}

// Execute runs the command line and returns the process exit status.
func Execute(ctx context.Context, version string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCommand(version)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(stderr, "sudo-mcp: %v\n", err)
	return 1
}

// NewRootCommand builds the command tree. Running it without a subcommand
// starts the MCP server.
func NewRootCommand(version string) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "sudo-mcp",
		Short: "MCP server that runs shell commands with elevated privileges",
		Long: `sudo-mcp exposes a single MCP tool, execute_sudo_command, over stdio.
Each command is checked against a blocklist, run through pkexec so the user
can approve it, and recorded in a tamper-evident audit log.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, f, version)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "path to config file (default ~/.config/sudo-mcp/config.yaml)")
	pf.StringVarP(&f.auditLog, "audit-log", "a", "", "path to audit log file (default "+config.DefaultAuditPath+")")
	pf.IntVarP(&f.timeout, "timeout", "t", 0, "default command timeout in seconds (default 15)")
	pf.StringVarP(&f.blocklistFile, "blocklist-file", "b", "", "path to a custom blocklist file (YAML or JSON)")
	pf.StringVar(&f.profile, "profile", "", "use an embedded blocklist profile (see 'sudo-mcp profiles')")
	pf.BoolVar(&f.noBlocklist, "no-blocklist", false, "disable blocklist validation entirely (dangerous)")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		serveCmd(f, version),
		checkCmd(f),
		auditCmd(f),
		profilesCmd(),
		versionCmd(version),
	)
	return root
}

// loadConfig resolves configuration with increasing precedence: defaults,
// config file, environment, flags.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	path := f.configPath
	if path == "" {
		path = config.ConfigPath()
	}

	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = config.LoadFrom(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("audit-log") {
		cfg.Audit.Path = f.auditLog
	}
	if changed("timeout") {
		cfg.Execution.TimeoutSeconds = f.timeout
	}
	if changed("blocklist-file") {
		cfg.Blocklist.File = f.blocklistFile
		cfg.Blocklist.Profile = ""
	}
	if changed("profile") {
		cfg.Blocklist.Profile = f.profile
		cfg.Blocklist.File = ""
	}
	if changed("no-blocklist") {
		cfg.Blocklist.Disabled = f.noBlocklist
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// newLogger writes text logs to w. Stdout carries the MCP transport, so
// callers pass stderr.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level, err := cfg.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
