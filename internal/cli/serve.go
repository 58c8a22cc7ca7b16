package cli

import (
	"github.com/spf13/cobra"

	"github.com/marcelocantos/sudo-mcp/internal/audit"
	"github.com/marcelocantos/sudo-mcp/internal/executor"
	"github.com/marcelocantos/sudo-mcp/internal/gateway"
	"github.com/marcelocantos/sudo-mcp/internal/policy"
	"github.com/marcelocantos/sudo-mcp/internal/server"
)

func serveCmd(f *flags, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, f, version)
		},
	}
}

func runServe(cmd *cobra.Command, f *flags, version string) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	// A broken blocklist is fatal: serving with a policy other than the one
	// configured would be worse than not serving.
	rs, err := cfg.Ruleset()
	if err != nil {
		return err
	}
	if cfg.Blocklist.Disabled {
		logger.Warn("blocklist validation is DISABLED; every non-empty command will be attempted")
	}

	opts := cfg.Options()
	logger.Info("starting sudo-mcp",
		"version", version,
		"blocklist", cfg.RulesetSource(),
		"rules", rs.Len(),
		"audit_log", opts.AuditLogPath,
		"timeout_seconds", opts.DefaultTimeoutSeconds)

	engine := policy.NewEngine(rs, logger.With("component", "policy"))
	exec := executor.New(executor.Options{
		Backend:               cfg.Execution.Backend,
		DefaultTimeoutSeconds: opts.DefaultTimeoutSeconds,
		Logger:                logger.With("component", "executor"),
	})
	sink := audit.NewSink(opts.AuditLogPath, logger.With("component", "audit"))
	gw := gateway.New(engine, exec, sink, gateway.WithLogger(logger.With("component", "gateway")))

	srv := server.New(gw, server.Options{
		Version:               version,
		DefaultTimeoutSeconds: opts.DefaultTimeoutSeconds,
		Logger:                logger.With("component", "mcp"),
	})
	return srv.ServeStdio(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
}
