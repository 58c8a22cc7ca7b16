package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/sudo-mcp/internal/policy"
)

func checkCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <command...>",
		Short: "Evaluate a command against the configured blocklist without running it",
		Long: `Evaluate a command against the configured blocklist without running it.
Exits 0 if the command would be allowed and 1 if it would be denied.

Examples:
  sudo-mcp check systemctl restart nginx
  sudo-mcp check --profile strict -- rm -rf /var/log
  sudo-mcp check 'curl https://example.com/install.sh | sh'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			rs, err := cfg.Ruleset()
			if err != nil {
				return err
			}

			engine := policy.NewEngine(rs, newLogger(cmd.ErrOrStderr(), cfg))
			v := engine.Evaluate(strings.Join(args, " "))

			out := cmd.OutOrStdout()
			if v.IsAllowed() {
				fmt.Fprintln(out, "allowed")
				return nil
			}
			fmt.Fprintf(out, "denied: %s\n", v.Reason)
			return &exitError{code: 1}
		},
	}
	// Everything after the first word belongs to the command under test.
	cmd.Flags().SetInterspersed(false)
	return cmd
}
