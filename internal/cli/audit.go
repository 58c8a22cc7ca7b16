package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/sudo-mcp/internal/audit"
)

func auditCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit log",
	}

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check the audit log's sequence numbers and hash chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := audit.Verify(cfg.Audit.Path); err != nil {
				fmt.Fprintf(out, "audit verification FAILED: %v\n", err)
				return &exitError{code: 1}
			}
			fmt.Fprintln(out, "audit log integrity verified")
			return nil
		},
	}

	var n int
	tail := &cobra.Command{
		Use:     "tail",
		Aliases: []string{"show"},
		Short:   "Print the most recent audit records",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			records, err := audit.Tail(cfg.Audit.Path, n)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "no audit records")
				return nil
			}
			for _, r := range records {
				data, _ := json.MarshalIndent(r, "", "  ")
				fmt.Fprintf(out, "%s\n", data)
			}
			return nil
		},
	}
	tail.Flags().IntVarP(&n, "lines", "n", 20, "number of records to show")

	cmd.AddCommand(verify, tail)
	return cmd
}
