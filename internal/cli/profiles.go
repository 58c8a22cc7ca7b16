package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/sudo-mcp/internal/rules"
)

func profilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles [name]",
		Short: "List the embedded blocklist profiles, or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				data, err := rules.ProfileSource(args[0])
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PROFILE\tEXACT\tPATTERNS\tBINARIES")
			for _, name := range rules.ProfileNames() {
				doc, err := rules.ProfileDocument(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", name,
					len(doc.ExactMatches), len(doc.RegexPatterns), len(doc.BlockedBinaries))
			}
			return tw.Flush()
		},
	}
}
