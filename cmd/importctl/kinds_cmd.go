package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newKindsCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List the importable kinds and their columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			kinds := app.Registry.Kinds()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), kinds)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tGROUP\tCOLUMNS")
			for _, k := range kinds {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", k.Kind, k.Group, strings.Join(k.Columns, ", "))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write JSON instead of a table")
	return cmd
}
