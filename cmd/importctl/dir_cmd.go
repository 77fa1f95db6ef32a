package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogimport/internal/dirimport"
)

func newDirCmd(c *cli) *cobra.Command {
	var (
		kind   string
		sheet  string
		dryRun bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "import-dir DIR",
		Short: "Import every CSV and XLSX file in a directory",
		Long: "Import every CSV and XLSX file in DIR into one kind. Imported files move to\n" +
			"DIR/Uploaded; rows that failed are written to DIR/Failed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := c.parseLocale()
			if err != nil {
				return err
			}
			app, err := c.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			imp, err := app.Registry.Get(kind)
			if err != nil {
				return err
			}

			results, err := dirimport.Process(cmd.Context(), imp, args[0], dirimport.Options{
				Locale:              loc,
				Sheet:               sheet,
				MaxHeaderSearchRows: app.Config.Import.MaxHeaderSearchRows,
				DryRun:              dryRun,
			})
			if err != nil {
				return err
			}

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			}

			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
				}
				if asJSON {
					continue
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%s\n", res.File)
				switch {
				case res.Err != nil:
					fmt.Fprintf(w, "  error: %v\n", res.Err)
				case dryRun:
					printView(w, res.Preview)
				default:
					printReceipt(w, res.Receipt)
					if res.FailedFile != "" {
						fmt.Fprintf(w, "  failed rows: %s\n", res.FailedFile)
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Import kind (required)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview only; do not commit or move files")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write JSON instead of text")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}
