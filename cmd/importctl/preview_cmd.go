package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogimport/internal/imports"
)

type previewOutput struct {
	Preview *imports.PreviewView   `json:"preview"`
	Receipt *imports.CommitReceipt `json:"receipt,omitempty"`
}

func newPreviewCmd(c *cli) *cobra.Command {
	var (
		kind   string
		sheet  string
		commit bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Preview a CSV or XLSX file, optionally committing it",
		Args:  cobra.ExactArgs(1),
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

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			opts := imp.Info().ReadOptions()
			opts.Sheet = sheet
			opts.MaxHeaderSearchRows = app.Config.Import.MaxHeaderSearchRows
			table, err := imports.ReadFile(filepath.Base(args[0]), f, opts)
			if err != nil {
				return err
			}

			view, err := imp.PreviewTable(cmd.Context(), table, loc)
			if err != nil {
				return err
			}

			out := previewOutput{Preview: view}
			var commitErr error
			if commit {
				rcpt, err := imp.Commit(cmd.Context(), view.SessionID)
				out.Receipt, commitErr = &rcpt, err
			}

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else {
				printView(cmd.OutOrStdout(), view)
				if out.Receipt != nil {
					printReceipt(cmd.OutOrStdout(), *out.Receipt)
				}
			}
			if commitErr != nil {
				return fmt.Errorf("commit: %w", commitErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Import kind (required, see 'importctl kinds')")
	cmd.Flags().StringVar(&sheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	cmd.Flags().BoolVar(&commit, "commit", false, "Commit the preview")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write JSON instead of text")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}
