package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogimport/internal/admin"
	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/store"
)

var errNoDatabase = errors.New("DATABASE_URL is not set")

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Pool == nil {
				return errNoDatabase
			}
			if err := store.Migrate(cmd.Context(), app.Pool, catalog.Schema()...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newResetCmd(c *cli) *cobra.Command {
	var (
		yes        bool
		references bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all imported catalog records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes every imported record; pass --yes to confirm")
			}
			app, err := c.open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Pool == nil {
				return errNoDatabase
			}
			tables := admin.Tables(app.Registry)
			if references {
				tables = append(tables, admin.ReferencesTable)
			}
			if err := admin.ResetAll(cmd.Context(), app.Pool, tables...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d tables\n", len(tables))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	cmd.Flags().BoolVar(&references, "references", false, "Also clear the reference keys")
	return cmd
}
