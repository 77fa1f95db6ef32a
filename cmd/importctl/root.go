package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogimport/internal/application"
	"github.com/JonMunkholm/catalogimport/internal/config"
	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/JonMunkholm/catalogimport/internal/logging"
)

// cli carries what every subcommand needs to open the application.
type cli struct {
	lookup func(string) (string, bool)
	locale string
}

func newRootCmd(lookup func(string) (string, bool)) *cobra.Command {
	c := &cli{lookup: lookup}

	cmd := &cobra.Command{
		Use:          "importctl",
		Short:        "Preview and commit catalog import files",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&c.locale, "locale", "", "Number format of the files: nl or en (default from IMPORT_LOCALE)")

	cmd.AddCommand(
		newKindsCmd(c),
		newPreviewCmd(c),
		newDirCmd(c),
		newMigrateCmd(c),
		newResetCmd(c),
	)
	return cmd
}

// open loads the configuration and connects its backends. Logs go to
// stderr so stdout stays parseable.
func (c *cli) open(ctx context.Context, cmd *cobra.Command) (*application.App, error) {
	cfg, err := config.LoadFrom(c.lookup)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format))
	return application.New(ctx, cfg)
}

// parseLocale returns the --locale flag; zero leaves the configured default.
func (c *cli) parseLocale() (imports.Locale, error) {
	if c.locale == "" {
		return imports.Locale{}, nil
	}
	loc, ok := imports.LocaleByName(c.locale)
	if !ok {
		return imports.Locale{}, fmt.Errorf("invalid --locale %q: want nl or en", c.locale)
	}
	return loc, nil
}
