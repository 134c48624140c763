package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/pam/crm"
	"github.com/teranos/pam/db"
	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/logger"
	"github.com/teranos/pam/settings"
)

func newDbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the local record store",
		Long: `Manage the SQLite database that stands in for the organisation's record store.

Examples:
  pam db migrate              # Create or upgrade the schema
  pam db import org.yaml      # Load users, teams and artefacts from a fixture`,
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := settings.Load()
			if err != nil {
				return errors.Wrap(err, "failed to load configuration")
			}
			database, err := db.Open(cfg.Database.Path, logger.Logger)
			if err != nil {
				return errors.Wrapf(err, "failed to open database at %s", cfg.Database.Path)
			}
			defer database.Close()

			applied, err := db.Apply(database, logger.Logger)
			out := cmd.OutOrStdout()
			for _, m := range applied {
				fmt.Fprintf(out, "Applied %s\n", m.File)
			}
			if err != nil {
				return errors.Wrapf(err, "failed to run migrations on %s", cfg.Database.Path)
			}
			if len(applied) == 0 {
				fmt.Fprintf(out, "Schema at %s is up to date\n", cfg.Database.Path)
			}
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import <fixture.yaml>",
		Short: "Import users, teams and artefacts from a YAML fixture",
		Long: `Import a YAML fixture into the local record store. Rows with the same
id are replaced, so importing the same file twice is harmless.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := crm.LoadFixture(args[0])
			if err != nil {
				return err
			}

			cfg, err := settings.Load()
			if err != nil {
				return errors.Wrap(err, "failed to load configuration")
			}
			database, err := openDatabase(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer database.Close()

			stats, err := crm.Import(cmd.Context(), database, fixture)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", stats)
			return nil
		},
	}

	cmd.AddCommand(migrate, importCmd)
	return cmd
}
