// Package commands implements the pam command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/logger"
	"github.com/teranos/pam/settings"
)

// NewRootCmd builds the pam command tree. Every call returns a fresh tree with
// its own flag state.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pam",
		Short: "pam - Personal artefact manager",
		Long: `pam - Manage personal views, dashboards and visualizations.

pam lists the users and teams of an organisation, shows the personal artefacts
each of them owns, and moves those artefacts between owners in batches.

Available commands:
  owners    - List users and teams that can own artefacts
  artefacts - List an owner's personal artefacts
  migrate   - Delete, assign or copy artefacts in one batch
  runs      - Show recorded migration runs
  db        - Manage the local record store
  config    - Show and update pam configuration

Examples:
  pam db import org.yaml                          # Seed the local store
  pam owners ls                                   # Users first, then teams
  pam artefacts ls --type userquery --owner u-1   # Personal Views of u-1
  pam migrate --op assign --type userquery --source u-1 --all --target t-7`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbosity, _ := cmd.Flags().GetCount("verbose")
			jsonOutput, _ := cmd.Flags().GetBool("json")
			if cfg, err := settings.Load(); err == nil && cfg.Log.JSON {
				jsonOutput = true
			}
			if err := logger.InitializeWithVerbosity(jsonOutput, verbosity); err != nil {
				return errors.Wrap(err, "failed to initialize logger")
			}
			if ctx := cmd.Context(); ctx != nil {
				cmd.SetContext(logger.WithComponent(ctx, "cli."+cmd.Name()))
			}
			return nil
		},
	}

	root.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	root.PersistentFlags().Bool("json", false, "Emit logs and migration progress as JSON")

	root.AddCommand(
		newOwnersCmd(),
		newArtefactsCmd(),
		newMigrateCmd(),
		newRunsCmd(),
		newDbCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}
