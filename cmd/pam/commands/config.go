package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/settings"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and update pam configuration",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging every source, lowest precedence first:
/etc/pam/config.toml, ~/.pam/config.toml, ~/.pam/session.toml, pam.toml found
from the working directory upward, and PAM_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := settings.Load()
			if err != nil {
				return errors.Wrap(err, "failed to load configuration")
			}
			return writeStructured(cmd.OutOrStdout(), format, cfg)
		},
	}
	show.Flags().StringVarP(&format, "output", "o", formatTOML, "Output format: toml or yaml")

	var sourcesFormat string
	sources := &cobra.Command{
		Use:   "sources",
		Short: "Show where each setting comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settingsInfo := settings.Introspect()
			if sourcesFormat != formatTable {
				return writeStructured(cmd.OutOrStdout(), sourcesFormat, settingsInfo)
			}
			rows := make([][]string, len(settingsInfo))
			for i, s := range settingsInfo {
				rows[i] = []string{s.Key, fmt.Sprint(s.Value), string(s.Source), s.Path}
			}
			return writeTable(cmd.OutOrStdout(), []string{"KEY", "VALUE", "SOURCE", "FROM"}, rows)
		},
	}
	sources.Flags().StringVarP(&sourcesFormat, "output", "o", formatTable, "Output format: table, yaml or json")

	useOrg := &cobra.Command{
		Use:   "use-org <url>",
		Short: "Remember the organisation pam works against",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := settings.UpdateLastUsedOrganization(args[0]); err != nil {
				return err
			}
			path, err := settings.SessionPath()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Organization set to %s (saved in %s)\n", args[0], path)
			return nil
		},
	}

	cmd.AddCommand(show, sources, useOrg)
	return cmd
}
