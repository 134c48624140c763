package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/owner"
)

func newOwnersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owners",
		Short: "List users and teams that can own artefacts",
	}

	var kind, format string
	ls := &cobra.Command{
		Use:   "ls",
		Short: "Load the owner directory and list it",
		Long: `Load enabled users and owner teams from the record store.

Users are listed first, then teams, each sorted by name. When one of the two
queries fails the other half is still listed and a warning is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter owner.Kind
			if kind != "" {
				k, ok := owner.ParseKind(kind)
				if !ok {
					err := errors.NewInvalidRequestError("unknown owner kind %q", kind)
					return errors.WithHint(err, "use user or team")
				}
				filter = k
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.loadOwners(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			owners := snap.Owners()
			switch filter {
			case owner.KindUser:
				owners = snap.Users()
			case owner.KindTeam:
				owners = snap.Teams()
			}
			if owners == nil {
				owners = []owner.Owner{}
			}

			if format != formatTable {
				return writeStructured(cmd.OutOrStdout(), format, owners)
			}
			rows := make([][]string, len(owners))
			for i, o := range owners {
				rows[i] = []string{o.Kind.String(), o.Name, o.ID}
			}
			return writeTable(cmd.OutOrStdout(), []string{"KIND", "NAME", "ID"}, rows)
		},
	}
	ls.Flags().StringVar(&kind, "kind", "", "Only list owners of this kind (user or team)")
	ls.Flags().StringVarP(&format, "output", "o", formatTable, "Output format: table, yaml or json")

	cmd.AddCommand(ls)
	return cmd
}
