package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/pam/artefact"
)

func newArtefactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "artefacts",
		Aliases: []string{"artifacts"},
		Short:   "List personal artefacts",
	}

	var typeID, ownerID, format string
	ls := &cobra.Command{
		Use:   "ls",
		Short: "List the artefacts of one type owned by one owner",
		Example: `  pam artefacts ls --type userquery --owner u-ana
  pam artefacts ls --type userform --owner t-emea -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				listed     []artefact.Artefact
				listedType artefact.Type
			)
			a, err := openApp(artefact.WithListListener(func(t artefact.Type, list []artefact.Artefact) {
				listedType, listed = t, list
			}))
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.loadOwners(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			o, err := findOwner(snap, ownerID)
			if err != nil {
				return err
			}
			if _, err := a.registry.QueryByOwner(cmd.Context(), typeID, o); err != nil {
				return err
			}
			if listed == nil {
				listed = []artefact.Artefact{}
			}

			w := cmd.OutOrStdout()
			if format != formatTable {
				return writeStructured(w, format, listed)
			}
			fmt.Fprintf(w, "%s of %s\n", listedType.Label(), o.Name)
			rows := make([][]string, len(listed))
			for i, x := range listed {
				rows[i] = []string{x.Name, x.Description, x.ID}
			}
			return writeTable(w, []string{"NAME", "DESCRIPTION", "ID"}, rows)
		},
	}
	ls.Flags().StringVar(&typeID, "type", "", "Artefact type: userquery, userform or userqueryvisualization")
	ls.Flags().StringVar(&ownerID, "owner", "", "Owner ID (see 'pam owners ls')")
	ls.Flags().StringVarP(&format, "output", "o", formatTable, "Output format: table, yaml or json")
	_ = ls.MarkFlagRequired("type")
	_ = ls.MarkFlagRequired("owner")

	cmd.AddCommand(ls)
	return cmd
}
