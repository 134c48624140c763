package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/pam/migration"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recorded migration runs",
		Long: `Show the run ledger. Every migrate invocation is recorded while
migration.record_runs is true.`,
	}

	var (
		limit  int
		format string
	)
	ls := &cobra.Command{
		Use:   "ls",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := migration.NewLedger(a.db).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if runs == nil {
				runs = []*migration.RunRecord{}
			}

			if format != formatTable {
				return writeStructured(cmd.OutOrStdout(), format, runs)
			}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.ID,
					string(r.Operation),
					r.ArtefactType,
					string(r.Status),
					strconv.Itoa(r.Percent) + "%",
					fmt.Sprintf("%d/%d", r.UnitsCompleted, r.UnitsTotal),
					r.CreatedAt.Local().Format(time.DateTime),
				}
			}
			return writeTable(cmd.OutOrStdout(),
				[]string{"ID", "OPERATION", "TYPE", "STATUS", "PROGRESS", "UNITS", "STARTED"}, rows)
		},
	}
	ls.Flags().IntVar(&limit, "limit", 20, "Number of runs to show (0 for all)")
	ls.Flags().StringVarP(&format, "output", "o", formatTable, "Output format: table, yaml or json")

	var showFormat string
	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := migration.NewLedger(a.db).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeStructured(cmd.OutOrStdout(), showFormat, run)
		},
	}
	show.Flags().StringVarP(&showFormat, "output", "o", formatYAML, "Output format: yaml or json")

	cmd.AddCommand(ls, show)
	return cmd
}
