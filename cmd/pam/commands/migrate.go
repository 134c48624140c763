package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/teranos/pam/artefact"
	"github.com/teranos/pam/errors"
	"github.com/teranos/pam/logger"
	"github.com/teranos/pam/migration"
	"github.com/teranos/pam/owner"
)

type migrateOptions struct {
	op        string
	typeID    string
	source    string
	artefacts []string
	all       bool
	targets   []string
	dryRun    bool
}

func newMigrateCmd() *cobra.Command {
	var opts migrateOptions
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Delete, assign or copy personal artefacts in one batch",
		Long: `Run one batch operation over artefacts owned by a source owner.

  delete     remove every selected artefact
  assign     hand every selected artefact to each target in turn
  duplicate  copy every selected artefact to each target ("Copy + Assign")

Assign and duplicate run target by target. The batch stops at the first failed
unit; units already done are not rolled back. Press Ctrl-C to stop before the
next unit.`,
		Example: `  pam migrate --op delete --type userquery --source u-ana --artefact v-1 --artefact v-2
  pam migrate --op duplicate --type userform --source u-ana --all --target u-ben --target t-emea
  pam migrate --op assign --type userquery --source u-ana --all --target u-ben --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.op, "op", "", "Operation: delete, assign or duplicate")
	f.StringVar(&opts.typeID, "type", "", "Artefact type: userquery, userform or userqueryvisualization")
	f.StringVar(&opts.source, "source", "", "Owner whose artefacts are selected")
	f.StringSliceVar(&opts.artefacts, "artefact", nil, "Artefact ID to include (repeatable)")
	f.BoolVar(&opts.all, "all", false, "Select every artefact of the type owned by --source")
	f.StringSliceVar(&opts.targets, "target", nil, "Target owner ID for assign and duplicate (repeatable)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Print the plan without running it")
	_ = cmd.MarkFlagRequired("op")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("source")
	cmd.MarkFlagsMutuallyExclusive("artefact", "all")

	return cmd
}

func runMigrate(cmd *cobra.Command, opts migrateOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	op, ok := migration.ParseOperation(opts.op)
	if !ok {
		err := errors.NewInvalidRequestError("unknown operation %q", opts.op)
		return errors.WithHint(err, "choose one of duplicate, assign or delete")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	mode, err := migration.ParseProgressMode(a.cfg.Migration.ProgressMode)
	if err != nil {
		return err
	}

	snap, err := a.loadOwners(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	source, err := findOwner(snap, opts.source)
	if err != nil {
		return err
	}
	owned, err := a.registry.QueryByOwner(ctx, opts.typeID, source)
	if err != nil {
		return err
	}
	selected, err := selectArtefacts(owned, source, opts)
	if err != nil {
		return err
	}

	req := migration.Request{Operation: op, Source: source, Artefacts: selected}
	if op.NeedsTargets() {
		for _, id := range opts.targets {
			target, err := findOwner(snap, id)
			if err != nil {
				return err
			}
			req.Targets = append(req.Targets, target)
		}
	}
	if err := req.Validate(); err != nil {
		return err
	}

	if org := a.cfg.Organization(); org != "" {
		fmt.Fprintf(out, "Organization: %s\n", org)
	}
	if opts.dryRun {
		return printPlan(out, migration.NewPlan(req))
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	var progress migration.Observer = &cliProgress{w: out}
	if jsonOutput {
		progress = newJSONProgress(out)
	}

	engineOpts := []migration.Option{
		migration.WithConcurrency(a.cfg.Migration.Concurrency),
		migration.WithProgressMode(mode),
	}
	if ups := a.cfg.Migration.UnitsPerSecond; ups > 0 {
		engineOpts = append(engineOpts, migration.WithRateLimit(rate.NewLimiter(rate.Limit(ups), 1)))
	}

	observer := progress
	if a.cfg.Migration.RecordRuns {
		ledger := migration.NewLedger(a.db)
		rec, err := ledger.Begin(ctx, req, opts.typeID)
		if err != nil {
			return err
		}
		ctx = logger.WithRunID(ctx, rec.ID)
		observer = migration.Observers(progress, migration.NewLedgerObserver(ctx, ledger, rec))
		if !jsonOutput {
			fmt.Fprintf(out, "Run %s\n", rec.ID)
		}
	}
	engineOpts = append(engineOpts, migration.WithObserver(observer))

	res, err := migration.NewEngine(a.registry, engineOpts...).Run(ctx, req)
	if !jsonOutput {
		for _, dup := range res.Duplicates {
			fmt.Fprintf(out, "   created %s for %s\n", dup, ownerName(snap, dup.OwnerID))
		}
	}
	return err
}

// selectArtefacts picks the requested artefacts out of the source owner's list,
// keeping the order of --artefact.
func selectArtefacts(owned []artefact.Artefact, source owner.Owner, opts migrateOptions) ([]artefact.Artefact, error) {
	if opts.all {
		return owned, nil
	}

	byID := make(map[string]artefact.Artefact, len(owned))
	for _, x := range owned {
		byID[x.ID] = x
	}
	selected := make([]artefact.Artefact, 0, len(opts.artefacts))
	for _, id := range opts.artefacts {
		x, ok := byID[id]
		if !ok {
			err := errors.NewNotFoundError("%s artefact %s owned by %s", opts.typeID, id, source.Name)
			return nil, errors.WithHint(err, "run 'pam artefacts ls' to see what the source owner has")
		}
		selected = append(selected, x)
	}
	return selected, nil
}

func printPlan(w io.Writer, plan migration.Plan) error {
	fmt.Fprintf(w, "%s plan, %d units:\n", plan.Operation.Label(), plan.Total())
	for _, u := range plan.Units {
		if _, err := fmt.Fprintf(w, "  %3d. %s\n", u.Index+1, u); err != nil {
			return err
		}
	}
	return nil
}

func ownerName(snap *owner.Snapshot, id string) string {
	if o, ok := snap.Find(id); ok {
		return o.Name
	}
	return id
}
