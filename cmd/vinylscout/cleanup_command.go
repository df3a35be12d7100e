package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"vinylscout/internal/cleanup"
	"vinylscout/internal/daemon"
)

type sweepReportView struct {
	RunID           string         `json:"runId"`
	DryRun          bool           `json:"dryRun"`
	ProductsScanned int            `json:"productsScanned"`
	OffersScanned   int            `json:"offersScanned"`
	ProductsDeleted int            `json:"productsDeleted"`
	OffersDeleted   int            `json:"offersDeleted"`
	FailedDeletes   int            `json:"failedDeletes"`
	Reasons         map[string]int `json:"reasons"`
	Duration        string         `json:"duration"`
	Error           string         `json:"error,omitempty"`
}

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run the catalog integrity sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock, err := daemon.AcquireRunLock(cfg.LockPath())
			if err != nil {
				return err
			}
			defer lock.Release() //nolint:errcheck

			store, err := ctx.openCatalog(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			sweeper, err := cleanup.NewFromConfig(cfg, store, logger, dryRun)
			if err != nil {
				return err
			}

			report, runErr := sweeper.Run(cmd.Context())
			view := newSweepReportView(report, runErr)
			if jsonOutput {
				if err := writeJSON(cmd, view); err != nil {
					return err
				}
			} else {
				printSweepReport(cmd.OutOrStdout(), view)
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be deleted without deleting")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newSweepReportView(report cleanup.Report, runErr error) sweepReportView {
	reasons := report.Reasons
	if reasons == nil {
		reasons = map[string]int{}
	}
	view := sweepReportView{
		RunID:           report.RunID,
		DryRun:          report.DryRun,
		ProductsScanned: report.ProductsScanned,
		OffersScanned:   report.OffersScanned,
		ProductsDeleted: report.ProductsDeleted,
		OffersDeleted:   report.OffersDeleted,
		FailedDeletes:   report.FailedDeletes,
		Reasons:         reasons,
		Duration:        report.Duration.Round(time.Millisecond).String(),
	}
	if runErr != nil {
		view.Error = runErr.Error()
	}
	return view
}

func printSweepReport(out io.Writer, view sweepReportView) {
	verb := "Deleted"
	if view.DryRun {
		verb = "Would delete"
		fmt.Fprintln(out, "Dry run: nothing was deleted")
	}
	fmt.Fprintf(out, "Sweep run %s\n", view.RunID)
	fmt.Fprintf(out, "  Scanned: %d products, %d offers\n", view.ProductsScanned, view.OffersScanned)
	fmt.Fprintf(out, "  %s: %d products, %d offers\n", verb, view.ProductsDeleted, view.OffersDeleted)
	if view.FailedDeletes > 0 {
		fmt.Fprintf(out, "  Failed deletes: %d\n", view.FailedDeletes)
	}
	for _, reason := range slices.Sorted(maps.Keys(view.Reasons)) {
		fmt.Fprintf(out, "    %-20s %d\n", reason, view.Reasons[reason])
	}
	fmt.Fprintf(out, "  Duration: %s\n", view.Duration)
}
