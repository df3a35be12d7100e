package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vinylscout/internal/api"
	"vinylscout/internal/daemon"
	"vinylscout/internal/pricesync"
)

type syncReportView struct {
	RunID          string   `json:"runId"`
	Processed      int      `json:"processed"`
	WithOffers     int      `json:"withOffers"`
	Cleared        int      `json:"cleared"`
	Skipped        int      `json:"skipped"`
	StoreErrors    int      `json:"storeErrors"`
	Aborted        bool     `json:"aborted"`
	BlockedVendors []string `json:"blockedVendors,omitempty"`
	Duration       string   `json:"duration"`
	Error          string   `json:"error,omitempty"`
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var productFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh offers for every catalog product, or one with --product",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var productID int64
			if strings.TrimSpace(productFlag) != "" {
				if productID, err = parseProductID(productFlag); err != nil {
					return err
				}
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
			syncer, err := pricesync.NewFromConfig(cfg, store, logger)
			if err != nil {
				return err
			}

			if productID > 0 {
				outcome, err := syncer.SyncProduct(cmd.Context(), productID)
				if err != nil {
					return err
				}
				view := api.RefreshResponse{
					ProductID: outcome.ProductID,
					Result:    string(outcome.Result),
					Reason:    outcome.Reason,
					Offers:    api.FromOffers(outcome.Offers),
				}
				if jsonOutput {
					return writeJSON(cmd, view)
				}
				printRefresh(cmd.OutOrStdout(), view)
				return nil
			}

			report, runErr := syncer.Run(cmd.Context())
			view := newSyncReportView(report, runErr)
			if jsonOutput {
				if err := writeJSON(cmd, view); err != nil {
					return err
				}
			} else {
				printSyncReport(cmd.OutOrStdout(), view)
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&productFlag, "product", "p", "", "Sync a single product id")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newSyncReportView(report pricesync.Report, runErr error) syncReportView {
	view := syncReportView{
		RunID:          report.RunID,
		Processed:      report.Processed,
		WithOffers:     report.WithOffers,
		Cleared:        report.Cleared,
		Skipped:        report.Skipped,
		StoreErrors:    report.StoreErrors,
		Aborted:        report.Aborted,
		BlockedVendors: report.BlockedVendors,
		Duration:       report.Duration.Round(time.Millisecond).String(),
	}
	if runErr != nil {
		view.Error = runErr.Error()
	}
	return view
}

func printSyncReport(out io.Writer, view syncReportView) {
	fmt.Fprintf(out, "Sync run %s\n", view.RunID)
	fmt.Fprintf(out, "  Processed:    %d\n", view.Processed)
	fmt.Fprintf(out, "  With offers:  %d\n", view.WithOffers)
	fmt.Fprintf(out, "  Cleared:      %d\n", view.Cleared)
	fmt.Fprintf(out, "  Skipped:      %d\n", view.Skipped)
	if view.StoreErrors > 0 {
		fmt.Fprintf(out, "  Store errors: %d\n", view.StoreErrors)
	}
	if view.Aborted {
		fmt.Fprintf(out, "  Aborted: blocked by %s\n", strings.Join(view.BlockedVendors, ", "))
	}
	fmt.Fprintf(out, "  Duration:     %s\n", view.Duration)
}

func printRefresh(out io.Writer, view api.RefreshResponse) {
	line := fmt.Sprintf("Product %d: %s", view.ProductID, view.Result)
	if view.Reason != "" {
		line += " (" + view.Reason + ")"
	}
	fmt.Fprintln(out, line)
	if len(view.Offers) > 0 {
		fmt.Fprintln(out, renderOffersTable(view.Offers, shouldColorize(out)))
	}
}
