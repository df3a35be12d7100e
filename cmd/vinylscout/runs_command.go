package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vinylscout/internal/api"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent sync and sweep runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			store, err := ctx.openCatalog(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			resp := api.FromRuns(runs)
			if jsonOutput {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if len(resp.Runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(resp.Runs))
			for _, r := range resp.Runs {
				rows = append(rows, []string{
					r.ID,
					r.Kind,
					r.Status,
					r.StartedAt,
					strconv.Itoa(r.Processed),
					strconv.Itoa(r.WithOffers),
					strconv.Itoa(r.Deleted),
					r.Detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Kind", "Status", "Started", "Processed", "Offers", "Deleted", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				shouldColorize(out),
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
