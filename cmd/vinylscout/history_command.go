package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vinylscout/internal/api"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history <product-id>",
		Short: "Show the daily lowest-price history of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.openCatalog(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := store.Product(cmd.Context(), id); err != nil {
				return err
			}
			points, err := store.PriceHistory(cmd.Context(), id, limit)
			if err != nil {
				return err
			}
			resp := api.FromHistory(id, points)
			if jsonOutput {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if len(resp.Points) == 0 {
				fmt.Fprintln(out, "No price history")
				return nil
			}
			rows := make([][]string, 0, len(resp.Points))
			for _, p := range resp.Points {
				rows = append(rows, []string{p.Date, formatWon(p.Price)})
			}
			fmt.Fprintln(out, renderTable([]string{"Date", "Lowest"}, rows, []columnAlignment{alignLeft, alignRight}, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 30, "Number of days to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
