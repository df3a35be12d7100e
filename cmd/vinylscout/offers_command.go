package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vinylscout/internal/api"
)

func newOffersCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "offers <product-id>",
		Short: "Show ranked offers for a product",
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

			product, err := store.Product(cmd.Context(), id)
			if err != nil {
				return err
			}
			offers, err := store.OffersForProduct(cmd.Context(), id)
			if err != nil {
				return err
			}
			resp := api.NewOffersResponse(*product, offers)
			if jsonOutput {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s - %s\n", resp.Product.Artist, resp.Product.Title)
			if len(resp.Offers) == 0 {
				fmt.Fprintln(out, "No offers")
				return nil
			}
			fmt.Fprintf(out, "Lowest: %s\n", formatWon(resp.Lowest))
			fmt.Fprintln(out, renderOffersTable(resp.Offers, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderOffersTable(offers []api.Offer, styled bool) string {
	rows := make([][]string, 0, len(offers))
	for _, o := range offers {
		rows = append(rows, []string{
			strconv.Itoa(o.Rank),
			o.Vendor,
			o.Channel,
			formatWon(o.BasePrice),
			formatWon(o.ShippingFee),
			formatWon(o.EffectivePrice),
			yesNo(o.InStock),
			o.AffiliateURL,
		})
	}
	return renderTable(
		[]string{"#", "Vendor", "Channel", "Price", "Shipping", "Total", "In stock", "Link"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
		styled,
	)
}
