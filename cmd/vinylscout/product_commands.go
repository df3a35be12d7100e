package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vinylscout/internal/api"
	"vinylscout/internal/catalog"
)

const productPageSize = 500

func newProductCommand(ctx *commandContext) *cobra.Command {
	productCmd := &cobra.Command{
		Use:   "product",
		Short: "Manage catalog products",
	}
	productCmd.AddCommand(newProductAddCommand(ctx))
	productCmd.AddCommand(newProductListCommand(ctx))
	return productCmd
}

func newProductAddCommand(ctx *commandContext) *cobra.Command {
	var product catalog.Product
	var formats []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product by Discogs release id, barcode, or title and artist",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, f := range formats {
				if trimmed := strings.TrimSpace(f); trimmed != "" {
					product.FormatTags = append(product.FormatTags, trimmed)
				}
			}
			added, err := store.AddProduct(cmd.Context(), product)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.FromProduct(*added))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added product %d\n", added.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&product.CatalogID, "catalog-id", "", "Discogs release id")
	cmd.Flags().StringVar(&product.Barcode, "barcode", "", "EAN/UPC barcode")
	cmd.Flags().StringVar(&product.Title, "title", "", "Release title")
	cmd.Flags().StringVar(&product.Artist, "artist", "", "Artist name")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "Format tags such as Vinyl or LP (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newProductListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog products",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			var products []api.Product
			var after int64
			for {
				page, err := store.ProductsAfter(cmd.Context(), after, productPageSize)
				if err != nil {
					return err
				}
				for _, p := range page {
					products = append(products, api.FromProduct(p))
				}
				if len(page) < productPageSize {
					break
				}
				after = page[len(page)-1].ID
			}

			if jsonOutput {
				if products == nil {
					products = []api.Product{}
				}
				return writeJSON(cmd, products)
			}
			out := cmd.OutOrStdout()
			if len(products) == 0 {
				fmt.Fprintln(out, "Catalog is empty")
				return nil
			}
			rows := make([][]string, 0, len(products))
			for _, p := range products {
				rows = append(rows, []string{
					strconv.FormatInt(p.ID, 10),
					p.Artist,
					p.Title,
					p.CatalogID,
					p.Barcode,
					p.LastSyncedAt,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Artist", "Title", "Discogs", "Barcode", "Last synced"},
				rows,
				[]columnAlignment{alignRight},
				shouldColorize(out),
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
