package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vinylscout/internal/logging"
	"vinylscout/internal/matching"
	"vinylscout/internal/vendors"
)

type vendorView struct {
	Name       string `json:"name"`
	Channel    string `json:"channel"`
	Enabled    bool   `json:"enabled"`
	Registered bool   `json:"registered"`
	Barcode    bool   `json:"barcodeSearch"`
	FormatPure bool   `json:"formatPure"`
	Note       string `json:"note,omitempty"`
}

func newVendorsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "vendors",
		Short: "Show which vendor adapters are enabled and registered",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			registry, err := vendors.NewRegistry(cfg, nil, matching.NewFromConfig(cfg), logging.NewNop())
			if err != nil {
				return err
			}

			views := make([]vendorView, 0, len(registry.Statuses()))
			for _, st := range registry.Statuses() {
				views = append(views, vendorView{
					Name:       st.Profile.Name,
					Channel:    string(st.Profile.Channel),
					Enabled:    st.Enabled,
					Registered: st.Registered,
					Barcode:    st.Profile.Barcode,
					FormatPure: st.Profile.FormatPure,
					Note:       st.Note,
				})
			}
			if jsonOutput {
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Vendors", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, v := range views {
				kind, msg := statusOK, "registered ("+v.Channel+")"
				switch {
				case !v.Enabled:
					kind, msg = statusInfo, "disabled"
				case !v.Registered:
					kind, msg = statusWarn, v.Note
				}
				fmt.Fprintln(out, renderStatusLine(v.Name, kind, msg, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
