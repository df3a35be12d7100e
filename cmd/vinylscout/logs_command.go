package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vinylscout/internal/logging"
	"vinylscout/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var raw bool
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon's structured log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if lines < 0 {
				return fmt.Errorf("--lines must not be negative")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := logging.JSONLogPath(cfg)
			if path == "" {
				return fmt.Errorf("paths.log_dir is not configured")
			}
			filter.MinLevel = strings.ToLower(strings.TrimSpace(filter.MinLevel))

			out := cmd.OutOrStdout()
			emit := func(line string) error {
				return printLogLine(out, line, filter, raw)
			}

			tail, offset, err := logs.Tail(path, lines)
			if err != nil {
				return err
			}
			if len(tail) == 0 && !follow {
				fmt.Fprintf(out, "No log entries in %s\n", path)
				return nil
			}
			for _, line := range tail {
				if err := emit(line); err != nil {
					return err
				}
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, 0, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print JSON records unchanged")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&filter.Vendor, "vendor", "", "Only show entries for this vendor")
	cmd.Flags().StringVar(&filter.RunID, "run", "", "Only show entries for this run id")
	return cmd
}

func printLogLine(out io.Writer, line string, filter logs.Filter, raw bool) error {
	entry, parsed := logs.Parse(line)
	if !filter.Match(entry, parsed) {
		return nil
	}
	text := line
	if !raw {
		text = logs.Format(entry, parsed)
	}
	_, err := fmt.Fprintln(out, text)
	return err
}
