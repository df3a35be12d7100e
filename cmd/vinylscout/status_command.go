package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vinylscout/internal/api"
	"vinylscout/internal/daemonctl"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon is running and its last runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			status, fetchErr := daemonctl.FetchStatus(cmd.Context(), cfg)
			if jsonOutput {
				if fetchErr != nil {
					return fetchErr
				}
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("VinylScout", colorize) {
				fmt.Fprintln(out, line)
			}
			pid, alive := daemonctl.ProcessInfo(cfg)
			switch {
			case fetchErr == nil:
				msg := "Running"
				if alive {
					msg = fmt.Sprintf("Running (pid %d)", pid)
				}
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, msg, colorize))
			case alive:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, fmt.Sprintf("pid %d alive but API unreachable: %v", pid, fetchErr), colorize))
				return nil
			default:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, "Not running", colorize))
				return nil
			}

			busy := "idle"
			if status.Busy != "" {
				busy = status.Busy + " in progress"
			}
			fmt.Fprintln(out, renderStatusLine("Activity", statusInfo, busy, colorize))
			fmt.Fprintln(out, renderStatusLine("Vendors", statusInfo, strings.Join(status.Vendors, ", "), colorize))
			fmt.Fprintln(out, jobStatusLine("Last sync", status.Sync, colorize))
			fmt.Fprintln(out, jobStatusLine("Last sweep", status.Sweep, colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func jobStatusLine(label string, job api.JobStatus, colorize bool) string {
	switch {
	case job.LastStarted == "":
		return renderStatusLine(label, statusInfo, "never", colorize)
	case job.LastFinished == "" || job.LastFinished < job.LastStarted:
		return renderStatusLine(label, statusInfo, "running since "+job.LastStarted, colorize)
	case job.LastError != "":
		return renderStatusLine(label, statusError, job.LastFinished+": "+job.LastError, colorize)
	default:
		return renderStatusLine(label, statusOK, job.LastFinished, colorize)
	}
}
