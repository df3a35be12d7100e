package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"vinylscout/internal/daemonctl"
)

const (
	startWaitTimeout = 15 * time.Second
	stopGracePeriod  = 20 * time.Second
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), cfg, exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath,
				LogLevel:   logLevel,
			}, startWaitTimeout)
			if err != nil {
				return err
			}
			printStartResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level for the daemon")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := daemonctl.StopAndTerminate(cmd.Context(), cfg, stopGracePeriod)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			printStopResult(cmd, result)
			return nil
		},
	}
}

func newRestartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Stop the background daemon if running, then start it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stopped, err := daemonctl.StopAndTerminate(cmd.Context(), cfg, stopGracePeriod)
			switch {
			case errors.Is(err, daemonctl.ErrDaemonNotRunning):
			case err != nil:
				return err
			default:
				printStopResult(cmd, stopped)
			}

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), cfg, exe, daemonctl.LaunchOptions{ConfigPath: ctx.configPath}, startWaitTimeout)
			if err != nil {
				return err
			}
			printStartResult(cmd, result)
			return nil
		},
	}
}

func printStartResult(cmd *cobra.Command, result daemonctl.StartResult) {
	out := cmd.OutOrStdout()
	switch result.State {
	case daemonctl.StartStateAlreadyRunning:
		fmt.Fprintf(out, "Daemon already running (pid %d)\n", result.PID)
	default:
		fmt.Fprintf(out, "Daemon started (pid %d)\n", result.PID)
	}
}

func printStopResult(cmd *cobra.Command, result daemonctl.StopResult) {
	out := cmd.OutOrStdout()
	if result.ForcedKill {
		fmt.Fprintf(out, "Daemon pid %d did not exit in time and was killed\n", result.PID)
		return
	}
	fmt.Fprintf(out, "Daemon stopped (pid %d)\n", result.PID)
}
