package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"vinylscout/internal/catalogaccess"
	"vinylscout/internal/cleanup"
	"vinylscout/internal/config"
	"vinylscout/internal/daemon"
	"vinylscout/internal/logging"
	"vinylscout/internal/pricesync"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level for this process when set.
	LogLevel string
}

// Run starts the vinylscout daemon and blocks until the context is cancelled
// or the process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	runCfg := *cfg
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		runCfg.Logging.Level = level
	}
	logger, err := logging.NewFromConfig(&runCfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := catalogaccess.Open(signalCtx, cfg)
	if err != nil {
		logger.Error("open catalog", logging.Error(err))
		return err
	}
	defer store.Close()

	syncer, err := pricesync.NewFromConfig(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("build syncer: %w", err)
	}
	sweeper, err := cleanup.NewFromConfig(cfg, store, logger, false)
	if err != nil {
		return fmt.Errorf("build sweeper: %w", err)
	}

	logConfigSnapshot(logger, cfg, syncer.Vendors())

	d, err := daemon.New(cfg, store, syncer, sweeper, logger, daemon.WithVendors(syncer.Vendors()))
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.api_bind and catalog access"),
		)
		return err
	}
	defer d.Stop()

	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	<-signalCtx.Done()
	logger.Info("vinylscout daemon shutting down")
	return nil
}

// PIDPath is where the running daemon records its process id.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "vinylscout.pid")
}

// ReadPID returns the process id recorded by a running daemon.
func ReadPID(cfg *config.Config) (int, error) {
	data, err := os.ReadFile(PIDPath(cfg))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file: %w", err)
	}
	return pid, nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config, vendorNames []string) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("catalog_driver", cfg.Catalog.Driver),
		logging.String("vendors", strings.Join(vendorNames, ",")),
		logging.Int("vendor_count", len(vendorNames)),
		logging.Bool("discogs_token_present", strings.TrimSpace(cfg.Discogs.Token) != ""),
		logging.Duration("sync_interval", cfg.SyncInterval()),
		logging.Duration("cleanup_interval", cfg.CleanupInterval()),
		logging.Bool("link_checks", cfg.Cleanup.CheckLinks),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_present", strings.TrimSpace(cfg.Paths.APIToken) != ""),
		logging.Bool("ntfy_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}
