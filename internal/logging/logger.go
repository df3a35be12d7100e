package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vinylscout/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	// JSONPath, when set, receives a JSON copy of every record regardless of
	// the console format so runs can be inspected with jq afterwards.
	JSONPath    string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	outputWriter, err := openWriters(defaultSlice(opts.OutputPaths, []string{"stdout"}))
	if err != nil {
		return nil, err
	}

	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = newJSONHandler(outputWriter, levelVar, addSource)
	case "console":
		handler = newPrettyHandler(outputWriter, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if path := strings.TrimSpace(opts.JSONPath); path != "" {
		fileWriter, err := openWriters([]string{path})
		if err != nil {
			return nil, err
		}
		handler = newTeeHandler(handler, newJSONHandler(fileWriter, levelVar, addSource))
	}

	return slog.New(handler), nil
}

// NewFromConfig creates a logger using application config defaults. Console
// output goes to stdout and a JSON log is kept under the log directory.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	return newFromConfig(cfg, "stdout")
}

// NewCLIFromConfig is NewFromConfig for one-shot commands: console output
// goes to stderr so command output on stdout stays machine readable.
func NewCLIFromConfig(cfg *config.Config) (*slog.Logger, error) {
	return newFromConfig(cfg, "stderr")
}

func newFromConfig(cfg *config.Config, console string) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", OutputPaths: []string{console}})
	}

	// The handler runs at the most verbose configured level; the returned
	// logger is clamped back to the global level and ForVendor re-opens it.
	global := parseLevel(cfg.Logging.Level)
	base := global
	for _, level := range cfg.Logging.VendorLevels {
		if parsed := parseLevel(level); parsed < base {
			base = parsed
		}
	}

	opts := Options{
		Level:       base.String(),
		Format:      cfg.Logging.Format,
		OutputPaths: []string{console},
	}
	if cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		opts.JSONPath = JSONLogPath(cfg)
	}
	logger, err := New(opts)
	if err != nil {
		return nil, err
	}
	if base == global {
		return logger, nil
	}
	return WithLevelOverride(logger, global), nil
}

// JSONLogPath is the structured log file written alongside console output.
func JSONLogPath(cfg *config.Config) string {
	if cfg == nil || cfg.Paths.LogDir == "" {
		return ""
	}
	return filepath.Join(cfg.Paths.LogDir, "vinylscout.log")
}

// ForVendor returns the logger a vendor adapter should use, applying any
// per-vendor level override from configuration.
func ForVendor(logger *slog.Logger, cfg *config.Config, vendor string) *slog.Logger {
	logger = NewComponentLogger(logger, "vendor").With(String(FieldVendor, vendor))
	if cfg == nil {
		return logger
	}
	if level, ok := cfg.Logging.VendorLevels[strings.ToLower(vendor)]; ok {
		return WithLevelOverride(logger, parseLevel(level))
	}
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}

func defaultSlice(value []string, fallback []string) []string {
	if len(value) == 0 {
		cp := make([]string, len(fallback))
		copy(cp, fallback)
		return cp
	}
	cp := make([]string, len(value))
	copy(cp, value)
	return cp
}

func openWriters(paths []string) (io.Writer, error) {
	seen := map[string]struct{}{}
	var writers []io.Writer

	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := ensureLogDir(trimmed); err != nil {
				return nil, err
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
		}
	}

	if len(writers) == 0 {
		return os.Stdout, nil
	}
	if len(writers) == 1 {
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
