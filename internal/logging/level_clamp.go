package logging

import (
	"context"
	"log/slog"
)

// clampHandler drops records below min before they reach inner. The root
// handler runs at the most verbose vendor level and each logger clamps back to
// its own threshold, so one vendor can log at debug without the rest doing so.
type clampHandler struct {
	inner slog.Handler
	min   slog.Level
}

func (h clampHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.min && h.inner.Enabled(ctx, level)
}

func (h clampHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.min {
		return nil
	}
	return h.inner.Handle(ctx, record)
}

func (h clampHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return clampHandler{inner: h.inner.WithAttrs(attrs), min: h.min}
}

func (h clampHandler) WithGroup(name string) slog.Handler {
	return clampHandler{inner: h.inner.WithGroup(name), min: h.min}
}

// WithLevelOverride returns logger with its minimum level replaced. An
// existing clamp is swapped rather than stacked, so an override can also
// lower the threshold.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	inner := logger.Handler()
	if clamped, ok := inner.(clampHandler); ok {
		inner = clamped.inner
	}
	return slog.New(clampHandler{inner: inner, min: level})
}
