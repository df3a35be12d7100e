package logging

import (
	"context"
	"log/slog"

	"vinylscout/internal/services"
)

const (
	// FieldComponent names the subsystem emitting the record (fetch, pricesync, cleanup...).
	FieldComponent = "component"
	// FieldEventType classifies a record for filtering, e.g. "vendor_blocked".
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact states the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType tags accept/reject decisions.
	FieldDecisionType = "decision_type"
	// FieldVendor is the offer source name.
	FieldVendor = "vendor"
	// FieldProductID is the catalog product identifier.
	FieldProductID = "product_id"
	// FieldRunID is the sync or sweep run identifier.
	FieldRunID = "run_id"
	// FieldCorrelationID carries the HTTP request id.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if id, ok := services.ProductIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldProductID, id))
	}
	if vendor, ok := services.VendorFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldVendor, vendor))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
