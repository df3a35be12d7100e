package services

import "context"

type contextKey string

const (
	productIDKey contextKey = "product_id"
	vendorKey    contextKey = "vendor"
	runIDKey     contextKey = "run_id"
	requestIDKey contextKey = "request_id"
)

// WithProductID annotates context with the catalog product identifier.
func WithProductID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, productIDKey, id)
}

// ProductIDFromContext extracts the product identifier if present.
func ProductIDFromContext(ctx context.Context) (int64, bool) {
	switch val := ctx.Value(productIDKey).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithVendor annotates context with the vendor being queried.
func WithVendor(ctx context.Context, vendor string) context.Context {
	if vendor == "" {
		return ctx
	}
	return context.WithValue(ctx, vendorKey, vendor)
}

// VendorFromContext returns the vendor name if present.
func VendorFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(vendorKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with the sync or sweep run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
