package services_test

import (
	"context"
	"testing"

	"vinylscout/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithProductID(ctx, 42)
	ctx = services.WithVendor(ctx, "aladin")
	ctx = services.WithRunID(ctx, "run-9")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.ProductIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected product id: %v %v", id, ok)
	}
	if vendor, ok := services.VendorFromContext(ctx); !ok || vendor != "aladin" {
		t.Fatalf("unexpected vendor: %v %v", vendor, ok)
	}
	if run, ok := services.RunIDFromContext(ctx); !ok || run != "run-9" {
		t.Fatalf("unexpected run id: %v %v", run, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := services.WithVendor(context.Background(), "")
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.VendorFromContext(ctx); ok {
		t.Fatal("expected no vendor value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
	if _, ok := services.ProductIDFromContext(ctx); ok {
		t.Fatal("expected no product id value")
	}
}
