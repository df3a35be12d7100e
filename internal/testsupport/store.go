package testsupport

import (
	"context"
	"testing"

	"vinylscout/internal/catalog"
	"vinylscout/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustAddProduct inserts a product and fails the test on error.
func MustAddProduct(t testing.TB, store catalog.Repository, product catalog.Product) *catalog.Product {
	t.Helper()

	added, err := store.AddProduct(context.Background(), product)
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	return added
}
