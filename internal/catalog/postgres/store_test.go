package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"vinylscout/internal/catalog"
	"vinylscout/internal/catalog/postgres"
)

func openTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("VINYLSCOUT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("VINYLSCOUT_TEST_PG_DSN not set")
	}
	store, err := postgres.Open(context.Background(), dsn, postgres.Options{MaxConns: 2, WriteBatch: 2})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestReplaceOffersBatchesAndCascades(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	product, err := store.AddProduct(ctx, catalog.Product{Title: "Pg Test", Artist: "Batch Band", FormatTags: []string{"Vinyl"}})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	t.Cleanup(func() { _, _ = store.DeleteProducts(context.Background(), []int64{product.ID}) })

	offers := []catalog.Offer{
		{VendorName: "yes24", ChannelID: catalog.ChannelBookstore, BasePrice: 30000, URL: "u1"},
		{VendorName: "aladin", ChannelID: catalog.ChannelBookstore, BasePrice: 31000, URL: "u2"},
		{VendorName: "hyang", ChannelID: catalog.ChannelRecordShop, BasePrice: 29000, URL: "u3", InStock: true},
	}
	if err := store.ReplaceOffers(ctx, product.ID, offers, time.Now()); err != nil {
		t.Fatalf("ReplaceOffers: %v", err)
	}
	stored, err := store.OffersForProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("OffersForProduct: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("expected 3 offers across batches, got %d", len(stored))
	}

	inserted, err := store.AppendPriceHistory(ctx, catalog.PriceHistoryPoint{ProductID: product.ID, Date: "2024-05-01", Price: 29000})
	if err != nil || !inserted {
		t.Fatalf("AppendPriceHistory = %v, %v", inserted, err)
	}
	again, err := store.AppendPriceHistory(ctx, catalog.PriceHistoryPoint{ProductID: product.ID, Date: "2024-05-01", Price: 1})
	if err != nil || again {
		t.Fatalf("second write of the day = %v, %v", again, err)
	}

	if _, err := store.DeleteProducts(ctx, []int64{product.ID}); err != nil {
		t.Fatalf("DeleteProducts: %v", err)
	}
	stored, _ = store.OffersForProduct(ctx, product.ID)
	if len(stored) != 0 {
		t.Fatalf("orphan offers remain: %+v", stored)
	}
	if _, err := store.Product(ctx, product.ID); !errors.Is(err, catalog.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
