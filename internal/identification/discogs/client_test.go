package discogs_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vinylscout/internal/identification/discogs"
)

func TestNewRequiresToken(t *testing.T) {
	if _, err := discogs.New("", "https://api.discogs.com", "test"); err == nil {
		t.Fatal("expected error when token missing")
	}
	if _, err := discogs.New("token", " ", "test"); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestReleaseSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/releases/249504" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Discogs token=secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "VinylScoutTest/0.1" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 249504,
			"title": "Kid A",
			"year": 2000,
			"artists": [{"id": 3840, "name": "Radiohead", "anv": "", "join": ""}],
			"formats": [{"name": "Vinyl", "qty": "2", "descriptions": ["10\"", "Album"]}],
			"identifiers": [{"type": "Barcode", "value": "7 24352 77531 8"}]
		}`))
	}))
	t.Cleanup(server.Close)

	client, err := discogs.New("secret", server.URL+"/", "VinylScoutTest/0.1", discogs.WithRequestsPerMinute(0))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	release, err := client.Release(context.Background(), 249504)
	if err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if release.Title != "Kid A" || len(release.Artists) != 1 || release.Artists[0].Name != "Radiohead" {
		t.Fatalf("unexpected release: %#v", release)
	}
	if names := release.FormatNames(); len(names) != 1 || names[0] != "Vinyl" {
		t.Fatalf("FormatNames = %v", names)
	}
	if len(release.Identifiers) != 1 || release.Identifiers[0].Type != "Barcode" {
		t.Fatalf("identifiers not decoded: %#v", release.Identifiers)
	}
}

func TestReleaseNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Release not found."}`))
	}))
	t.Cleanup(server.Close)

	client, err := discogs.New("secret", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.Release(context.Background(), 1)
	if !errors.Is(err, discogs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReleaseHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, err := discogs.New("secret", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Release(context.Background(), 7); err == nil || errors.Is(err, discogs.ErrNotFound) {
		t.Fatalf("expected generic error, got %v", err)
	}
}

func TestReleaseRejectsInvalidID(t *testing.T) {
	client, err := discogs.New("secret", "https://example.com", "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Release(context.Background(), 0); err == nil {
		t.Fatal("expected error for zero id")
	}
}

func TestReleaseHonoursCancelledContext(t *testing.T) {
	client, err := discogs.New("secret", "https://example.com", "", discogs.WithRequestsPerMinute(1))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Release(ctx, 5); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
