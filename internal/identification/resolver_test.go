package identification

import (
	"context"
	"errors"
	"testing"
	"time"

	"vinylscout/internal/catalog"
	"vinylscout/internal/identification/discogs"
)

type stubLooker struct {
	releases map[int64]*discogs.Release
	err      error
	calls    int
}

func (s *stubLooker) Release(_ context.Context, id int64) (*discogs.Release, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	release, ok := s.releases[id]
	if !ok {
		return nil, discogs.ErrNotFound
	}
	return release, nil
}

func vinylRelease() *discogs.Release {
	return &discogs.Release{
		ID:      42,
		Title:   "In Rainbows",
		Artists: []discogs.Artist{{Name: "Radiohead"}},
		Formats: []discogs.Format{{Name: "Vinyl", Qty: "1"}},
		Identifiers: []discogs.Identifier{
			{Type: "Matrix / Runout", Value: "XLLP 324 A"},
			{Type: "Barcode", Value: "6 34904 03241 2"},
		},
	}
}

func TestResolvePassThrough(t *testing.T) {
	looker := &stubLooker{releases: map[int64]*discogs.Release{42: vinylRelease()}}
	resolver := NewResolver(looker, nil, nil)

	tests := []struct {
		name string
		id   catalog.Identifier
	}{
		{"barcode present", catalog.Identifier{CatalogID: "42", Barcode: "8801234567890"}},
		{"no catalog id", catalog.Identifier{Title: "Blue", Artist: "Joni Mitchell"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.Resolve(context.Background(), tt.id)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got != tt.id {
				t.Fatalf("identifier changed: %+v", got)
			}
		})
	}
	if looker.calls != 0 {
		t.Fatalf("lookup should not run, got %d calls", looker.calls)
	}
}

func TestResolveEnrichesFromRelease(t *testing.T) {
	looker := &stubLooker{releases: map[int64]*discogs.Release{42: vinylRelease()}}
	resolver := NewResolver(looker, []string{"Vinyl"}, nil)

	input := catalog.Identifier{CatalogID: "42"}
	got, err := resolver.Resolve(context.Background(), input)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := catalog.Identifier{CatalogID: "42", Barcode: "634904032412", Title: "In Rainbows", Artist: "Radiohead"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if input.Barcode != "" {
		t.Fatal("input identifier must not be mutated")
	}
}

func TestResolveKeepsExistingTitleAndArtist(t *testing.T) {
	looker := &stubLooker{releases: map[int64]*discogs.Release{42: vinylRelease()}}
	resolver := NewResolver(looker, nil, nil)

	got, err := resolver.Resolve(context.Background(), catalog.Identifier{CatalogID: "r42", Title: "인 레인보우즈", Artist: "라디오헤드"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Title != "인 레인보우즈" || got.Artist != "라디오헤드" || got.Barcode != "634904032412" {
		t.Fatalf("unexpected identifier %+v", got)
	}
}

func TestResolveRejectsNonTargetFormat(t *testing.T) {
	release := vinylRelease()
	release.Formats = []discogs.Format{{Name: "CD"}, {Name: "DVD"}}
	looker := &stubLooker{releases: map[int64]*discogs.Release{42: release}}

	_, err := NewResolver(looker, []string{"Vinyl"}, nil).Resolve(context.Background(), catalog.Identifier{CatalogID: "42"})
	if !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("expected ErrNotApplicable, got %v", err)
	}
}

func TestResolveAcceptsEmptyFormatList(t *testing.T) {
	release := vinylRelease()
	release.Formats = nil
	looker := &stubLooker{releases: map[int64]*discogs.Release{42: release}}

	got, err := NewResolver(looker, nil, nil).Resolve(context.Background(), catalog.Identifier{CatalogID: "42"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Barcode == "" {
		t.Fatal("expected barcode enrichment")
	}
}

func TestResolveDegradesOnLookupFailure(t *testing.T) {
	tests := []struct {
		name   string
		looker *stubLooker
		id     catalog.Identifier
	}{
		{"not found", &stubLooker{}, catalog.Identifier{CatalogID: "99", Title: "Blue", Artist: "Joni Mitchell"}},
		{"network", &stubLooker{err: errors.New("connection refused")}, catalog.Identifier{CatalogID: "42"}},
		{"malformed id", &stubLooker{}, catalog.Identifier{CatalogID: "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewResolver(tt.looker, nil, nil).Resolve(context.Background(), tt.id)
			if err != nil {
				t.Fatalf("expected degraded success, got %v", err)
			}
			if got != tt.id {
				t.Fatalf("identifier changed: %+v", got)
			}
		})
	}
}

func TestResolveCachesReleases(t *testing.T) {
	looker := &stubLooker{releases: map[int64]*discogs.Release{42: vinylRelease()}}
	resolver := NewResolver(looker, nil, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resolver.now = func() time.Time { return now }

	for range 3 {
		if _, err := resolver.Resolve(context.Background(), catalog.Identifier{CatalogID: "42"}); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if looker.calls != 1 {
		t.Fatalf("expected one lookup, got %d", looker.calls)
	}

	now = now.Add(releaseCacheTTL + time.Minute)
	if _, err := resolver.Resolve(context.Background(), catalog.Identifier{CatalogID: "42"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if looker.calls != 2 {
		t.Fatalf("expected refresh after ttl, got %d calls", looker.calls)
	}
}

func TestExtractBarcode(t *testing.T) {
	tests := []struct {
		name        string
		identifiers []discogs.Identifier
		want        string
	}{
		{"spaced upc", []discogs.Identifier{{Type: "Barcode", Value: "0 75992 73242 4"}}, "075992732424"},
		{"skips too short", []discogs.Identifier{{Type: "Barcode", Value: "1234"}, {Type: "Barcode", Value: "88012345678"}}, "88012345678"},
		{"skips too long", []discogs.Identifier{{Type: "Barcode", Value: "123456789012345"}}, ""},
		{"ignores other types", []discogs.Identifier{{Type: "Label Code", Value: "LC 12345678"}}, ""},
		{"none", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractBarcode(tt.identifiers); got != tt.want {
				t.Fatalf("ExtractBarcode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJoinArtists(t *testing.T) {
	artists := []discogs.Artist{{Name: "Nell (2)"}, {Name: "Ahn Ye-eun"}, {Name: " "}}
	if got := JoinArtists(artists); got != "Nell, Ahn Ye-eun" {
		t.Fatalf("JoinArtists = %q", got)
	}
}
