package matching_test

import (
	"testing"

	"vinylscout/internal/catalog"
	"vinylscout/internal/matching"
)

func newEngine() *matching.Engine {
	return matching.NewEngine(matching.Options{PriceFloor: 5000, PriceCeiling: 1_000_000, SimilarityThreshold: 0.5})
}

func TestValidateRules(t *testing.T) {
	engine := newEngine()
	blue := catalog.Identifier{Title: "Blue", Artist: "Joni Mitchell"}
	kind := catalog.Identifier{Title: "Kind of Blue", Artist: "Miles Davis"}
	kindCased := catalog.Identifier{Title: "Kind Of Blue", Artist: "Miles Davis"}
	barcode := catalog.Identifier{Barcode: "0194398665212"}

	tests := []struct {
		name string
		c    matching.Candidate
		id   catalog.Identifier
		want matching.Reason
	}{
		{"accepts keyword match", matching.Candidate{Title: "Miles Davis - Kind of Blue (LP)", Price: 38000}, kind, matching.ReasonNone},
		{"floor inclusive", matching.Candidate{Title: "Miles Davis Kind of Blue LP", Price: 5000}, kind, matching.ReasonNone},
		{"ceiling inclusive", matching.Candidate{Title: "Miles Davis Kind of Blue LP", Price: 1_000_000}, kind, matching.ReasonNone},
		{"below floor", matching.Candidate{Title: "Miles Davis Kind of Blue LP", Price: 4999}, kind, matching.ReasonPriceOutOfRange},
		{"above ceiling", matching.Candidate{Title: "Miles Davis Kind of Blue LP", Price: 1_000_001}, kind, matching.ReasonPriceOutOfRange},
		{"price checked first", matching.Candidate{Title: "Kind of Blue CD", Price: 100}, kind, matching.ReasonPriceOutOfRange},
		{"no format keyword", matching.Candidate{Title: "Miles Davis - Kind of Blue", Price: 20000}, kind, matching.ReasonFormatMissing},
		{"format pure source", matching.Candidate{Title: "Miles Davis - Kind of Blue", Price: 20000, FormatPure: true}, kind, matching.ReasonNone},
		{"category supplies format", matching.Candidate{Title: "Miles Davis - Kind of Blue", Category: "음반 LP", Price: 20000}, kind, matching.ReasonNone},
		{"hangul format keyword", matching.Candidate{Title: "마일스 데이비스 Miles Davis Kind of Blue 바이닐", Price: 20000}, kind, matching.ReasonNone},
		{"lp word edges", matching.Candidate{Title: "Joni Mitchell Blue Help", Price: 20000}, blue, matching.ReasonFormatMissing},
		{"blocked cd", matching.Candidate{Title: "Joni Mitchell - Blue LP CD", Price: 20000}, blue, matching.ReasonFormatBlocked},
		{"blocked poster", matching.Candidate{Title: "Joni Mitchell Blue LP 포스터", Price: 20000}, blue, matching.ReasonFormatBlocked},
		{"override bundle", matching.Candidate{Title: "Joni Mitchell - Blue (LP+CD)", Price: 20000}, blue, matching.ReasonNone},
		{"override poster", matching.Candidate{Title: "Joni Mitchell Blue LP 포스터 포함", Price: 20000}, blue, matching.ReasonNone},
		{"different album", matching.Candidate{Title: "Miles Davis - Bitches Brew 2LP", Price: 40000}, kind, matching.ReasonLowSimilarity},
		{"artist missing", matching.Candidate{Title: "Blue (LP)", Price: 20000}, blue, matching.ReasonArtistMissing},
		{"cd release rejected", matching.Candidate{Title: "Miles Davis Kind Of Blue CD", Price: 20000}, kindCased, matching.ReasonFormatMissing},
		{"barcode exact lp accepted", matching.Candidate{Title: "Kind of Blue (Legacy Edition) LP", Price: 59000, Mode: matching.ModeExact}, barcode, matching.ReasonNone},
		{"exact mode skips identity", matching.Candidate{Title: "블루 LP", Price: 20000, Mode: matching.ModeExact}, blue, matching.ReasonNone},
		{"exact mode still checks format", matching.Candidate{Title: "Blue CD", Price: 20000, Mode: matching.ModeExact}, blue, matching.ReasonFormatMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := engine.Validate(tt.c, tt.id)
			if v.Reason != tt.want {
				t.Fatalf("Validate() reason = %q (%s), want %q", v.Reason, v.Detail, tt.want)
			}
			if v.OK != (tt.want == matching.ReasonNone) {
				t.Fatalf("Validate() OK = %v with reason %q", v.OK, v.Reason)
			}
		})
	}
}

func TestParsedPriceAboveCeilingRejected(t *testing.T) {
	engine := newEngine()
	price, err := matching.ParsePrice("12,345,000원")
	if err != nil {
		t.Fatalf("ParsePrice: %v", err)
	}
	if price != 12_345_000 {
		t.Fatalf("ParsePrice = %d, want 12345000", price)
	}
	if v := engine.CheckPrice(price); v.OK || v.Reason != matching.ReasonPriceOutOfRange {
		t.Fatalf("CheckPrice(%d) = %+v, want price_out_of_range", price, v)
	}
}

func TestValidateArtistIgnoresLeadingThe(t *testing.T) {
	engine := newEngine()
	id := catalog.Identifier{Title: "Abbey Road", Artist: "The Beatles"}
	v := engine.Validate(matching.Candidate{Title: "Beatles - Abbey Road (2019 Mix) LP", Price: 45000}, id)
	if !v.OK {
		t.Fatalf("expected accept, got %+v", v)
	}
}

func TestBlocklistPrecedence(t *testing.T) {
	engine := newEngine()
	// A title with both an allowlist and a blocklist keyword is rejected
	// unless an override phrase is present.
	for _, title := range []string{"Abbey Road LP Cassette", "Abbey Road Vinyl T-Shirt", "Abbey Road LP 턴테이블"} {
		if v := engine.CheckFormat(title, false); v.Reason != matching.ReasonFormatBlocked {
			t.Errorf("CheckFormat(%q) = %+v, want format_blocked", title, v)
		}
		if v := engine.CheckFormat(title, true); v.Reason != matching.ReasonFormatBlocked {
			t.Errorf("format pure source must still honour blocklist for %q, got %+v", title, v)
		}
	}
}

func TestNewEngineDefaults(t *testing.T) {
	opts := matching.NewEngine(matching.Options{}).Options()
	if opts.PriceFloor != 5000 || opts.PriceCeiling != 1_000_000 || opts.SimilarityThreshold != 0.5 {
		t.Fatalf("unexpected defaults %+v", opts)
	}
}

func TestProductDisqualified(t *testing.T) {
	tests := []struct {
		tags []string
		want bool
	}{
		{nil, false},
		{[]string{"CD"}, true},
		{[]string{"Cassette", "DVD"}, true},
		{[]string{"Vinyl", "LP"}, false},
		{[]string{"CD", "Vinyl"}, false},
		{[]string{"Box Set"}, false},
	}
	for _, tt := range tests {
		if got := matching.ProductDisqualified(tt.tags); got != tt.want {
			t.Errorf("ProductDisqualified(%v) = %v, want %v", tt.tags, got, tt.want)
		}
	}
}
