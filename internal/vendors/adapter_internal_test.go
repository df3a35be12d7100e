package vendors

import (
	"context"
	"testing"
	"time"

	"vinylscout/internal/catalog"
	"vinylscout/internal/config"
	"vinylscout/internal/fetch"
	"vinylscout/internal/logging"
	"vinylscout/internal/matching"
)

type panicFetcher struct{}

func (panicFetcher) Fetch(context.Context, fetch.Request) (*fetch.Document, error) {
	panic("selector index out of range")
}

func TestCollectRecoversPanics(t *testing.T) {
	adapter := &naverAdapter{base: base{
		profile:  profiles["naver"],
		settings: config.Vendor{BaseURL: "https://example.test/search"},
		fetcher:  panicFetcher{},
		engine:   matching.NewEngine(matching.Options{}),
		logger:   logging.NewNop(),
		now:      time.Now,
	}}

	result := adapter.Collect(context.Background(), catalog.Identifier{Title: "Blue", Artist: "Joni Mitchell"})
	if result.Reason != matching.ReasonPanic || result.Err == nil {
		t.Fatalf("expected recovered panic, got %+v", result)
	}
	if result.Vendor != "naver" || result.Offer != nil {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestDeliveryFee(t *testing.T) {
	tests := []struct {
		text string
		want *int
	}{
		{"", nil},
		{"무료배송", intPtr(0)},
		{"Free", intPtr(0)},
		{"2,500원", intPtr(2500)},
		{"판매자 문의", nil},
	}
	for _, tt := range tests {
		got := deliveryFee(tt.text)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("deliveryFee(%q) = %d, want nil", tt.text, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("deliveryFee(%q) = %v, want %d", tt.text, got, *tt.want)
		}
	}
}

func TestCutAttr(t *testing.T) {
	tests := []struct {
		raw, selector, attr string
		hasAttr             bool
	}{
		{"a.gd_name@href", "a.gd_name", "href", true},
		{"@data-price", "", "data-price", true},
		{"li[rel='판매가'] span", "li[rel='판매가'] span", "", false},
	}
	for _, tt := range tests {
		selector, attr, ok := cutAttr(tt.raw)
		if selector != tt.selector || attr != tt.attr || ok != tt.hasAttr {
			t.Errorf("cutAttr(%q) = %q, %q, %v", tt.raw, selector, attr, ok)
		}
	}
}

func TestStripMarkup(t *testing.T) {
	if got := stripMarkup("<b>Kid A</b> &amp; Amnesiac"); got != "Kid A & Amnesiac" {
		t.Fatalf("stripMarkup = %q", got)
	}
}

func intPtr(v int) *int { return &v }
