package vendors

import (
	"context"
	"strings"
	"time"

	"vinylscout/internal/catalog"
	"vinylscout/internal/matching"
)

// Result is the outcome of one vendor query. Offer is nil when the vendor had
// nothing usable; Reason says why and Err carries any fetch failure.
type Result struct {
	Vendor  string
	Offer   *catalog.Offer
	Reason  matching.Reason
	Err     error
	Elapsed time.Duration
	// Candidate is the title of the first hit, kept for logging rejected matches.
	Candidate string
}

// Found reports whether the result carries a validated offer.
func (r Result) Found() bool {
	return r.Offer != nil
}

// Adapter is the uniform contract every vendor implements.
type Adapter interface {
	Name() string
	Collect(ctx context.Context, id catalog.Identifier) Result
}

// Profile holds the fixed traits of a vendor.
type Profile struct {
	Name    string
	Channel catalog.Channel
	// Barcode marks vendors whose search resolves barcodes exactly.
	Barcode bool
	// FormatPure marks vendors that only stock records.
	FormatPure bool
	// Keyed vendors need credentials and are skipped without them.
	Keyed bool
}

var profiles = map[string]Profile{
	"naver":      {Name: "naver", Channel: catalog.ChannelMarketplace, Keyed: true},
	"aladin":     {Name: "aladin", Channel: catalog.ChannelBookstore, Barcode: true, Keyed: true},
	"elevenst":   {Name: "elevenst", Channel: catalog.ChannelMarketplace, Keyed: true},
	"yes24":      {Name: "yes24", Channel: catalog.ChannelBookstore, Barcode: true},
	"kyobo":      {Name: "kyobo", Channel: catalog.ChannelBookstore, Barcode: true},
	"hyang":      {Name: "hyang", Channel: catalog.ChannelRecordShop},
	"gimbab":     {Name: "gimbab", Channel: catalog.ChannelRecordShop},
	"seoulvinyl": {Name: "seoulvinyl", Channel: catalog.ChannelRecordShop, FormatPure: true},
	"musicplant": {Name: "musicplant", Channel: catalog.ChannelRecordShop, Barcode: true},
	"coupang":    {Name: "coupang", Channel: catalog.ChannelMarketplace},
}

// ProfileFor returns the traits of a vendor by name.
func ProfileFor(name string) (Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

// BuildQuery picks the search key for a vendor: the barcode in exact mode when
// the vendor supports it, otherwise "artist title" in keyword mode.
func BuildQuery(p Profile, id catalog.Identifier) (string, matching.Mode, bool) {
	if barcode := strings.TrimSpace(id.Barcode); barcode != "" && p.Barcode {
		return barcode, matching.ModeExact, true
	}
	keyword := catalog.Identifier{Title: id.Title, Artist: id.Artist}.Query()
	if keyword == "" {
		return "", matching.ModeKeyword, false
	}
	return keyword, matching.ModeKeyword, true
}
