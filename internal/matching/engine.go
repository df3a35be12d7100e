package matching

import (
	"fmt"
	"strings"

	"vinylscout/internal/catalog"
	"vinylscout/internal/config"
	"vinylscout/internal/textutil"
)

// Mode says how the vendor query was keyed.
type Mode int

const (
	// ModeKeyword is a free-text "artist title" search; results need identity checks.
	ModeKeyword Mode = iota
	// ModeExact is a barcode search; results are trusted.
	ModeExact
)

func (m Mode) String() string {
	if m == ModeExact {
		return "exact"
	}
	return "keyword"
}

// Candidate is the first search hit a vendor adapter extracted.
type Candidate struct {
	Title    string
	Category string
	Price    int
	Mode     Mode
	// FormatPure marks sources that only sell records, so a missing format
	// keyword is not held against the candidate.
	FormatPure bool
}

// Options holds the tunable thresholds.
type Options struct {
	PriceFloor          int
	PriceCeiling        int
	SimilarityThreshold float64
}

// Engine validates candidates. It holds no mutable state.
type Engine struct {
	opts Options
}

// NewEngine builds an engine, filling zero options with defaults.
func NewEngine(opts Options) *Engine {
	if opts.PriceFloor <= 0 {
		opts.PriceFloor = 5000
	}
	if opts.PriceCeiling <= 0 {
		opts.PriceCeiling = 1_000_000
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = 0.5
	}
	return &Engine{opts: opts}
}

// NewFromConfig builds an engine from the [matching] section.
func NewFromConfig(cfg *config.Config) *Engine {
	return NewEngine(Options{
		PriceFloor:          cfg.Matching.PriceFloor,
		PriceCeiling:        cfg.Matching.PriceCeiling,
		SimilarityThreshold: cfg.Matching.SimilarityThreshold,
	})
}

// Options returns the thresholds in force.
func (e *Engine) Options() Options {
	return e.opts
}

// Validate runs every rule against the candidate and returns the first failure.
func (e *Engine) Validate(c Candidate, id catalog.Identifier) Verdict {
	if v := e.CheckPrice(c.Price); !v.OK {
		return v
	}
	if v := e.CheckFormat(lowerText(c.Title, c.Category), c.FormatPure); !v.OK {
		return v
	}
	if c.Mode == ModeExact {
		return accept()
	}

	if title := strings.TrimSpace(id.Title); title != "" {
		score := textutil.TitleScore(title, c.Title, id.Artist)
		if score < e.opts.SimilarityThreshold {
			return reject(ReasonLowSimilarity, fmt.Sprintf("score %.2f below %.2f", score, e.opts.SimilarityThreshold))
		}
	}
	if artist := textutil.NormalizeArtist(id.Artist); artist != "" {
		if !strings.Contains(textutil.Normalize(c.Title+" "+c.Category), artist) {
			return reject(ReasonArtistMissing, fmt.Sprintf("%q not in candidate title", id.Artist))
		}
	}
	return accept()
}

// CheckPrice enforces the inclusive price band.
func (e *Engine) CheckPrice(price int) Verdict {
	switch {
	case price < e.opts.PriceFloor:
		return reject(ReasonPriceOutOfRange, fmt.Sprintf("price %d below floor %d", price, e.opts.PriceFloor))
	case price > e.opts.PriceCeiling:
		return reject(ReasonPriceOutOfRange, fmt.Sprintf("price %d above ceiling %d", price, e.opts.PriceCeiling))
	default:
		return accept()
	}
}

// CheckFormat applies the allowlist and then the blocklist to text. The
// blocklist is skipped when an override phrase names a bundle with the record.
func (e *Engine) CheckFormat(text string, formatPure bool) Verdict {
	text = strings.ToLower(text)
	if !formatPure && !hasAllowKeyword(text) {
		return reject(ReasonFormatMissing, "no record format keyword")
	}
	if hasBlockKeyword(text) && !hasOverride(text) {
		return reject(ReasonFormatBlocked, "non-record format keyword")
	}
	return accept()
}

// ProductDisqualified reports whether a catalog product's format tags are
// all non-record formats.
func ProductDisqualified(tags []string) bool {
	return formatTagsDisqualified(tags)
}
