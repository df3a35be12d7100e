package identification

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"vinylscout/internal/catalog"
	"vinylscout/internal/config"
	"vinylscout/internal/identification/discogs"
	"vinylscout/internal/logging"
)

// ErrNotApplicable marks a release whose formats exclude every target format.
var ErrNotApplicable = errors.New("release format not applicable")

const releaseCacheTTL = 6 * time.Hour

var disambiguationSuffix = regexp.MustCompile(`\s*\(\d+\)$`)

// Resolver enriches identifiers through a Discogs lookup.
type Resolver struct {
	looker        discogs.Looker
	logger        *slog.Logger
	targetFormats []string

	mu    sync.Mutex
	cache map[int64]cacheEntry
	now   func() time.Time
}

type cacheEntry struct {
	release *discogs.Release
	expires time.Time
}

// NewResolver builds a resolver. A nil looker disables enrichment.
func NewResolver(looker discogs.Looker, targetFormats []string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	formats := make([]string, 0, len(targetFormats))
	for _, format := range targetFormats {
		if trimmed := strings.ToLower(strings.TrimSpace(format)); trimmed != "" {
			formats = append(formats, trimmed)
		}
	}
	if len(formats) == 0 {
		formats = []string{"vinyl"}
	}
	return &Resolver{
		looker:        looker,
		logger:        logging.NewComponentLogger(logger, "identification"),
		targetFormats: formats,
		cache:         make(map[int64]cacheEntry),
		now:           time.Now,
	}
}

// NewResolverFromConfig wires the Discogs client. Without a token the resolver
// passes identifiers through unchanged.
func NewResolverFromConfig(cfg *config.Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	client, err := discogs.NewFromConfig(cfg)
	if err != nil {
		logger.Warn("discogs client unavailable",
			logging.String(logging.FieldEventType, "discogs_disabled"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set discogs.token or DISCOGS_TOKEN"),
			logging.String(logging.FieldImpact, "products without a barcode are searched by artist and title"),
		)
		return NewResolver(nil, cfg.Discogs.TargetFormats, logger)
	}
	return NewResolver(client, cfg.Discogs.TargetFormats, logger)
}

// Resolve returns an enriched copy of id. Identifiers that already carry a
// barcode, or have no catalog id, are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, id catalog.Identifier) (catalog.Identifier, error) {
	if strings.TrimSpace(id.Barcode) != "" || strings.TrimSpace(id.CatalogID) == "" || r.looker == nil {
		return id, nil
	}
	logger := r.logger.With(logging.String("catalog_id", id.CatalogID))

	releaseID, err := parseReleaseID(id.CatalogID)
	if err != nil {
		logger.Warn("catalog id is not a release id",
			logging.String(logging.FieldEventType, "catalog_id_invalid"),
			logging.Error(err),
			logging.String(logging.FieldImpact, "searching without enrichment"),
		)
		return id, nil
	}

	release, err := r.release(ctx, releaseID)
	if err != nil {
		if ctx.Err() != nil {
			return id, ctx.Err()
		}
		logging.WarnWithContext(logger, "release lookup failed", "discogs_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check discogs.token and network access"),
			logging.String(logging.FieldImpact, "searching without enrichment"),
		)
		return id, nil
	}

	if formats := release.FormatNames(); len(formats) > 0 && !r.hasTargetFormat(formats) {
		logger.Info("release skipped",
			logging.String(logging.FieldDecisionType, "format_filter"),
			logging.String("decision_result", "not_applicable"),
			logging.String("formats", strings.Join(formats, ",")),
		)
		return id, ErrNotApplicable
	}

	enriched := id
	if barcode := ExtractBarcode(release.Identifiers); barcode != "" {
		enriched.Barcode = barcode
	}
	if strings.TrimSpace(enriched.Title) == "" {
		enriched.Title = strings.TrimSpace(release.Title)
	}
	if strings.TrimSpace(enriched.Artist) == "" {
		enriched.Artist = JoinArtists(release.Artists)
	}
	logger.Debug("identifier enriched",
		logging.Bool("barcode_found", enriched.Barcode != ""),
		logging.String("title", enriched.Title),
		logging.String("artist", enriched.Artist),
	)
	return enriched, nil
}

func (r *Resolver) release(ctx context.Context, id int64) (*discogs.Release, error) {
	r.mu.Lock()
	entry, ok := r.cache[id]
	r.mu.Unlock()
	if ok && r.now().Before(entry.expires) {
		return entry.release, nil
	}

	release, err := r.looker.Release(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache[id] = cacheEntry{release: release, expires: r.now().Add(releaseCacheTTL)}
	r.mu.Unlock()
	return release, nil
}

func (r *Resolver) hasTargetFormat(formats []string) bool {
	for _, format := range formats {
		lowered := strings.ToLower(strings.TrimSpace(format))
		for _, target := range r.targetFormats {
			if lowered == target {
				return true
			}
		}
	}
	return false
}

// ExtractBarcode returns the digits of the first Barcode identifier with 8 to
// 14 digits, or "" when none qualifies.
func ExtractBarcode(identifiers []discogs.Identifier) string {
	for _, identifier := range identifiers {
		if !strings.EqualFold(strings.TrimSpace(identifier.Type), "barcode") {
			continue
		}
		digits := digitsOnly(identifier.Value)
		if len(digits) >= 8 && len(digits) <= 14 {
			return digits
		}
	}
	return ""
}

// JoinArtists renders the credited artists with Discogs disambiguation
// suffixes such as " (2)" removed.
func JoinArtists(artists []discogs.Artist) string {
	names := make([]string, 0, len(artists))
	for _, artist := range artists {
		name := strings.TrimSpace(disambiguationSuffix.ReplaceAllString(artist.Name, ""))
		if name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

func parseReleaseID(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(strings.TrimSuffix(strings.TrimPrefix(trimmed, "["), "]"), "r")
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("release id must be positive")
	}
	return id, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
