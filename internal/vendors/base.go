package vendors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"vinylscout/internal/catalog"
	"vinylscout/internal/config"
	"vinylscout/internal/fetch"
	"vinylscout/internal/logging"
	"vinylscout/internal/matching"
	"vinylscout/internal/metrics"
)

var soldOutVocabulary = []string{
	"품절",
	"일시품절",
	"절판",
	"재고없음",
	"재고 없음",
	"sold out",
	"soldout",
	"out of stock",
}

// hit is the first search result an adapter extracted, before validation.
type hit struct {
	Title    string
	Category string
	RawPrice string
	URL      string
	InStock  bool
	// ShippingFee, when set, replaces the configured fee.
	ShippingFee *int
}

type searchFunc func(ctx context.Context, query string) (*hit, error)

// base carries what every adapter shares: identity, commercial terms and the
// collaborators used to fetch and validate.
type base struct {
	profile  Profile
	settings config.Vendor
	fetcher  fetch.Fetcher
	engine   *matching.Engine
	logger   *slog.Logger
	now      func() time.Time
}

func (b *base) Name() string {
	return b.profile.Name
}

// collect runs one search and turns its outcome into a Result. It is the only
// place adapters return from, so panics stop here.
func (b *base) collect(ctx context.Context, id catalog.Identifier, search searchFunc) (result Result) {
	started := time.Now()
	logger := logging.WithContext(ctx, b.logger)
	result.Vendor = b.profile.Name

	defer func() {
		if rec := recover(); rec != nil {
			result = Result{
				Vendor: b.profile.Name,
				Reason: matching.ReasonPanic,
				Err:    fmt.Errorf("vendor %s panicked: %v", b.profile.Name, rec),
			}
			logging.ErrorWithContext(logger, "adapter panicked", "adapter_panic",
				logging.Any("panic", rec),
				logging.String(logging.FieldErrorHint, "vendor markup may have changed"),
			)
		}
		result.Elapsed = time.Since(started)
		metrics.RecordVendorResult(b.profile.Name, outcomeLabel(result))
	}()

	query, mode, ok := BuildQuery(b.profile, id)
	if !ok {
		result.Reason = matching.ReasonNoQuery
		logger.Debug("no usable query")
		return result
	}
	logger = logger.With(logging.String("query", query), logging.String("mode", mode.String()))

	h, err := search(ctx, query)
	if err != nil {
		result.Reason = matching.ReasonFetchFailed
		result.Err = err
		if !errors.Is(err, fetch.ErrBlocked) {
			logger.Info("vendor search failed",
				logging.String("class", fetch.Class(err)),
				logging.Error(err),
			)
		}
		return result
	}
	if h == nil || strings.TrimSpace(h.Title) == "" {
		result.Reason = matching.ReasonNoCandidate
		logger.Debug("no candidate")
		return result
	}
	result.Candidate = h.Title

	price, err := matching.ParsePrice(h.RawPrice)
	if err != nil {
		result.Reason = matching.ReasonBadPrice
		logger.Info("candidate price unreadable",
			logging.String("candidate", h.Title),
			logging.String("raw_price", h.RawPrice),
		)
		return result
	}

	verdict := b.engine.Validate(matching.Candidate{
		Title:      h.Title,
		Category:   h.Category,
		Price:      price,
		Mode:       mode,
		FormatPure: b.profile.FormatPure,
	}, id)
	if !verdict.OK {
		result.Reason = verdict.Reason
		logger.Info("candidate rejected",
			logging.String(logging.FieldDecisionType, "offer_validation"),
			logging.String("decision_result", "rejected"),
			logging.String("decision_reason", string(verdict.Reason)),
			logging.String("detail", verdict.Detail),
			logging.String("candidate", h.Title),
			logging.Int("price", price),
		)
		return result
	}

	result.Offer = b.offer(h, price)
	return result
}

func (b *base) offer(h *hit, price int) *catalog.Offer {
	fee := ShippingFee(b.settings, price)
	if h.ShippingFee != nil {
		fee = *h.ShippingFee
	}
	return &catalog.Offer{
		VendorName:        b.profile.Name,
		ChannelID:         b.profile.Channel,
		Title:             b.persistedTitle(h),
		BasePrice:         price,
		ShippingFee:       fee,
		ShippingPolicy:    b.settings.ShippingPolicy,
		URL:               h.URL,
		InStock:           h.InStock,
		AffiliateCode:     b.settings.AffiliateCode,
		AffiliateParamKey: b.settings.AffiliateParam,
		LastChecked:       b.now().UTC(),
	}
}

// persistedTitle keeps the format keyword with the title when only the
// category carried it, so the sweep can re-check the stored offer.
func (b *base) persistedTitle(h *hit) string {
	title := strings.TrimSpace(h.Title)
	category := strings.TrimSpace(h.Category)
	if category == "" || b.profile.FormatPure {
		return title
	}
	if b.engine.CheckFormat(title, false).Reason != matching.ReasonFormatMissing {
		return title
	}
	return title + " [" + category + "]"
}

// ShippingFee applies a vendor's shipping terms to a base price.
func ShippingFee(v config.Vendor, price int) int {
	if v.FreeShippingOver > 0 && price >= v.FreeShippingOver {
		return 0
	}
	return v.ShippingFee
}

func outcomeLabel(r Result) string {
	if r.Offer != nil {
		return "offer"
	}
	if r.Reason == matching.ReasonNone {
		return "none"
	}
	return string(r.Reason)
}

func soldOut(text string) bool {
	lowered := strings.ToLower(text)
	for _, term := range soldOutVocabulary {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

// resolveURL makes href absolute against the page it was found on.
func resolveURL(page, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	baseURL, err := url.Parse(page)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// searchURL appends the query parameters to a vendor endpoint.
func searchURL(endpoint string, params url.Values) (string, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid vendor endpoint %q", endpoint)
	}
	q := u.Query()
	for key, values := range params {
		for _, value := range values {
			q.Set(key, value)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
