package api

import (
	"time"

	"vinylscout/internal/affiliate"
	"vinylscout/internal/catalog"
)

// FromProduct converts a catalog product.
func FromProduct(p catalog.Product) Product {
	return Product{
		ID:           p.ID,
		CatalogID:    p.CatalogID,
		Barcode:      p.Barcode,
		Title:        p.Title,
		Artist:       p.Artist,
		FormatTags:   append([]string(nil), p.FormatTags...),
		LastSyncedAt: formatTimePtr(p.LastSyncedAt),
		CreatedAt:    formatTime(p.CreatedAt),
	}
}

// FromOffers ranks offers by effective price and converts them.
func FromOffers(offers []catalog.Offer) []Offer {
	ranked := catalog.RankOffers(offers)
	out := make([]Offer, 0, len(ranked))
	for i, o := range ranked {
		out = append(out, Offer{
			Rank:           i + 1,
			Vendor:         o.VendorName,
			Channel:        string(o.ChannelID),
			Title:          o.Title,
			BasePrice:      o.BasePrice,
			ShippingFee:    o.ShippingFee,
			EffectivePrice: o.EffectivePrice(),
			ShippingPolicy: o.ShippingPolicy,
			URL:            o.URL,
			AffiliateURL:   affiliate.BuildURL(o),
			InStock:        o.InStock,
			LastChecked:    formatTime(o.LastChecked),
		})
	}
	return out
}

// NewOffersResponse builds the offers payload for a product.
func NewOffersResponse(p catalog.Product, offers []catalog.Offer) OffersResponse {
	resp := OffersResponse{Product: FromProduct(p), Offers: FromOffers(offers)}
	if lowest, ok := catalog.LowestEffectivePrice(offers); ok {
		resp.Lowest = lowest
	}
	return resp
}

// FromHistory converts price history points.
func FromHistory(productID int64, points []catalog.PriceHistoryPoint) HistoryResponse {
	out := HistoryResponse{ProductID: productID, Points: make([]HistoryPoint, 0, len(points))}
	for _, p := range points {
		out.Points = append(out.Points, HistoryPoint{Date: p.Date, Price: p.Price})
	}
	return out
}

// FromRun converts a run record.
func FromRun(r catalog.SyncRun) Run {
	return Run{
		ID:         r.ID,
		Kind:       string(r.Kind),
		Status:     string(r.Status),
		StartedAt:  formatTime(r.StartedAt),
		FinishedAt: formatTimePtr(r.FinishedAt),
		Processed:  r.Processed,
		WithOffers: r.WithOffers,
		Cleared:    r.Cleared,
		Skipped:    r.Skipped,
		Deleted:    r.Deleted,
		Detail:     r.Detail,
	}
}

// FromRuns converts a list of runs.
func FromRuns(runs []catalog.SyncRun) RunListResponse {
	out := RunListResponse{Runs: make([]Run, 0, len(runs))}
	for _, r := range runs {
		out.Runs = append(out.Runs, FromRun(r))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
