package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Product describes a catalog record.
type Product struct {
	ID           int64    `json:"id"`
	CatalogID    string   `json:"catalogId,omitempty"`
	Barcode      string   `json:"barcode,omitempty"`
	Title        string   `json:"title"`
	Artist       string   `json:"artist"`
	FormatTags   []string `json:"formatTags,omitempty"`
	LastSyncedAt string   `json:"lastSyncedAt,omitempty"`
	CreatedAt    string   `json:"createdAt,omitempty"`
}

// Offer is one ranked purchase option.
type Offer struct {
	Rank           int    `json:"rank"`
	Vendor         string `json:"vendor"`
	Channel        string `json:"channel"`
	Title          string `json:"title,omitempty"`
	BasePrice      int    `json:"basePrice"`
	ShippingFee    int    `json:"shippingFee"`
	EffectivePrice int    `json:"effectivePrice"`
	ShippingPolicy string `json:"shippingPolicy,omitempty"`
	URL            string `json:"url"`
	AffiliateURL   string `json:"affiliateUrl"`
	InStock        bool   `json:"inStock"`
	LastChecked    string `json:"lastChecked,omitempty"`
}

// OffersResponse wraps a product and its ranked offers.
type OffersResponse struct {
	Product Product `json:"product"`
	Offers  []Offer `json:"offers"`
	// Lowest is the cheapest effective price, zero when there are no offers.
	Lowest int `json:"lowest"`
}

// HistoryPoint is the lowest effective price of one day.
type HistoryPoint struct {
	Date  string `json:"date"`
	Price int    `json:"price"`
}

// HistoryResponse wraps the price history of a product.
type HistoryResponse struct {
	ProductID int64          `json:"productId"`
	Points    []HistoryPoint `json:"points"`
}

// Run describes one sync or sweep.
type Run struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
	Processed  int    `json:"processed"`
	WithOffers int    `json:"withOffers"`
	Cleared    int    `json:"cleared"`
	Skipped    int    `json:"skipped"`
	Deleted    int    `json:"deleted"`
	Detail     string `json:"detail,omitempty"`
}

// RunListResponse wraps recent runs, newest first.
type RunListResponse struct {
	Runs []Run `json:"runs"`
}

// SyncResponse acknowledges a sync request.
type SyncResponse struct {
	Queued  bool   `json:"queued"`
	Message string `json:"message"`
}

// RefreshResponse reports a single product refresh.
type RefreshResponse struct {
	ProductID int64   `json:"productId"`
	Result    string  `json:"result"`
	Reason    string  `json:"reason,omitempty"`
	Offers    []Offer `json:"offers"`
}

// JobStatus summarises the last execution of a scheduled job.
type JobStatus struct {
	LastStarted  string `json:"lastStarted,omitempty"`
	LastFinished string `json:"lastFinished,omitempty"`
	LastError    string `json:"lastError,omitempty"`
	LastRunID    string `json:"lastRunId,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool      `json:"running"`
	Busy         string    `json:"busy,omitempty"`
	LockFilePath string    `json:"lockFilePath"`
	Vendors      []string  `json:"vendors"`
	Sync         JobStatus `json:"sync"`
	Sweep        JobStatus `json:"sweep"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
