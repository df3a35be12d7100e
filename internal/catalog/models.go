package catalog

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"
)

// ErrProductNotFound is returned when a product id does not exist.
var ErrProductNotFound = errors.New("product not found")

// Channel is the coarse category of an offer source.
type Channel string

const (
	ChannelMarketplace Channel = "marketplace"
	ChannelBookstore   Channel = "bookstore"
	ChannelRecordShop  Channel = "record_shop"
)

// Identifier is the query key for one record. It is treated as a value: the
// resolver returns an enriched copy instead of mutating it.
type Identifier struct {
	CatalogID string
	Barcode   string
	Title     string
	Artist    string
}

// Usable reports whether there is enough information to search vendors.
func (id Identifier) Usable() bool {
	if strings.TrimSpace(id.Barcode) != "" || strings.TrimSpace(id.CatalogID) != "" {
		return true
	}
	return strings.TrimSpace(id.Title) != "" && strings.TrimSpace(id.Artist) != ""
}

// Query returns the barcode when present, otherwise "artist title".
func (id Identifier) Query() string {
	if barcode := strings.TrimSpace(id.Barcode); barcode != "" {
		return barcode
	}
	return strings.TrimSpace(strings.TrimSpace(id.Artist) + " " + strings.TrimSpace(id.Title))
}

// Product is one catalog row.
type Product struct {
	ID           int64
	CatalogID    string
	Barcode      string
	Title        string
	Artist       string
	FormatTags   []string
	LastSyncedAt *time.Time
	CreatedAt    time.Time
}

// Identifier returns the query key for the product.
func (p Product) Identifier() Identifier {
	return Identifier{
		CatalogID: p.CatalogID,
		Barcode:   p.Barcode,
		Title:     p.Title,
		Artist:    p.Artist,
	}
}

// Offer is a validated purchase option from one vendor.
type Offer struct {
	ID                int64
	ProductID         int64
	VendorName        string
	ChannelID         Channel
	Title             string
	BasePrice         int
	ShippingFee       int
	ShippingPolicy    string
	URL               string
	InStock           bool
	AffiliateCode     string
	AffiliateParamKey string
	LastChecked       time.Time
	CreatedAt         time.Time
}

// EffectivePrice is what the buyer pays: base price plus shipping.
func (o Offer) EffectivePrice() int {
	return o.BasePrice + o.ShippingFee
}

// RankOffers returns a copy of offers ordered by effective price. In-stock
// offers win ties, then vendor name keeps the order stable.
func RankOffers(offers []Offer) []Offer {
	ranked := slices.Clone(offers)
	slices.SortStableFunc(ranked, func(a, b Offer) int {
		if c := cmp.Compare(a.EffectivePrice(), b.EffectivePrice()); c != 0 {
			return c
		}
		if a.InStock != b.InStock {
			if a.InStock {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.VendorName, b.VendorName)
	})
	return ranked
}

// LowestEffectivePrice returns the cheapest effective price among offers.
func LowestEffectivePrice(offers []Offer) (int, bool) {
	if len(offers) == 0 {
		return 0, false
	}
	lowest := offers[0].EffectivePrice()
	for _, offer := range offers[1:] {
		lowest = min(lowest, offer.EffectivePrice())
	}
	return lowest, true
}

// HistoryDateLayout is the day key format of price history points.
const HistoryDateLayout = "2006-01-02"

// PriceHistoryPoint is the lowest effective price observed on one day.
type PriceHistoryPoint struct {
	ProductID int64
	Date      string
	Price     int
}

// RunKind distinguishes price syncs from integrity sweeps.
type RunKind string

const (
	RunKindSync    RunKind = "sync"
	RunKindCleanup RunKind = "cleanup"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunAborted   RunStatus = "aborted"
	RunFailed    RunStatus = "failed"
)

// SyncRun records one sync or sweep execution.
type SyncRun struct {
	ID         string
	Kind       RunKind
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Processed  int
	WithOffers int
	Cleared    int
	Skipped    int
	Deleted    int
	Detail     string
}

// Repository is the full catalog contract implemented by the SQLite and
// Postgres stores. Pipeline packages declare narrower interfaces of their own.
type Repository interface {
	AddProduct(ctx context.Context, product Product) (*Product, error)
	Product(ctx context.Context, id int64) (*Product, error)
	ProductIDs(ctx context.Context) ([]int64, error)
	ProductsAfter(ctx context.Context, afterID int64, limit int) ([]Product, error)
	DeleteProducts(ctx context.Context, ids []int64) (int64, error)

	ReplaceOffers(ctx context.Context, productID int64, offers []Offer, syncedAt time.Time) error
	OffersForProduct(ctx context.Context, productID int64) ([]Offer, error)
	OffersForProducts(ctx context.Context, productIDs []int64) (map[int64][]Offer, error)
	DeleteOffers(ctx context.Context, ids []int64) (int64, error)

	AppendPriceHistory(ctx context.Context, point PriceHistoryPoint) (bool, error)
	PriceHistory(ctx context.Context, productID int64, limit int) ([]PriceHistoryPoint, error)

	StartRun(ctx context.Context, run SyncRun) error
	FinishRun(ctx context.Context, run SyncRun) error
	ListRuns(ctx context.Context, limit int) ([]SyncRun, error)

	Close() error
}
