package pricesync_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vinylscout/internal/aggregate"
	"vinylscout/internal/catalog"
	"vinylscout/internal/fetch"
	"vinylscout/internal/identification"
	"vinylscout/internal/notifications"
	"vinylscout/internal/pricesync"
	"vinylscout/internal/services"
	"vinylscout/internal/testsupport"
)

type stubAggregator struct {
	mu       sync.Mutex
	outcomes map[string]aggregate.Outcome
	calls    []catalog.Identifier
}

func (a *stubAggregator) Aggregate(_ context.Context, id catalog.Identifier) aggregate.Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, id)
	return a.outcomes[id.Query()]
}

func (a *stubAggregator) queried(query string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range a.calls {
		if id.Query() == query {
			return true
		}
	}
	return false
}

type stubResolver struct {
	resolved map[string]catalog.Identifier
	err      map[string]error
}

func (r stubResolver) Resolve(_ context.Context, id catalog.Identifier) (catalog.Identifier, error) {
	if err := r.err[id.CatalogID]; err != nil {
		return id, err
	}
	if out, ok := r.resolved[id.CatalogID]; ok {
		return out, nil
	}
	return id, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	last   notifications.Payload
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	n.last = payload
	return nil
}

type failingStore struct {
	*catalog.Store
	failReplace int64
}

func (s failingStore) ReplaceOffers(ctx context.Context, productID int64, offers []catalog.Offer, syncedAt time.Time) error {
	if productID == s.failReplace {
		return errors.New("disk full")
	}
	return s.Store.ReplaceOffers(ctx, productID, offers, syncedAt)
}

func offer(vendor string, price, fee int) catalog.Offer {
	return catalog.Offer{
		VendorName:  vendor,
		ChannelID:   catalog.ChannelRecordShop,
		Title:       "Kind of Blue LP",
		BasePrice:   price,
		ShippingFee: fee,
		URL:         "https://shop.example/" + vendor,
		InStock:     true,
	}
}

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestRunPersistsOffersAndHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	withOffers := testsupport.MustAddProduct(t, store, catalog.Product{Barcode: "8808678160227", Title: "Kind of Blue", Artist: "Miles Davis"})
	empty := testsupport.MustAddProduct(t, store, catalog.Product{Barcode: "0602547925776", Title: "Blue", Artist: "Joni Mitchell"})

	agg := &stubAggregator{outcomes: map[string]aggregate.Outcome{
		"8808678160227": {Offers: []catalog.Offer{offer("gimbab", 32000, 3500), offer("yes24", 34000, 0)}},
	}}
	notifier := &recordingNotifier{}
	syncer := pricesync.New(store, nil, agg, pricesync.WithClock(clock), pricesync.WithNotifier(notifier))

	report, err := syncer.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Processed != 2 || report.WithOffers != 1 || report.Cleared != 1 || report.Skipped != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.RunID == "" {
		t.Fatal("expected run id")
	}

	ctx := context.Background()
	offers, err := store.OffersForProduct(ctx, withOffers.ID)
	if err != nil {
		t.Fatalf("OffersForProduct: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("expected 2 offers, got %d", len(offers))
	}
	history, err := store.PriceHistory(ctx, withOffers.ID, 0)
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}
	if len(history) != 1 || history[0].Price != 34000 || history[0].Date != "2024-05-01" {
		t.Fatalf("unexpected history: %+v", history)
	}

	if offers, _ := store.OffersForProduct(ctx, empty.ID); len(offers) != 0 {
		t.Fatalf("expected cleared offer set, got %d", len(offers))
	}
	if history, _ := store.PriceHistory(ctx, empty.ID, 0); len(history) != 0 {
		t.Fatalf("no history expected without offers, got %+v", history)
	}

	runs, err := store.ListRuns(ctx, 5)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != catalog.RunCompleted || runs[0].WithOffers != 1 || runs[0].Cleared != 1 {
		t.Fatalf("unexpected run record: %+v", runs)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventSyncCompleted {
		t.Fatalf("expected completion notification, got %v", notifier.events)
	}
}

func TestRunClearsStaleOffers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	product := testsupport.MustAddProduct(t, store, catalog.Product{Title: "Blue Train", Artist: "John Coltrane"})
	ctx := context.Background()
	if err := store.ReplaceOffers(ctx, product.ID, []catalog.Offer{offer("hyang", 40000, 3000)}, fixedNow.Add(-24*time.Hour)); err != nil {
		t.Fatalf("seed offers: %v", err)
	}

	syncer := pricesync.New(store, nil, &stubAggregator{}, pricesync.WithClock(clock))
	report, err := syncer.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Cleared != 1 {
		t.Fatalf("expected cleared product, got %+v", report)
	}
	if offers, _ := store.OffersForProduct(ctx, product.ID); len(offers) != 0 {
		t.Fatalf("stale offers survived: %+v", offers)
	}
}

func TestRunSkipsNotApplicableRelease(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.MustAddProduct(t, store, catalog.Product{CatalogID: "r1001"})
	testsupport.MustAddProduct(t, store, catalog.Product{CatalogID: "r2002"})

	resolver := stubResolver{
		err: map[string]error{"r1001": identification.ErrNotApplicable},
		resolved: map[string]catalog.Identifier{
			"r2002": {CatalogID: "r2002", Barcode: "0886972352710", Title: "Thriller", Artist: "Michael Jackson"},
		},
	}
	agg := &stubAggregator{outcomes: map[string]aggregate.Outcome{
		"0886972352710": {Offers: []catalog.Offer{offer("aladin", 38000, 0)}},
	}}
	syncer := pricesync.New(store, resolver, agg, pricesync.WithClock(clock))

	report, err := syncer.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Skipped != 1 || report.WithOffers != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(agg.calls) != 1 {
		t.Fatalf("non-vinyl release must not reach vendors, got %d queries", len(agg.calls))
	}
	if !agg.queried("0886972352710") {
		t.Fatalf("expected search by resolved barcode, got %+v", agg.calls)
	}
}

func TestRunAbortsWhenVendorBlocks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	first := testsupport.MustAddProduct(t, store, catalog.Product{Barcode: "1111111111116"})
	blocked := testsupport.MustAddProduct(t, store, catalog.Product{Barcode: "2222222222222"})
	testsupport.MustAddProduct(t, store, catalog.Product{Barcode: "3333333333338"})

	ctx := context.Background()
	previous := []catalog.Offer{offer("kyobo", 45000, 0)}
	if err := store.ReplaceOffers(ctx, blocked.ID, previous, fixedNow.Add(-time.Hour)); err != nil {
		t.Fatalf("seed offers: %v", err)
	}

	agg := &stubAggregator{outcomes: map[string]aggregate.Outcome{
		"1111111111116": {Offers: []catalog.Offer{offer("gimbab", 30000, 3500)}},
		"2222222222222": {
			Offers:         []catalog.Offer{offer("yes24", 1000, 0)},
			Blocked:        true,
			BlockedVendors: []string{"coupang"},
		},
	}}
	notifier := &recordingNotifier{}
	syncer := pricesync.New(store, nil, agg, pricesync.WithClock(clock), pricesync.WithNotifier(notifier))

	report, err := syncer.Run(ctx)
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if !errors.Is(err, fetch.ErrBlocked) {
		t.Fatalf("expected blocked cause in chain, got %v", err)
	}
	if !report.Aborted || report.Processed != 1 || report.WithOffers != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if agg.queried("3333333333338") {
		t.Fatal("products after the blocked one must not be queried")
	}

	kept, err := store.OffersForProduct(ctx, blocked.ID)
	if err != nil {
		t.Fatalf("OffersForProduct: %v", err)
	}
	if len(kept) != 1 || kept[0].VendorName != "kyobo" {
		t.Fatalf("blocked product must keep its previous offers, got %+v", kept)
	}
	if offers, _ := store.OffersForProduct(ctx, first.ID); len(offers) != 1 {
		t.Fatalf("product before the block should be persisted, got %d offers", len(offers))
	}

	runs, _ := store.ListRuns(ctx, 1)
	if len(runs) != 1 || runs[0].Status != catalog.RunAborted {
		t.Fatalf("expected aborted run, got %+v", runs)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventSyncAborted {
		t.Fatalf("expected abort notification, got %v", notifier.events)
	}
	if notifier.last["vendors"] != "coupang" {
		t.Fatalf("expected blocked vendor in payload, got %v", notifier.last)
	}
}

func TestRunContinuesAfterStoreError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	broken := testsupport.MustAddProduct(t, store, catalog.Product{Barcode: "1111111111116"})
	healthy := testsupport.MustAddProduct(t, store, catalog.Product{Barcode: "2222222222222"})

	agg := &stubAggregator{outcomes: map[string]aggregate.Outcome{
		"1111111111116": {Offers: []catalog.Offer{offer("gimbab", 30000, 0)}},
		"2222222222222": {Offers: []catalog.Offer{offer("hyang", 31000, 0)}},
	}}
	syncer := pricesync.New(failingStore{Store: store, failReplace: broken.ID}, nil, agg, pricesync.WithClock(clock))

	report, err := syncer.Run(context.Background())
	if err != nil {
		t.Fatalf("store errors must not stop the run: %v", err)
	}
	if report.StoreErrors != 1 || report.WithOffers != 1 || report.Processed != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if offers, _ := store.OffersForProduct(context.Background(), healthy.ID); len(offers) != 1 {
		t.Fatalf("healthy product not persisted")
	}
}

func TestRunPacesProducts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	for _, barcode := range []string{"1111111111116", "2222222222222", "3333333333338"} {
		testsupport.MustAddProduct(t, store, catalog.Product{Barcode: barcode})
	}

	syncer := pricesync.New(store, nil, &stubAggregator{}, pricesync.WithProductDelay(40*time.Millisecond))
	started := time.Now()
	if _, err := syncer.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(started); elapsed < 80*time.Millisecond {
		t.Fatalf("expected two pauses between three products, run took %s", elapsed)
	}
}

type slowAggregator struct {
	work  time.Duration
	mu    sync.Mutex
	spans [][2]time.Time
}

func (a *slowAggregator) Aggregate(context.Context, catalog.Identifier) aggregate.Outcome {
	start := time.Now()
	time.Sleep(a.work)
	a.mu.Lock()
	a.spans = append(a.spans, [2]time.Time{start, time.Now()})
	a.mu.Unlock()
	return aggregate.Outcome{}
}

func TestRunPausesAfterSlowProducts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	for _, barcode := range []string{"1111111111116", "2222222222222"} {
		testsupport.MustAddProduct(t, store, catalog.Product{Barcode: barcode})
	}

	const delay = 100 * time.Millisecond
	agg := &slowAggregator{work: 150 * time.Millisecond}
	syncer := pricesync.New(store, nil, agg, pricesync.WithProductDelay(delay))
	if _, err := syncer.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	agg.mu.Lock()
	defer agg.mu.Unlock()
	if len(agg.spans) != 2 {
		t.Fatalf("expected two aggregations, got %d", len(agg.spans))
	}
	if gap := agg.spans[1][0].Sub(agg.spans[0][1]); gap < delay {
		t.Fatalf("gap between products = %s, want at least %s", gap, delay)
	}
}

type cancellingAggregator struct {
	cancel context.CancelFunc
	calls  int
}

func (a *cancellingAggregator) Aggregate(context.Context, catalog.Identifier) aggregate.Outcome {
	a.calls++
	a.cancel()
	return aggregate.Outcome{}
}

func TestRunCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	first := testsupport.MustAddProduct(t, store, catalog.Product{Barcode: "1111111111116"})
	testsupport.MustAddProduct(t, store, catalog.Product{Barcode: "2222222222222"})

	background := context.Background()
	if err := store.ReplaceOffers(background, first.ID, []catalog.Offer{offer("hyang", 40000, 0)}, fixedNow); err != nil {
		t.Fatalf("seed offers: %v", err)
	}

	ctx, cancel := context.WithCancel(background)
	defer cancel()
	agg := &cancellingAggregator{cancel: cancel}
	syncer := pricesync.New(store, nil, agg)
	if _, err := syncer.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if agg.calls != 1 {
		t.Fatalf("expected the run to stop after one product, got %d", agg.calls)
	}
	if offers, _ := store.OffersForProduct(background, first.ID); len(offers) != 1 {
		t.Fatal("results gathered after cancellation must not replace offers")
	}
	runs, _ := store.ListRuns(background, 1)
	if len(runs) != 1 || runs[0].Status != catalog.RunAborted || runs[0].FinishedAt == nil {
		t.Fatalf("cancelled run must be recorded as aborted, got %+v", runs)
	}
}

func TestSyncProduct(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	product := testsupport.MustAddProduct(t, store, catalog.Product{Barcode: "1111111111116"})
	agg := &stubAggregator{outcomes: map[string]aggregate.Outcome{
		"1111111111116": {Offers: []catalog.Offer{offer("musicplant", 29000, 2500)}},
	}}
	syncer := pricesync.New(store, nil, agg, pricesync.WithClock(clock))

	outcome, err := syncer.SyncProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("SyncProduct: %v", err)
	}
	if outcome.Result != pricesync.ResultOffers || len(outcome.Offers) != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	if _, err := syncer.SyncProduct(context.Background(), product.ID+100); !errors.Is(err, catalog.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
