package cleanup

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"vinylscout/internal/catalog"
	"vinylscout/internal/config"
	"vinylscout/internal/fetch"
	"vinylscout/internal/logging"
	"vinylscout/internal/matching"
	"vinylscout/internal/notifications"
	"vinylscout/internal/services"
	"vinylscout/internal/vendors"
)

// Store is the slice of the catalog the sweep needs.
type Store interface {
	ProductsAfter(ctx context.Context, afterID int64, limit int) ([]catalog.Product, error)
	OffersForProducts(ctx context.Context, productIDs []int64) (map[int64][]catalog.Offer, error)
	DeleteProducts(ctx context.Context, ids []int64) (int64, error)
	DeleteOffers(ctx context.Context, ids []int64) (int64, error)
	StartRun(ctx context.Context, run catalog.SyncRun) error
	FinishRun(ctx context.Context, run catalog.SyncRun) error
}

// Deletion reasons reported per rule.
const (
	ReasonIncompleteProduct = "incomplete_product"
	ReasonNonRecordProduct  = "non_record_product"
	ReasonPriceOutOfRange   = "price_out_of_range"
	ReasonFormat            = "format_rejected"
	ReasonDuplicate         = "duplicate"
	ReasonDeadLink          = "dead_link"
)

// Settings controls batching and the optional link check.
type Settings struct {
	BatchSize       int
	DeleteBatchSize int
	CheckLinks      bool
	LinkCheckDelay  time.Duration
	DryRun          bool
}

// Report summarises one sweep. In a dry run the deletion counters state what
// would have been removed.
type Report struct {
	RunID           string
	DryRun          bool
	ProductsScanned int
	OffersScanned   int
	ProductsDeleted int
	OffersDeleted   int
	FailedDeletes   int
	Reasons         map[string]int
	StartedAt       time.Time
	Duration        time.Duration
}

// Option customises a Sweeper.
type Option func(*Sweeper)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotifier sets the notification service used at the end of a sweep.
func WithNotifier(notifier notifications.Service) Option {
	return func(s *Sweeper) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithFetcher sets the client used for dead link checks.
func WithFetcher(fetcher fetch.Fetcher) Option {
	return func(s *Sweeper) {
		s.fetcher = fetcher
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// Sweeper runs integrity sweeps.
type Sweeper struct {
	store    Store
	engine   *matching.Engine
	settings Settings
	fetcher  fetch.Fetcher
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time
}

const (
	defaultBatchSize       = 200
	defaultDeleteBatchSize = 100
)

// New builds a Sweeper. Link checks only run when settings.CheckLinks is set
// and a fetcher was supplied.
func New(store Store, engine *matching.Engine, settings Settings, opts ...Option) *Sweeper {
	if settings.BatchSize <= 0 {
		settings.BatchSize = defaultBatchSize
	}
	if settings.DeleteBatchSize <= 0 {
		settings.DeleteBatchSize = defaultDeleteBatchSize
	}
	s := &Sweeper{
		store:    store,
		engine:   engine,
		settings: settings,
		notifier: notifications.NewService(nil),
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = matching.NewEngine(matching.Options{})
	}
	s.logger = logging.NewComponentLogger(s.logger, "cleanup")
	return s
}

// NewFromConfig builds a Sweeper from the [cleanup] and [matching] sections.
func NewFromConfig(cfg *config.Config, store Store, logger *slog.Logger, dryRun bool) (*Sweeper, error) {
	if cfg == nil {
		return nil, errors.New("cleanup: config is required")
	}
	if store == nil {
		return nil, errors.New("cleanup: store is required")
	}
	settings := Settings{
		BatchSize:       cfg.Cleanup.BatchSize,
		DeleteBatchSize: cfg.Cleanup.DeleteBatchSize,
		CheckLinks:      cfg.Cleanup.CheckLinks,
		LinkCheckDelay:  time.Duration(cfg.Cleanup.LinkCheckDelayMS) * time.Millisecond,
		DryRun:          dryRun,
	}
	opts := []Option{
		WithLogger(logger),
		WithNotifier(notifications.NewService(cfg)),
	}
	if settings.CheckLinks {
		opts = append(opts, WithFetcher(fetch.NewFromConfig(cfg, logger)))
	}
	return New(store, matching.NewFromConfig(cfg), settings, opts...), nil
}

// sweepState is the accumulator threaded through the batch loop.
type sweepState struct {
	seen            map[string]struct{}
	pendingProducts []int64
	pendingOffers   []int64
	report          Report
	linkLimiter     *rate.Limiter
}

func newSweepState(runID string, settings Settings, started time.Time) *sweepState {
	limit := rate.Inf
	if settings.LinkCheckDelay > 0 {
		limit = rate.Every(settings.LinkCheckDelay)
	}
	return &sweepState{
		seen:        make(map[string]struct{}),
		linkLimiter: rate.NewLimiter(limit, 1),
		report: Report{
			RunID:     runID,
			DryRun:    settings.DryRun,
			Reasons:   make(map[string]int),
			StartedAt: started,
		},
	}
}

func (st *sweepState) deleteProduct(id int64, reason string) {
	st.pendingProducts = append(st.pendingProducts, id)
	st.report.Reasons[reason]++
}

func (st *sweepState) deleteOffer(id int64, reason string) {
	st.pendingOffers = append(st.pendingOffers, id)
	st.report.Reasons[reason]++
}

// Run performs one sweep over the whole catalog.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, s.logger)

	started := s.now()
	state := newSweepState(runID, s.settings, started)
	run := catalog.SyncRun{
		ID:        runID,
		Kind:      catalog.RunKindCleanup,
		Status:    catalog.RunRunning,
		StartedAt: started,
	}
	if err := s.store.StartRun(ctx, run); err != nil {
		return state.report, services.Wrap(services.ErrTransient, "cleanup", "start run", "record run", err)
	}
	logger.Info("integrity sweep started",
		logging.Bool("dry_run", s.settings.DryRun),
		logging.Bool("check_links", s.linkChecksEnabled()),
	)

	runErr := s.sweep(ctx, state)
	state.report.Duration = s.now().Sub(started)
	report := state.report

	s.finish(ctx, run, report, runErr)
	if runErr != nil {
		logging.WarnWithContext(logger, "integrity sweep stopped", "sweep_failed",
			logging.Error(runErr),
			logging.String(logging.FieldImpact, "catalog partially swept"),
		)
		if !errors.Is(runErr, context.Canceled) {
			s.publish(ctx, notifications.EventError, notifications.Payload{"context": "integrity sweep", "error": runErr})
		}
		return report, runErr
	}

	logger.Info("integrity sweep finished",
		logging.Int("products_scanned", report.ProductsScanned),
		logging.Int("offers_scanned", report.OffersScanned),
		logging.Int("products_deleted", report.ProductsDeleted),
		logging.Int("offers_deleted", report.OffersDeleted),
		logging.Int("failed_deletes", report.FailedDeletes),
		logging.Duration("duration", report.Duration),
	)
	s.publish(ctx, notifications.EventSweepCompleted, notifications.Payload{
		"products":      report.ProductsDeleted,
		"offers":        report.OffersDeleted,
		"failedDeletes": report.FailedDeletes,
		"dryRun":        report.DryRun,
	})
	return report, nil
}

func (s *Sweeper) sweep(ctx context.Context, state *sweepState) error {
	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		products, err := s.store.ProductsAfter(ctx, afterID, s.settings.BatchSize)
		if err != nil {
			return services.Wrap(services.ErrTransient, "cleanup", "page products", "", err)
		}
		if len(products) == 0 {
			break
		}
		afterID = products[len(products)-1].ID

		if err := s.sweepBatch(ctx, state, products); err != nil {
			return err
		}
		if len(state.pendingProducts)+len(state.pendingOffers) >= s.settings.DeleteBatchSize {
			s.flush(ctx, state)
		}
		if len(products) < s.settings.BatchSize {
			break
		}
	}
	s.flush(ctx, state)
	return nil
}

func (s *Sweeper) sweepBatch(ctx context.Context, state *sweepState, products []catalog.Product) error {
	keep := make([]int64, 0, len(products))
	for _, product := range products {
		state.report.ProductsScanned++
		if reason, drop := s.productVerdict(product); drop {
			state.deleteProduct(product.ID, reason)
			s.logger.Debug("product marked for deletion",
				logging.Args(append(logging.DecisionAttrs("sweep_product", "delete", reason),
					logging.Int64(logging.FieldProductID, product.ID))...)...)
			continue
		}
		keep = append(keep, product.ID)
	}
	if len(keep) == 0 {
		return nil
	}

	offersByProduct, err := s.store.OffersForProducts(ctx, keep)
	if err != nil {
		return services.Wrap(services.ErrTransient, "cleanup", "load offers", "", err)
	}
	for _, productID := range keep {
		offers := slices.Clone(offersByProduct[productID])
		slices.SortFunc(offers, func(a, b catalog.Offer) int {
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		for _, offer := range offers {
			state.report.OffersScanned++
			reason, drop, err := s.offerVerdict(ctx, state, offer)
			if err != nil {
				return err
			}
			if drop {
				state.deleteOffer(offer.ID, reason)
				s.logger.Debug("offer marked for deletion",
					logging.Args(append(logging.DecisionAttrs("sweep_offer", "delete", reason),
						logging.Int64(logging.FieldProductID, productID),
						logging.String(logging.FieldVendor, offer.VendorName),
						logging.Int64("offer_id", offer.ID))...)...)
			}
		}
	}
	return nil
}

func (s *Sweeper) productVerdict(product catalog.Product) (string, bool) {
	if strings.TrimSpace(product.Title) == "" || strings.TrimSpace(product.Artist) == "" {
		return ReasonIncompleteProduct, true
	}
	if matching.ProductDisqualified(product.FormatTags) {
		return ReasonNonRecordProduct, true
	}
	return "", false
}

// offerVerdict applies the offer rules in order. The returned error is only
// set when the context ends during a link check.
func (s *Sweeper) offerVerdict(ctx context.Context, state *sweepState, offer catalog.Offer) (string, bool, error) {
	if !s.engine.CheckPrice(offer.BasePrice).OK {
		return ReasonPriceOutOfRange, true, nil
	}
	if title := strings.TrimSpace(offer.Title); title != "" {
		profile, _ := vendors.ProfileFor(offer.VendorName)
		if !s.engine.CheckFormat(title, profile.FormatPure).OK {
			return ReasonFormat, true, nil
		}
	}

	key := fmt.Sprintf("%d|%s|%d", offer.ProductID, offer.VendorName, offer.EffectivePrice())
	if _, dup := state.seen[key]; dup {
		return ReasonDuplicate, true, nil
	}

	if s.linkChecksEnabled() && strings.TrimSpace(offer.URL) != "" {
		if err := state.linkLimiter.Wait(ctx); err != nil {
			return "", false, err
		}
		if s.linkDead(ctx, offer) {
			return ReasonDeadLink, true, nil
		}
	}

	// Only a surviving offer claims its key, so a dead earliest duplicate
	// leaves the next one in place.
	state.seen[key] = struct{}{}
	return "", false, nil
}

func (s *Sweeper) linkChecksEnabled() bool {
	return s.settings.CheckLinks && s.fetcher != nil
}

// linkDead reports true only for responses that say the page is gone.
// Blocks, timeouts and network failures keep the offer.
func (s *Sweeper) linkDead(ctx context.Context, offer catalog.Offer) bool {
	_, err := s.fetcher.Fetch(ctx, fetch.Request{Vendor: offer.VendorName, URL: offer.URL})
	if err == nil {
		return false
	}
	code, ok := fetch.StatusCode(err)
	if ok && (code == http.StatusNotFound || code == http.StatusGone) {
		return true
	}
	s.logger.Debug("link check inconclusive",
		logging.String(logging.FieldVendor, offer.VendorName),
		logging.String("class", fetch.Class(err)),
	)
	return false
}

// flush deletes pending ids in chunks. A failed chunk is logged and counted;
// the sweep carries on with the next chunk.
func (s *Sweeper) flush(ctx context.Context, state *sweepState) {
	products := state.pendingProducts
	offers := state.pendingOffers
	state.pendingProducts = nil
	state.pendingOffers = nil

	if s.settings.DryRun {
		state.report.ProductsDeleted += len(products)
		state.report.OffersDeleted += len(offers)
		return
	}
	state.report.ProductsDeleted += s.deleteChunks(ctx, state, "products", products, s.store.DeleteProducts)
	state.report.OffersDeleted += s.deleteChunks(ctx, state, "offers", offers, s.store.DeleteOffers)
}

func (s *Sweeper) deleteChunks(ctx context.Context, state *sweepState, kind string, ids []int64, del func(context.Context, []int64) (int64, error)) int {
	deleted := 0
	for chunk := range slices.Chunk(ids, s.settings.DeleteBatchSize) {
		n, err := del(ctx, chunk)
		if err != nil {
			state.report.FailedDeletes += len(chunk)
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "delete chunk failed", "delete_failed",
				logging.String("kind", kind),
				logging.Int("ids", len(chunk)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the next sweep retries these rows"),
				logging.String(logging.FieldImpact, "stale rows remain until the next sweep"),
			)
			continue
		}
		deleted += int(n)
	}
	return deleted
}

func (s *Sweeper) finish(ctx context.Context, run catalog.SyncRun, report Report, runErr error) {
	finished := s.now()
	run.Status = services.FailureStatus(runErr)
	run.FinishedAt = &finished
	run.Processed = report.ProductsScanned
	run.Deleted = report.ProductsDeleted + report.OffersDeleted
	run.Detail = sweepDetail(report, runErr)
	if err := s.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "failed to record sweep result", "store_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history shows the sweep as running"),
		)
	}
}

func sweepDetail(report Report, runErr error) string {
	var parts []string
	if runErr != nil {
		parts = append(parts, runErr.Error())
	}
	if report.DryRun {
		parts = append(parts, "dry run")
	}
	for _, reason := range slices.Sorted(maps.Keys(report.Reasons)) {
		parts = append(parts, fmt.Sprintf("%s=%d", reason, report.Reasons[reason]))
	}
	if report.FailedDeletes > 0 {
		parts = append(parts, fmt.Sprintf("failed_deletes=%d", report.FailedDeletes))
	}
	return strings.Join(parts, " ")
}

func (s *Sweeper) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := s.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "sweep result was not pushed"),
		)
	}
}
