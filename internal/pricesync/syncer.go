package pricesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vinylscout/internal/aggregate"
	"vinylscout/internal/catalog"
	"vinylscout/internal/config"
	"vinylscout/internal/fetch"
	"vinylscout/internal/identification"
	"vinylscout/internal/logging"
	"vinylscout/internal/matching"
	"vinylscout/internal/metrics"
	"vinylscout/internal/notifications"
	"vinylscout/internal/services"
	"vinylscout/internal/vendors"
)

// Store is the slice of the catalog a sync run needs.
type Store interface {
	Product(ctx context.Context, id int64) (*catalog.Product, error)
	ProductIDs(ctx context.Context) ([]int64, error)
	ReplaceOffers(ctx context.Context, productID int64, offers []catalog.Offer, syncedAt time.Time) error
	AppendPriceHistory(ctx context.Context, point catalog.PriceHistoryPoint) (bool, error)
	StartRun(ctx context.Context, run catalog.SyncRun) error
	FinishRun(ctx context.Context, run catalog.SyncRun) error
}

// Resolver enriches identifiers that have no barcode.
type Resolver interface {
	Resolve(ctx context.Context, id catalog.Identifier) (catalog.Identifier, error)
}

// Aggregator queries every vendor for one identifier.
type Aggregator interface {
	Aggregate(ctx context.Context, id catalog.Identifier) aggregate.Outcome
}

// Result classifies what happened to one product.
type Result string

const (
	ResultOffers     Result = "offers"
	ResultCleared    Result = "cleared"
	ResultSkipped    Result = "skipped"
	ResultStoreError Result = "store_error"
	ResultAborted    Result = "aborted"
)

// ProductOutcome describes one processed product.
type ProductOutcome struct {
	ProductID  int64
	Result     Result
	Identifier catalog.Identifier
	Offers     []catalog.Offer
	// Reason explains skipped products.
	Reason         string
	BlockedVendors []string
	StoreErr       error
}

// Report summarises a sync run.
type Report struct {
	RunID          string
	Processed      int
	WithOffers     int
	Cleared        int
	Skipped        int
	StoreErrors    int
	Aborted        bool
	BlockedVendors []string
	StartedAt      time.Time
	Duration       time.Duration
}

func (r *Report) add(outcome ProductOutcome) {
	if outcome.StoreErr != nil {
		r.StoreErrors++
	}
	switch outcome.Result {
	case ResultAborted:
		r.Aborted = true
		r.BlockedVendors = append(r.BlockedVendors, outcome.BlockedVendors...)
		return
	case ResultOffers:
		r.WithOffers++
	case ResultCleared:
		r.Cleared++
	case ResultSkipped:
		r.Skipped++
	}
	r.Processed++
}

// Option customises a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotifier sets the notification service used at the end of a run.
func WithNotifier(notifier notifications.Service) Option {
	return func(s *Syncer) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithProductDelay sets the pause between two products. Zero disables pacing.
func WithProductDelay(delay time.Duration) Option {
	return func(s *Syncer) {
		s.delay = max(delay, 0)
	}
}

// WithVendorNames records the vendors behind the aggregator for status
// reporting.
func WithVendorNames(names []string) Option {
	return func(s *Syncer) {
		s.vendors = append([]string(nil), names...)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		if now != nil {
			s.now = now
		}
	}
}

// Syncer runs price syncs.
type Syncer struct {
	store      Store
	resolver   Resolver
	aggregator Aggregator
	notifier   notifications.Service
	logger     *slog.Logger
	delay      time.Duration
	now        func() time.Time
	vendors    []string
}

// New builds a Syncer. resolver may be nil, in which case identifiers are
// used as stored.
func New(store Store, resolver Resolver, aggregator Aggregator, opts ...Option) *Syncer {
	s := &Syncer{
		store:      store,
		resolver:   resolver,
		aggregator: aggregator,
		notifier:   notifications.NewService(nil),
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "pricesync")
	return s
}

// NewFromConfig wires the fetch layer, the enabled vendor adapters, the
// validation engine and the Discogs resolver from configuration.
func NewFromConfig(cfg *config.Config, store Store, logger *slog.Logger) (*Syncer, error) {
	if cfg == nil {
		return nil, errors.New("pricesync: config is required")
	}
	if store == nil {
		return nil, errors.New("pricesync: store is required")
	}
	fetcher := fetch.NewFromConfig(cfg, logger)
	registry, err := vendors.NewRegistry(cfg, fetcher, matching.NewFromConfig(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("build vendor registry: %w", err)
	}
	if len(registry.Adapters()) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pricesync", "build adapters", "no vendor is enabled", nil)
	}
	names := make([]string, 0, len(registry.Adapters()))
	for _, adapter := range registry.Adapters() {
		names = append(names, adapter.Name())
	}
	return New(
		store,
		identification.NewResolverFromConfig(cfg, logger),
		aggregate.New(registry.Adapters(), logger),
		WithLogger(logger),
		WithVendorNames(names),
		WithNotifier(notifications.NewService(cfg)),
		WithProductDelay(cfg.ProductDelay()),
	), nil
}

// Vendors lists the vendors this syncer queries.
func (s *Syncer) Vendors() []string {
	return append([]string(nil), s.vendors...)
}

// Run syncs every product in id order. It returns an error wrapping
// services.ErrRateLimited when a vendor blocks the run, or the context error
// when the run is cancelled.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, s.logger)

	started := s.now()
	report := Report{RunID: runID, StartedAt: started}
	run := catalog.SyncRun{
		ID:        runID,
		Kind:      catalog.RunKindSync,
		Status:    catalog.RunRunning,
		StartedAt: started,
	}
	if err := s.store.StartRun(ctx, run); err != nil {
		return report, services.Wrap(services.ErrTransient, "pricesync", "start run", "record run", err)
	}
	logger.Info("sync run started")

	runErr := s.walk(ctx, &report)
	report.Duration = s.now().Sub(started)

	s.finish(ctx, run, report, runErr)
	s.notify(ctx, report, runErr)

	if runErr != nil {
		logger.Warn("sync run stopped",
			logging.Int("processed", report.Processed),
			logging.Bool("aborted", report.Aborted),
			logging.Error(runErr),
		)
		return report, runErr
	}
	logger.Info("sync run finished",
		logging.Int("processed", report.Processed),
		logging.Int("with_offers", report.WithOffers),
		logging.Int("cleared", report.Cleared),
		logging.Int("skipped", report.Skipped),
		logging.Int("store_errors", report.StoreErrors),
		logging.Duration("duration", report.Duration),
	)
	return report, nil
}

func (s *Syncer) walk(ctx context.Context, report *Report) error {
	ids, err := s.store.ProductIDs(ctx)
	if err != nil {
		return services.Wrap(services.ErrTransient, "pricesync", "list products", "", err)
	}

	for i, id := range ids {
		if i > 0 {
			if err := sleepContext(ctx, s.delay); err != nil {
				return err
			}
		}
		outcome, err := s.syncProduct(ctx, id)
		report.add(outcome)
		if err != nil {
			return err
		}
	}
	return nil
}

// sleepContext pauses for d or until ctx ends. The pause between products is
// measured from the end of the previous one.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SyncProduct refreshes a single product outside a full run.
func (s *Syncer) SyncProduct(ctx context.Context, id int64) (ProductOutcome, error) {
	outcome, err := s.syncProduct(ctx, id)
	if err == nil && outcome.Result == ResultSkipped && outcome.Reason == reasonNotFound {
		return outcome, fmt.Errorf("product %d: %w", id, catalog.ErrProductNotFound)
	}
	return outcome, err
}

const (
	reasonNotFound      = "product_not_found"
	reasonUnusable      = "identifier_unusable"
	reasonNotApplicable = "format_not_applicable"
)

// syncProduct handles one product. A non-nil error means the run must stop.
func (s *Syncer) syncProduct(ctx context.Context, id int64) (ProductOutcome, error) {
	ctx = services.WithProductID(ctx, id)
	logger := logging.WithContext(ctx, s.logger)
	outcome := ProductOutcome{ProductID: id}

	product, err := s.store.Product(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			logging.WarnWithContext(logger, "product vanished before sync", "product_missing",
				logging.String(logging.FieldErrorHint, "product was deleted during the run"),
				logging.String(logging.FieldImpact, "product skipped"),
			)
			return s.skip(outcome, reasonNotFound), nil
		}
		return s.storeFailure(logger, outcome, "load product", err), nil
	}

	ident := product.Identifier()
	if !ident.Usable() {
		logging.WarnWithContext(logger, "product has no usable identifier", "identifier_unusable",
			logging.String(logging.FieldErrorHint, "add a barcode, catalog id, or title and artist"),
			logging.String(logging.FieldImpact, "product skipped"),
		)
		outcome.Identifier = ident
		return s.skip(outcome, reasonUnusable), nil
	}

	if strings.TrimSpace(ident.Barcode) == "" && s.resolver != nil {
		resolved, err := s.resolver.Resolve(ctx, ident)
		switch {
		case errors.Is(err, identification.ErrNotApplicable):
			logging.WarnWithContext(logger, "release is not a target format", "format_not_applicable",
				logging.String("catalog_id", ident.CatalogID),
				logging.String(logging.FieldErrorHint, "remove the product or correct its catalog id"),
				logging.String(logging.FieldImpact, "product skipped"),
			)
			outcome.Identifier = ident
			return s.skip(outcome, reasonNotApplicable), nil
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return outcome, ctxErr
			}
			logging.WarnWithContext(logger, "identifier resolution failed", "resolve_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "searching with the stored identifier"),
			)
		default:
			ident = resolved
		}
	}
	outcome.Identifier = ident

	result := s.aggregator.Aggregate(ctx, ident)
	if result.Blocked {
		outcome.Result = ResultAborted
		outcome.BlockedVendors = result.BlockedVendors
		metrics.RecordSyncProduct(string(ResultAborted))
		logging.ErrorWithContext(logger, "vendor blocked automated requests", "vendor_blocked",
			logging.String("vendors", strings.Join(result.BlockedVendors, ",")),
			logging.String(logging.FieldErrorHint, "wait before retrying or raise sync.product_delay_ms"),
			logging.String(logging.FieldImpact, "sync run aborted; product left unchanged"),
		)
		return outcome, services.Wrap(services.ErrRateLimited, "pricesync", "aggregate",
			"blocked by "+strings.Join(result.BlockedVendors, ", "), fetch.ErrBlocked)
	}
	if err := ctx.Err(); err != nil {
		// Results gathered under a cancelled context are incomplete.
		return outcome, err
	}

	now := s.now()
	if err := s.store.ReplaceOffers(ctx, id, result.Offers, now); err != nil {
		return s.storeFailure(logger, outcome, "replace offers", err), nil
	}
	outcome.Offers = result.Offers

	if len(result.Offers) == 0 {
		outcome.Result = ResultCleared
		metrics.RecordSyncProduct(string(ResultCleared))
		logger.Info("no offers found", logging.Int("vendors", len(result.Results)))
		return outcome, nil
	}

	outcome.Result = ResultOffers
	metrics.RecordSyncProduct(string(ResultOffers))
	lowest, _ := catalog.LowestEffectivePrice(result.Offers)
	point := catalog.PriceHistoryPoint{
		ProductID: id,
		Date:      now.Format(catalog.HistoryDateLayout),
		Price:     lowest,
	}
	if _, err := s.store.AppendPriceHistory(ctx, point); err != nil {
		outcome.StoreErr = err
		logging.WarnWithContext(logger, "price history append failed", "store_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "offers saved; today's history point missing"),
		)
	}
	logger.Info("offers updated",
		logging.Int("offers", len(result.Offers)),
		logging.Int("lowest_price", lowest),
	)
	return outcome, nil
}

func (s *Syncer) skip(outcome ProductOutcome, reason string) ProductOutcome {
	outcome.Result = ResultSkipped
	outcome.Reason = reason
	metrics.RecordSyncProduct(string(ResultSkipped))
	return outcome
}

func (s *Syncer) storeFailure(logger *slog.Logger, outcome ProductOutcome, op string, err error) ProductOutcome {
	outcome.Result = ResultStoreError
	outcome.StoreErr = err
	metrics.RecordSyncProduct(string(ResultStoreError))
	logging.WarnWithContext(logger, "catalog write failed", "store_error",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check catalog database health"),
		logging.String(logging.FieldImpact, "product keeps its previous offers"),
	)
	return outcome
}

func (s *Syncer) finish(ctx context.Context, run catalog.SyncRun, report Report, runErr error) {
	finished := s.now()
	run.Status = services.FailureStatus(runErr)
	run.FinishedAt = &finished
	run.Processed = report.Processed
	run.WithOffers = report.WithOffers
	run.Cleared = report.Cleared
	run.Skipped = report.Skipped
	run.Detail = runDetail(report, runErr)

	// The run record must land even when the run was cancelled.
	if err := s.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "failed to record run result", "store_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run history shows the run as running"),
		)
	}
}

func runDetail(report Report, runErr error) string {
	var parts []string
	if runErr != nil {
		parts = append(parts, runErr.Error())
	}
	if report.StoreErrors > 0 {
		parts = append(parts, fmt.Sprintf("%d store errors", report.StoreErrors))
	}
	return strings.Join(parts, "; ")
}

func (s *Syncer) notify(ctx context.Context, report Report, runErr error) {
	var (
		event   notifications.Event
		payload notifications.Payload
	)
	switch {
	case runErr == nil:
		event = notifications.EventSyncCompleted
		payload = notifications.Payload{
			"processed":  report.Processed,
			"withOffers": report.WithOffers,
			"cleared":    report.Cleared,
			"skipped":    report.Skipped,
			"duration":   report.Duration,
		}
	case errors.Is(runErr, services.ErrRateLimited):
		event = notifications.EventSyncAborted
		payload = notifications.Payload{
			"processed": report.Processed,
			"vendors":   strings.Join(report.BlockedVendors, ", "),
			"reason":    "vendors are refusing automated requests",
		}
	case errors.Is(runErr, context.Canceled):
		return
	default:
		event = notifications.EventError
		payload = notifications.Payload{
			"context": "price sync",
			"error":   runErr,
		}
	}
	if err := s.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run result was not pushed"),
		)
	}
}
