package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"vinylscout/internal/api"
	"vinylscout/internal/catalog"
	"vinylscout/internal/cleanup"
	"vinylscout/internal/config"
	"vinylscout/internal/logging"
	"vinylscout/internal/pricesync"
	"vinylscout/internal/services"
)

// Syncer runs price syncs.
type Syncer interface {
	Run(ctx context.Context) (pricesync.Report, error)
	SyncProduct(ctx context.Context, id int64) (pricesync.ProductOutcome, error)
}

// Sweeper runs integrity sweeps.
type Sweeper interface {
	Run(ctx context.Context) (cleanup.Report, error)
}

// Store is the read side of the catalog served by the API.
type Store interface {
	Product(ctx context.Context, id int64) (*catalog.Product, error)
	OffersForProduct(ctx context.Context, productID int64) ([]catalog.Offer, error)
	PriceHistory(ctx context.Context, productID int64, limit int) ([]catalog.PriceHistoryPoint, error)
	ListRuns(ctx context.Context, limit int) ([]catalog.SyncRun, error)
}

// Daemon schedules syncs and sweeps and serves the HTTP API.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   Store
	syncer  Syncer
	sweeper Sweeper
	vendors []string

	lockPath      string
	syncInterval  time.Duration
	sweepInterval time.Duration
	syncOnStart   bool

	syncRequests chan struct{}
	api          *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	busy     string
	syncJob  api.JobStatus
	sweepJob api.JobStatus
}

// Option customises a Daemon.
type Option func(*Daemon)

// WithIntervals overrides the configured sync and sweep intervals. A
// non-positive interval disables that schedule.
func WithIntervals(syncEvery, sweepEvery time.Duration) Option {
	return func(d *Daemon) {
		d.syncInterval = syncEvery
		d.sweepInterval = sweepEvery
	}
}

// WithSyncOnStart controls whether a sync is requested as soon as the daemon
// starts. It is on by default.
func WithSyncOnStart(enabled bool) Option {
	return func(d *Daemon) {
		d.syncOnStart = enabled
	}
}

// WithVendors records the enabled vendor names reported by /api/status.
func WithVendors(names []string) Option {
	return func(d *Daemon) {
		d.vendors = append([]string(nil), names...)
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store Store, syncer Syncer, sweeper Sweeper, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || syncer == nil || sweeper == nil {
		return nil, errors.New("daemon requires config, store, syncer, and sweeper")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:           cfg,
		logger:        logging.NewComponentLogger(logger, "daemon"),
		store:         store,
		syncer:        syncer,
		sweeper:       sweeper,
		lockPath:      cfg.LockPath(),
		syncInterval:  cfg.SyncInterval(),
		sweepInterval: cfg.CleanupInterval(),
		syncOnStart:   true,
		syncRequests:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.api = newAPIServer(cfg.Paths.APIBind, cfg.Paths.APIToken, d, logger)
	return d, nil
}

// Start launches the scheduler and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	if d.syncOnStart {
		d.TriggerSync()
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.schedule(d.ctx)
	}()

	d.logger.Info("vinylscout daemon started",
		logging.String("lock", d.lockPath),
		logging.Duration("sync_interval", d.syncInterval),
		logging.Duration("sweep_interval", d.sweepInterval),
	)
	return nil
}

// Stop cancels the scheduler, waits for an in-flight job to wind down, and
// shuts the API server.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.api.stop()
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("vinylscout daemon stopped")
}

// TriggerSync asks the scheduler to start a sync. It reports false when a
// request is already pending.
func (d *Daemon) TriggerSync() bool {
	select {
	case d.syncRequests <- struct{}{}:
		return true
	default:
		return false
	}
}

// APIAddr returns the bound API address, or "" when the API is disabled.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() api.DaemonStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return api.DaemonStatus{
		Running:      d.running.Load(),
		Busy:         d.busy,
		LockFilePath: d.lockPath,
		Vendors:      append([]string(nil), d.vendors...),
		Sync:         d.syncJob,
		Sweep:        d.sweepJob,
	}
}

func (d *Daemon) schedule(ctx context.Context) {
	syncTick, stopSync := ticker(d.syncInterval)
	defer stopSync()
	sweepTick, stopSweep := ticker(d.sweepInterval)
	defer stopSweep()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.syncRequests:
			d.runSync(ctx)
		case <-syncTick:
			d.runSync(ctx)
		case <-sweepTick:
			d.runSweep(ctx)
		}
	}
}

// ticker returns a nil channel for a disabled schedule so its select case
// never fires.
func ticker(interval time.Duration) (<-chan time.Time, func()) {
	if interval <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(interval)
	return t.C, t.Stop
}

func (d *Daemon) runSync(ctx context.Context) {
	d.runJob(ctx, "sync", &d.syncJob, func(ctx context.Context) (string, error) {
		report, err := d.syncer.Run(ctx)
		return report.RunID, err
	})
}

func (d *Daemon) runSweep(ctx context.Context) {
	d.runJob(ctx, "sweep", &d.sweepJob, func(ctx context.Context) (string, error) {
		report, err := d.sweeper.Run(ctx)
		return report.RunID, err
	})
}

func (d *Daemon) runJob(ctx context.Context, name string, job *api.JobStatus, run func(context.Context) (string, error)) {
	lock, err := AcquireRunLock(d.lockPath)
	if err != nil {
		logging.WarnWithContext(d.logger, "scheduled run skipped", "run_lock_held",
			logging.String("job", name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "a CLI sync or sweep is holding the lock"),
			logging.String(logging.FieldImpact, "run retried at the next interval"),
		)
		return
	}
	defer func() {
		if err := lock.Release(); err != nil {
			d.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	started := time.Now()
	d.mu.Lock()
	d.busy = name
	job.LastStarted = started.UTC().Format(time.RFC3339)
	d.mu.Unlock()

	runID, runErr := run(ctx)

	d.mu.Lock()
	d.busy = ""
	job.LastFinished = time.Now().UTC().Format(time.RFC3339)
	job.LastRunID = runID
	job.LastError = ""
	if runErr != nil {
		job.LastError = runErr.Error()
	}
	d.mu.Unlock()

	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		d.logger.Info("run cancelled by shutdown", logging.String("job", name))
	case errors.Is(runErr, services.ErrRateLimited):
		logging.WarnWithContext(d.logger, "run aborted by vendor rate limiting", "run_rate_limited",
			logging.String("job", name),
			logging.String(logging.FieldRunID, runID),
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, "raise sync.product_delay_ms if this repeats"),
			logging.String(logging.FieldImpact, "remaining products keep their previous offers"),
		)
	default:
		logging.ErrorWithContext(d.logger, "scheduled run failed", "run_failed",
			logging.String("job", name),
			logging.String(logging.FieldRunID, runID),
			logging.Error(runErr),
		)
	}
}

// RefreshProduct force-refreshes one product under the run lock.
func (d *Daemon) RefreshProduct(ctx context.Context, id int64) (pricesync.ProductOutcome, error) {
	lock, err := AcquireRunLock(d.lockPath)
	if err != nil {
		return pricesync.ProductOutcome{}, err
	}
	defer func() { _ = lock.Release() }()
	return d.syncer.SyncProduct(ctx, id)
}
