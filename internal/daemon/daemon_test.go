package daemon_test

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"vinylscout/internal/cleanup"
	"vinylscout/internal/daemon"
	"vinylscout/internal/pricesync"
	"vinylscout/internal/testsupport"
)

type stubSyncer struct {
	runs     atomic.Int64
	ran      chan struct{}
	outcome  pricesync.ProductOutcome
	err      error
	refreshN atomic.Int64
}

func newStubSyncer() *stubSyncer {
	return &stubSyncer{ran: make(chan struct{}, 8)}
}

func (s *stubSyncer) Run(context.Context) (pricesync.Report, error) {
	n := s.runs.Add(1)
	select {
	case s.ran <- struct{}{}:
	default:
	}
	return pricesync.Report{RunID: "sync-" + strconv.FormatInt(n, 10)}, nil
}

func (s *stubSyncer) SyncProduct(_ context.Context, id int64) (pricesync.ProductOutcome, error) {
	s.refreshN.Add(1)
	out := s.outcome
	out.ProductID = id
	return out, s.err
}

type stubSweeper struct {
	runs atomic.Int64
}

func (s *stubSweeper) Run(context.Context) (cleanup.Report, error) {
	s.runs.Add(1)
	return cleanup.Report{RunID: "sweep"}, nil
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for run")
	}
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, newStubSyncer(), &stubSweeper{}, nil, daemon.WithSyncOnStart(false))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Status().Running {
		t.Fatal("expected daemon to report running")
	}
	if d.APIAddr() == "" {
		t.Fatal("expected api server to be bound")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonRejectsMissingDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil, newStubSyncer(), &stubSweeper{}, nil); err == nil {
		t.Fatal("expected error without a store")
	}
}

func TestDaemonSyncsOnStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	syncer := newStubSyncer()
	d, err := daemon.New(cfg, store, syncer, &stubSweeper{}, nil, daemon.WithIntervals(0, 0))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	waitFor(t, syncer.ran)

	deadline := time.Now().Add(3 * time.Second)
	for d.Status().Sync.LastFinished == "" {
		if time.Now().After(deadline) {
			t.Fatal("sync status never recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
	status := d.Status()
	if status.Sync.LastRunID != "sync-1" || status.Sync.LastError != "" {
		t.Fatalf("unexpected sync status: %+v", status.Sync)
	}
}

func TestDaemonSweepsOnInterval(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	sweeper := &stubSweeper{}
	d, err := daemon.New(cfg, store, newStubSyncer(), sweeper, nil,
		daemon.WithSyncOnStart(false),
		daemon.WithIntervals(0, 20*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	deadline := time.Now().Add(3 * time.Second)
	for sweeper.runs.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected repeated sweeps, got %d", sweeper.runs.Load())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDaemonSkipsRunWhileLockHeld(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	held, err := daemon.AcquireRunLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("AcquireRunLock: %v", err)
	}

	syncer := newStubSyncer()
	d, err := daemon.New(cfg, store, syncer, &stubSweeper{}, nil, daemon.WithIntervals(0, 0))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	time.Sleep(100 * time.Millisecond)
	if got := syncer.runs.Load(); got != 0 {
		t.Fatalf("sync ran %d times while lock was held", got)
	}

	if err := held.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	d.TriggerSync()
	waitFor(t, syncer.ran)
}

func TestAcquireRunLockExcludesSecondHolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := daemon.AcquireRunLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := daemon.AcquireRunLock(cfg.LockPath()); !errors.Is(err, daemon.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	second, err := daemon.AcquireRunLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = second.Release()
}

func TestRefreshProductRespectsRunLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	syncer := newStubSyncer()
	d, err := daemon.New(cfg, store, syncer, &stubSweeper{}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	held, err := daemon.AcquireRunLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("AcquireRunLock: %v", err)
	}
	if _, err := d.RefreshProduct(context.Background(), 1); !errors.Is(err, daemon.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	_ = held.Release()

	if _, err := d.RefreshProduct(context.Background(), 1); err != nil {
		t.Fatalf("RefreshProduct: %v", err)
	}
	if syncer.refreshN.Load() != 1 {
		t.Fatalf("expected one refresh, got %d", syncer.refreshN.Load())
	}
}
