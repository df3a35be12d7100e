// Package aggregate fans one identifier out to every vendor adapter and
// gathers the validated offers.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vinylscout/internal/catalog"
	"vinylscout/internal/fetch"
	"vinylscout/internal/logging"
	"vinylscout/internal/matching"
	"vinylscout/internal/vendors"
)

// Outcome is everything one aggregation produced. Offers are in completion
// order; Results holds one entry per adapter.
type Outcome struct {
	Offers  []catalog.Offer
	Results []vendors.Result
	// Blocked is set when any vendor refused the request as automated traffic.
	Blocked        bool
	BlockedVendors []string
	Elapsed        time.Duration
}

// Aggregator runs all adapters concurrently for one identifier.
type Aggregator struct {
	adapters []vendors.Adapter
	logger   *slog.Logger
}

// New builds an aggregator over the given adapters.
func New(adapters []vendors.Adapter, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Aggregator{
		adapters: append([]vendors.Adapter(nil), adapters...),
		logger:   logging.NewComponentLogger(logger, "aggregate"),
	}
}

// Vendors returns the names of the adapters in use.
func (a *Aggregator) Vendors() []string {
	names := make([]string, 0, len(a.adapters))
	for _, adapter := range a.adapters {
		names = append(names, adapter.Name())
	}
	return names
}

// Aggregate queries every adapter and waits for all of them. A failing or
// panicking adapter never affects the others.
func (a *Aggregator) Aggregate(ctx context.Context, id catalog.Identifier) Outcome {
	started := time.Now()
	logger := logging.WithContext(ctx, a.logger)

	results := make(chan vendors.Result, len(a.adapters))
	var wg sync.WaitGroup
	for _, adapter := range a.adapters {
		wg.Add(1)
		go func(adapter vendors.Adapter) {
			defer wg.Done()
			results <- collectSafely(ctx, adapter, id)
		}(adapter)
	}
	wg.Wait()
	close(results)

	outcome := Outcome{Results: make([]vendors.Result, 0, len(a.adapters))}
	for result := range results {
		outcome.Results = append(outcome.Results, result)
		vendorLogger := logger.With(logging.String(logging.FieldVendor, result.Vendor))
		switch {
		case result.Offer != nil:
			outcome.Offers = append(outcome.Offers, *result.Offer)
			vendorLogger.Info("offer found",
				logging.Int("price", result.Offer.BasePrice),
				logging.Int("effective_price", result.Offer.EffectivePrice()),
				logging.Bool("in_stock", result.Offer.InStock),
				logging.Duration("elapsed", result.Elapsed),
			)
		case errors.Is(result.Err, fetch.ErrBlocked):
			outcome.Blocked = true
			outcome.BlockedVendors = append(outcome.BlockedVendors, result.Vendor)
			vendorLogger.Warn("vendor blocked",
				logging.String(logging.FieldEventType, "vendor_blocked"),
				logging.Error(result.Err),
			)
		default:
			attrs := []logging.Attr{
				logging.String("reason", string(result.Reason)),
				logging.Duration("elapsed", result.Elapsed),
			}
			if result.Err != nil {
				attrs = append(attrs, logging.Error(result.Err))
			}
			if result.Candidate != "" {
				attrs = append(attrs, logging.String("candidate", result.Candidate))
			}
			vendorLogger.Info("no offer", logging.Args(attrs...)...)
		}
	}
	outcome.Elapsed = time.Since(started)

	logger.Info("aggregation finished",
		logging.Int("vendors", len(outcome.Results)),
		logging.Int("offers", len(outcome.Offers)),
		logging.Bool("blocked", outcome.Blocked),
		logging.Duration("elapsed", outcome.Elapsed),
	)
	return outcome
}

func collectSafely(ctx context.Context, adapter vendors.Adapter, id catalog.Identifier) (result vendors.Result) {
	started := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = vendors.Result{
				Vendor:  adapter.Name(),
				Reason:  matching.ReasonPanic,
				Err:     fmt.Errorf("vendor %s panicked: %v", adapter.Name(), rec),
				Elapsed: time.Since(started),
			}
		}
	}()
	return adapter.Collect(ctx, id)
}
