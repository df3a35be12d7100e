package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateDiscogs(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateCleanup(); err != nil {
		return err
	}
	if err := c.validateVendors(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCatalog() error {
	switch c.Catalog.Driver {
	case "sqlite":
	case "postgres":
		if c.Catalog.DSN == "" {
			return errors.New("catalog.dsn is required for the postgres driver (or set VINYLSCOUT_PG_DSN)")
		}
	default:
		return fmt.Errorf("catalog.driver: unsupported value %q (want sqlite or postgres)", c.Catalog.Driver)
	}
	return nil
}

func (c *Config) validateDiscogs() error {
	if _, err := url.ParseRequestURI(c.Discogs.BaseURL); err != nil {
		return fmt.Errorf("discogs.base_url: %w", err)
	}
	if c.Discogs.TimeoutSeconds <= 0 {
		return errors.New("discogs.timeout_seconds must be positive")
	}
	if c.Discogs.RequestsPerMinute < 0 {
		return errors.New("discogs.requests_per_minute must be zero or positive")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.TimeoutSeconds <= 0 {
		return errors.New("fetch.timeout_seconds must be positive")
	}
	if c.Fetch.MaxRetries < 0 {
		return errors.New("fetch.max_retries must be zero or positive")
	}
	if c.Fetch.BackoffInitialMS < 0 {
		return errors.New("fetch.backoff_initial_ms must be zero or positive")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.PriceFloor <= 0 {
		return errors.New("matching.price_floor must be positive")
	}
	if c.Matching.PriceCeiling <= c.Matching.PriceFloor {
		return errors.New("matching.price_ceiling must be greater than matching.price_floor")
	}
	if c.Matching.SimilarityThreshold <= 0 || c.Matching.SimilarityThreshold > 1 {
		return errors.New("matching.similarity_threshold must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.ProductDelayMS < 0 {
		return errors.New("sync.product_delay_ms must be zero or positive")
	}
	if c.Sync.IntervalMinutes <= 0 {
		return errors.New("sync.interval_minutes must be positive")
	}
	return nil
}

func (c *Config) validateCleanup() error {
	if err := ensurePositiveMap(map[string]int{
		"cleanup.interval_minutes":  c.Cleanup.IntervalMinutes,
		"cleanup.batch_size":        c.Cleanup.BatchSize,
		"cleanup.delete_batch_size": c.Cleanup.DeleteBatchSize,
	}); err != nil {
		return err
	}
	if c.Cleanup.LinkCheckDelayMS < 0 {
		return errors.New("cleanup.link_check_delay_ms must be zero or positive")
	}
	return nil
}

func (c *Config) validateVendors() error {
	for name, vendor := range c.Vendors.all() {
		if !vendor.Enabled {
			continue
		}
		if vendor.BaseURL == "" {
			return fmt.Errorf("vendors.%s.base_url must be set", name)
		}
		if _, err := url.ParseRequestURI(vendor.BaseURL); err != nil {
			return fmt.Errorf("vendors.%s.base_url: %w", name, err)
		}
		if vendor.ShippingFee < 0 || vendor.FreeShippingOver < 0 {
			return fmt.Errorf("vendors.%s shipping values must be zero or positive", name)
		}
		switch vendor.Encoding {
		case "", "utf-8", "euc-kr":
		default:
			return fmt.Errorf("vendors.%s.encoding: unsupported value %q", name, vendor.Encoding)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	for vendor, level := range c.Logging.VendorLevels {
		if _, ok := c.Vendors.VendorByName(vendor); !ok {
			return fmt.Errorf("logging.vendor_levels: unknown vendor %q", vendor)
		}
		if !validLevel(level) {
			return fmt.Errorf("logging.vendor_levels.%s: unsupported value %q", vendor, level)
		}
	}
	return nil
}

func validLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
