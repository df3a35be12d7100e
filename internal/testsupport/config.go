package testsupport

import (
	"path/filepath"
	"testing"

	"vinylscout/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Pacing delays and retry backoff are shrunk so pipelines run instantly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Discogs.Token = "test-token"
	cfgVal.Discogs.RequestsPerMinute = 6000
	cfgVal.Fetch.BackoffInitialMS = 1
	cfgVal.Sync.ProductDelayMS = 1
	cfgVal.Cleanup.LinkCheckDelayMS = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithVendor points one vendor at a test server and enables it.
func WithVendor(name, baseURL string) ConfigOption {
	return func(b *configBuilder) {
		vendor := b.cfg.Vendors.Ref(name)
		if vendor == nil {
			b.t.Fatalf("unknown vendor %q", name)
		}
		vendor.Enabled = true
		vendor.BaseURL = baseURL
	}
}

// WithOnlyVendors disables every vendor not named.
func WithOnlyVendors(names ...string) ConfigOption {
	return func(b *configBuilder) {
		keep := make(map[string]bool, len(names))
		for _, name := range names {
			keep[name] = true
		}
		for _, name := range config.VendorNames {
			b.cfg.Vendors.Ref(name).Enabled = keep[name]
		}
	}
}

// WithDiscogs points the release lookup at a test server.
func WithDiscogs(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Discogs.BaseURL = baseURL
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
