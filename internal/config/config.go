package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Catalog selects the catalog store backend.
type Catalog struct {
	Driver     string `toml:"driver"`
	DSN        string `toml:"dsn"`
	MaxConns   int    `toml:"max_conns"`
	WriteBatch int    `toml:"write_batch"`
}

// Discogs contains configuration for the canonical release lookup service.
type Discogs struct {
	Token             string   `toml:"token"`
	BaseURL           string   `toml:"base_url"`
	UserAgent         string   `toml:"user_agent"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
	TargetFormats     []string `toml:"target_formats"`
}

// Fetch contains the shared HTTP retrieval policy used by every vendor.
type Fetch struct {
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	MaxRetries       int    `toml:"max_retries"`
	BackoffInitialMS int    `toml:"backoff_initial_ms"`
	UserAgent        string `toml:"user_agent"`
	AcceptLanguage   string `toml:"accept_language"`
}

// Matching contains the thresholds applied by the validation engine.
type Matching struct {
	PriceFloor          int     `toml:"price_floor"`
	PriceCeiling        int     `toml:"price_ceiling"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
}

// Sync contains pacing and scheduling for the price sync run.
type Sync struct {
	ProductDelayMS  int `toml:"product_delay_ms"`
	IntervalMinutes int `toml:"interval_minutes"`
}

// Cleanup contains configuration for the integrity sweep.
type Cleanup struct {
	IntervalMinutes  int  `toml:"interval_minutes"`
	BatchSize        int  `toml:"batch_size"`
	DeleteBatchSize  int  `toml:"delete_batch_size"`
	CheckLinks       bool `toml:"check_links"`
	LinkCheckDelayMS int  `toml:"link_check_delay_ms"`
}

// Vendor contains per-source settings. Keyed API vendors read their
// credentials from here; HTML vendors only use the base URL and commercial terms.
type Vendor struct {
	Enabled          bool   `toml:"enabled"`
	BaseURL          string `toml:"base_url"`
	APIKey           string `toml:"api_key"`
	ClientID         string `toml:"client_id"`
	ClientSecret     string `toml:"client_secret"`
	Encoding         string `toml:"encoding"`
	ShippingFee      int    `toml:"shipping_fee"`
	FreeShippingOver int    `toml:"free_shipping_over"`
	ShippingPolicy   string `toml:"shipping_policy"`
	AffiliateCode    string `toml:"affiliate_code"`
	AffiliateParam   string `toml:"affiliate_param"`
}

// Vendors groups the ten offer sources.
type Vendors struct {
	SelectorsPath string `toml:"selectors_path"`
	Naver         Vendor `toml:"naver"`
	Aladin        Vendor `toml:"aladin"`
	ElevenSt      Vendor `toml:"elevenst"`
	Yes24         Vendor `toml:"yes24"`
	Kyobo         Vendor `toml:"kyobo"`
	Hyang         Vendor `toml:"hyang"`
	Gimbab        Vendor `toml:"gimbab"`
	SeoulVinyl    Vendor `toml:"seoulvinyl"`
	MusicPlant    Vendor `toml:"musicplant"`
	Coupang       Vendor `toml:"coupang"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	SyncCompleted  bool   `toml:"sync_completed"`
	SyncAborted    bool   `toml:"sync_aborted"`
	Sweep          bool   `toml:"sweep"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format       string            `toml:"format"`
	Level        string            `toml:"level"`
	VendorLevels map[string]string `toml:"vendor_levels"`
}

// Config encapsulates all configuration values for VinylScout.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Catalog: catalog store backend (sqlite or postgres)
//   - Discogs: canonical release lookup for barcode enrichment
//   - Fetch: per-attempt timeout, retry and request shaping
//   - Matching: price band and title similarity threshold
//   - Sync: inter-product delay and run interval
//   - Cleanup: integrity sweep batching and link checks
//   - Vendors: credentials, shipping and affiliate terms per source
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Catalog       Catalog       `toml:"catalog"`
	Discogs       Discogs       `toml:"discogs"`
	Fetch         Fetch         `toml:"fetch"`
	Matching      Matching      `toml:"matching"`
	Sync          Sync          `toml:"sync"`
	Cleanup       Cleanup       `toml:"cleanup"`
	Vendors       Vendors       `toml:"vendors"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vinylscout/config.toml")
}

// Load locates, parses, and validates a configuration file. A .env file in the
// working directory is read first so credentials can live outside the TOML file;
// variables already present in the environment win.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, fmt.Errorf("load .env: %w", err)
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vinylscout.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogPath returns the SQLite catalog database location.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// LockPath returns the single-writer lock file shared by the CLI and daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "vinylscout.lock")
}

// FetchTimeout returns the per-attempt deadline.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// FetchBackoff returns the first retry delay.
func (c *Config) FetchBackoff() time.Duration {
	return time.Duration(c.Fetch.BackoffInitialMS) * time.Millisecond
}

// ProductDelay returns the fixed pause between two products in a sync run.
func (c *Config) ProductDelay() time.Duration {
	return time.Duration(c.Sync.ProductDelayMS) * time.Millisecond
}

// SyncInterval returns how often the daemon starts a sync run.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalMinutes) * time.Minute
}

// CleanupInterval returns how often the daemon starts an integrity sweep.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Cleanup.IntervalMinutes) * time.Minute
}

// VendorByName returns the settings block for a vendor.
func (v Vendors) VendorByName(name string) (Vendor, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "naver":
		return v.Naver, true
	case "aladin":
		return v.Aladin, true
	case "elevenst":
		return v.ElevenSt, true
	case "yes24":
		return v.Yes24, true
	case "kyobo":
		return v.Kyobo, true
	case "hyang":
		return v.Hyang, true
	case "gimbab":
		return v.Gimbab, true
	case "seoulvinyl":
		return v.SeoulVinyl, true
	case "musicplant":
		return v.MusicPlant, true
	case "coupang":
		return v.Coupang, true
	default:
		return Vendor{}, false
	}
}

// VendorNames lists the supported vendors in display order.
var VendorNames = []string{
	"naver", "aladin", "elevenst", "yes24", "kyobo",
	"hyang", "gimbab", "seoulvinyl", "musicplant", "coupang",
}

// Ref returns the settings block for a vendor so callers can edit it in place.
// It returns nil for unknown names.
func (v *Vendors) Ref(name string) *Vendor {
	return v.all()[strings.ToLower(strings.TrimSpace(name))]
}

func (v *Vendors) all() map[string]*Vendor {
	return map[string]*Vendor{
		"naver":      &v.Naver,
		"aladin":     &v.Aladin,
		"elevenst":   &v.ElevenSt,
		"yes24":      &v.Yes24,
		"kyobo":      &v.Kyobo,
		"hyang":      &v.Hyang,
		"gimbab":     &v.Gimbab,
		"seoulvinyl": &v.SeoulVinyl,
		"musicplant": &v.MusicPlant,
		"coupang":    &v.Coupang,
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
