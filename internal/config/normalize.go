package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog()
	c.normalizeDiscogs()
	c.normalizeFetch()
	if err := c.normalizeVendors(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		c.Paths.APIToken = envValue("VINYLSCOUT_API_TOKEN")
	}
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.Driver = strings.ToLower(strings.TrimSpace(c.Catalog.Driver))
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = defaultCatalogDriver
	}
	c.Catalog.DSN = strings.TrimSpace(c.Catalog.DSN)
	if c.Catalog.DSN == "" && c.Catalog.Driver == "postgres" {
		c.Catalog.DSN = envValue("VINYLSCOUT_PG_DSN")
	}
	if c.Catalog.MaxConns <= 0 {
		c.Catalog.MaxConns = defaultCatalogMaxConns
	}
	if c.Catalog.WriteBatch <= 0 {
		c.Catalog.WriteBatch = defaultCatalogWriteBatch
	}
}

func (c *Config) normalizeDiscogs() {
	c.Discogs.Token = strings.TrimSpace(c.Discogs.Token)
	if c.Discogs.Token == "" {
		c.Discogs.Token = envValue("DISCOGS_TOKEN")
	}
	c.Discogs.BaseURL = strings.TrimRight(strings.TrimSpace(c.Discogs.BaseURL), "/")
	if c.Discogs.BaseURL == "" {
		c.Discogs.BaseURL = defaultDiscogsBaseURL
	}
	c.Discogs.UserAgent = strings.TrimSpace(c.Discogs.UserAgent)
	if c.Discogs.UserAgent == "" {
		c.Discogs.UserAgent = defaultDiscogsUserAgent
	}
	if c.Discogs.TimeoutSeconds <= 0 {
		c.Discogs.TimeoutSeconds = defaultDiscogsTimeout
	}
	formats := make([]string, 0, len(c.Discogs.TargetFormats))
	seen := make(map[string]struct{}, len(c.Discogs.TargetFormats))
	for _, format := range c.Discogs.TargetFormats {
		trimmed := strings.TrimSpace(format)
		key := strings.ToLower(trimmed)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		formats = append(formats, trimmed)
	}
	if len(formats) == 0 {
		formats = append(formats, defaultTargetFormats...)
	}
	c.Discogs.TargetFormats = formats
}

func (c *Config) normalizeFetch() {
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultFetchUserAgent
	}
	c.Fetch.AcceptLanguage = strings.TrimSpace(c.Fetch.AcceptLanguage)
	if c.Fetch.AcceptLanguage == "" {
		c.Fetch.AcceptLanguage = defaultAcceptLanguage
	}
}

func (c *Config) normalizeVendors() error {
	if path := strings.TrimSpace(c.Vendors.SelectorsPath); path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return fmt.Errorf("vendors.selectors_path: %w", err)
		}
		c.Vendors.SelectorsPath = expanded
	}

	if c.Vendors.Naver.ClientID == "" {
		c.Vendors.Naver.ClientID = envValue("NAVER_CLIENT_ID")
	}
	if c.Vendors.Naver.ClientSecret == "" {
		c.Vendors.Naver.ClientSecret = envValue("NAVER_CLIENT_SECRET")
	}
	if c.Vendors.Aladin.APIKey == "" {
		c.Vendors.Aladin.APIKey = envValue("ALADIN_TTB_KEY")
	}
	if c.Vendors.ElevenSt.APIKey == "" {
		c.Vendors.ElevenSt.APIKey = envValue("ELEVENST_API_KEY")
	}

	for _, vendor := range c.Vendors.all() {
		vendor.BaseURL = strings.TrimSpace(vendor.BaseURL)
		vendor.APIKey = strings.TrimSpace(vendor.APIKey)
		vendor.ClientID = strings.TrimSpace(vendor.ClientID)
		vendor.ClientSecret = strings.TrimSpace(vendor.ClientSecret)
		vendor.Encoding = strings.ToLower(strings.TrimSpace(vendor.Encoding))
		vendor.ShippingPolicy = strings.TrimSpace(vendor.ShippingPolicy)
		vendor.AffiliateCode = strings.TrimSpace(vendor.AffiliateCode)
		vendor.AffiliateParam = strings.TrimSpace(vendor.AffiliateParam)
		if vendor.AffiliateCode != "" && vendor.AffiliateParam == "" {
			vendor.AffiliateParam = defaultAffiliateParam
		}
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if len(c.Logging.VendorLevels) > 0 {
		levels := make(map[string]string, len(c.Logging.VendorLevels))
		for vendor, level := range c.Logging.VendorLevels {
			vendor = strings.ToLower(strings.TrimSpace(vendor))
			level = strings.ToLower(strings.TrimSpace(level))
			if vendor == "" || level == "" {
				continue
			}
			levels[vendor] = level
		}
		c.Logging.VendorLevels = levels
	}
}

func envValue(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
