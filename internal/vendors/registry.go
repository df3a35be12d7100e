package vendors

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"vinylscout/internal/config"
	"vinylscout/internal/fetch"
	"vinylscout/internal/logging"
	"vinylscout/internal/matching"
)

// Status describes one vendor for the CLI listing.
type Status struct {
	Profile    Profile
	Enabled    bool
	Registered bool
	Note       string
}

// Registry holds the adapters enabled for this run, in display order.
type Registry struct {
	adapters []Adapter
	statuses []Status
}

// NewRegistry builds every enabled vendor adapter. Keyed vendors without
// credentials are skipped with a single warning.
func NewRegistry(cfg *config.Config, fetcher fetch.Fetcher, engine *matching.Engine, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	specs, err := LoadSelectors(cfg.Vendors.SelectorsPath)
	if err != nil {
		return nil, err
	}

	reg := &Registry{}
	for _, name := range config.VendorNames {
		profile := profiles[name]
		settings, _ := cfg.Vendors.VendorByName(name)
		status := Status{Profile: profile, Enabled: settings.Enabled}
		if !settings.Enabled {
			status.Note = "disabled"
			reg.statuses = append(reg.statuses, status)
			continue
		}
		if missing := missingCredentials(name, settings); missing != "" {
			status.Note = "missing " + missing
			logging.WarnWithContext(logger, "vendor not registered", "vendor_credentials_missing",
				logging.String(logging.FieldVendor, name),
				logging.String("missing", missing),
				logging.String(logging.FieldErrorHint, "set the credentials in config or .env"),
				logging.String(logging.FieldImpact, "vendor is skipped for every product"),
			)
			reg.statuses = append(reg.statuses, status)
			continue
		}

		b := base{
			profile:  profile,
			settings: settings,
			fetcher:  fetcher,
			engine:   engine,
			logger:   logging.ForVendor(logger, cfg, name),
			now:      time.Now,
		}
		adapter, err := newAdapter(b, specs)
		if err != nil {
			return nil, err
		}
		status.Registered = true
		reg.adapters = append(reg.adapters, adapter)
		reg.statuses = append(reg.statuses, status)
	}
	return reg, nil
}

// NewRegistryFromAdapters wraps prebuilt adapters.
func NewRegistryFromAdapters(adapters ...Adapter) *Registry {
	reg := &Registry{adapters: adapters}
	for _, adapter := range adapters {
		profile, _ := ProfileFor(adapter.Name())
		profile.Name = adapter.Name()
		reg.statuses = append(reg.statuses, Status{Profile: profile, Enabled: true, Registered: true})
	}
	return reg
}

func newAdapter(b base, specs map[string]SelectorSpec) (Adapter, error) {
	switch b.profile.Name {
	case "naver":
		return &naverAdapter{base: b}, nil
	case "aladin":
		return &aladinAdapter{base: b}, nil
	case "elevenst":
		return &elevenstAdapter{base: b}, nil
	}
	spec, ok := specs[b.profile.Name]
	if !ok {
		return nil, fmt.Errorf("no selectors for vendor %s", b.profile.Name)
	}
	return newHTMLAdapter(b, spec), nil
}

func missingCredentials(name string, v config.Vendor) string {
	var missing []string
	switch name {
	case "naver":
		if v.ClientID == "" {
			missing = append(missing, "client_id")
		}
		if v.ClientSecret == "" {
			missing = append(missing, "client_secret")
		}
	case "aladin", "elevenst":
		if v.APIKey == "" {
			missing = append(missing, "api_key")
		}
	}
	return strings.Join(missing, ", ")
}

// Adapters returns the registered adapters.
func (r *Registry) Adapters() []Adapter {
	return append([]Adapter(nil), r.adapters...)
}

// Statuses describes every known vendor, registered or not.
func (r *Registry) Statuses() []Status {
	return append([]Status(nil), r.statuses...)
}

// Profiles returns the traits of every known vendor keyed by name.
func Profiles() map[string]Profile {
	return maps.Clone(profiles)
}
