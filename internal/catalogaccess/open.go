// Package catalogaccess opens the configured catalog backend.
package catalogaccess

import (
	"context"
	"fmt"

	"vinylscout/internal/catalog"
	"vinylscout/internal/catalog/postgres"
	"vinylscout/internal/config"
)

// Open returns the SQLite or Postgres store selected by catalog.driver. The
// caller owns the returned store and must Close it.
func Open(ctx context.Context, cfg *config.Config) (catalog.Repository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	switch cfg.Catalog.Driver {
	case "", "sqlite":
		store, err := catalog.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite catalog: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := postgres.Open(ctx, cfg.Catalog.DSN, postgres.Options{
			MaxConns:   cfg.Catalog.MaxConns,
			WriteBatch: cfg.Catalog.WriteBatch,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres catalog: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("catalog driver %q is not supported", cfg.Catalog.Driver)
	}
}
