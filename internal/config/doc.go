// Package config loads, normalizes, and validates VinylScout configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DISCOGS_TOKEN and NAVER_CLIENT_ID, optionally sourced from a .env file. The
// Config type centralizes every knob the sync run, the integrity sweep, and the
// CLI need: vendor credentials, the shared fetch policy, and the price band and
// similarity threshold used to accept an offer.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
