// Package api defines the wire-format types served by the daemon HTTP API
// and printed by the CLI's --json output.
//
// # Key Types
//
// Offer: a ranked offer with its effective price and the affiliate-decorated
// link, ready for a storefront to render.
//
// Product, History, Run: transport views of catalog rows.
//
// DaemonStatus: scheduler state and the outcome of the last sync and sweep.
//
// # Converters
//
// FromOffers ranks offers by effective price before converting them so every
// consumer sees the same order. FromProduct, FromHistory and FromRun are
// direct translations.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// Prices are integer won amounts.
package api
