// Package main hosts the VinylScout CLI entrypoint and command graph.
//
// The Cobra command tree covers one-shot price syncs and integrity sweeps,
// catalog maintenance, offer and run inspection, the long-running daemon and
// configuration scaffolding. Syncs and sweeps started here take the same run
// lock as the daemon, so a command fails fast instead of writing the catalog
// while a scheduled run is in progress.
//
// Keep this package lean: new behaviour belongs in the internal packages and
// is surfaced here through dedicated commands or flags.
package main
