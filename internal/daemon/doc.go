// Package daemon coordinates the long-running VinylScout process.
//
// It schedules price syncs and integrity sweeps on their configured intervals,
// serves the HTTP API, and guards every sync or sweep with a flock-based run
// lock on the data directory so the CLI and the daemon never write the catalog
// at the same time. A run that finds the lock held is skipped, not queued.
//
// Keep orchestration logic here: the sync and sweep themselves live in
// pricesync and cleanup while the daemon focuses on startup, shutdown and
// scheduling.
package daemon
