// Package services defines shared utilities consumed by the sync, sweep and
// vendor layers.
//
// Key responsibilities:
//   - Context helpers that stamp product ids, vendor names, run ids and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent run statuses (aborted vs failed).
package services
