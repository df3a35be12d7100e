// Package logging builds the slog loggers used across VinylScout.
//
// Console output is a compact single-line format that lifts the component,
// vendor and product id into the line prefix; a JSON copy of every record is
// written to the log directory for later inspection. Per-vendor level
// overrides let an operator turn on debug output for one noisy source without
// flooding the rest of a sync run.
//
// Context helpers tag records with run ids, product ids and request ids
// attached by the services package.
package logging
