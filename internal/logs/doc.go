// Package logs reads the structured log file the daemon writes to
// paths.log_dir.
//
// Tail returns the last N lines with bounded memory and the offset to resume
// from; Follow polls from that offset until the context ends. Entries are
// decoded from the JSON records so the CLI can filter by vendor, run, or
// minimum level and render a compact one-line view.
package logs
