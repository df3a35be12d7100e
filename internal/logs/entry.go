package logs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"vinylscout/internal/logging"
)

// Entry is one decoded record from the JSON log file.
type Entry struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	Vendor    string
	RunID     string
	EventType string
	Error     string
	Raw       string
}

// Parse decodes a JSON log line. Lines that are not JSON objects come back
// with only Raw set and ok false.
func Parse(line string) (Entry, bool) {
	entry := Entry{Raw: line}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return entry, false
	}
	if ts, ok := fields["ts"].(string); ok {
		entry.Time, _ = time.Parse(time.RFC3339Nano, ts)
	}
	entry.Level = stringField(fields, "level")
	entry.Message = stringField(fields, "msg")
	entry.Component = stringField(fields, logging.FieldComponent)
	entry.Vendor = stringField(fields, logging.FieldVendor)
	entry.RunID = stringField(fields, logging.FieldRunID)
	entry.EventType = stringField(fields, logging.FieldEventType)
	entry.Error = stringField(fields, "error")
	return entry, true
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Filter selects entries by exact field match and minimum level. Empty
// fields match everything.
type Filter struct {
	MinLevel string
	Vendor   string
	RunID    string
}

// Match reports whether entry passes the filter. Unparsed lines only pass an
// empty filter.
func (f Filter) Match(entry Entry, parsed bool) bool {
	if f.empty() {
		return true
	}
	if !parsed {
		return false
	}
	if f.MinLevel != "" && levelRank(entry.Level) < levelRank(f.MinLevel) {
		return false
	}
	if f.Vendor != "" && !strings.EqualFold(entry.Vendor, f.Vendor) {
		return false
	}
	if f.RunID != "" && entry.RunID != f.RunID {
		return false
	}
	return true
}

func (f Filter) empty() bool {
	return f.MinLevel == "" && f.Vendor == "" && f.RunID == ""
}

func levelRank(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return 0
	case "info", "":
		return 1
	case "warn", "warning":
		return 2
	case "error":
		return 3
	default:
		return 1
	}
}

// Format renders an entry on one line: time, level, scope, message, and the
// error when present.
func Format(entry Entry, parsed bool) string {
	if !parsed {
		return entry.Raw
	}
	var b strings.Builder
	if !entry.Time.IsZero() {
		b.WriteString(entry.Time.Local().Format("2006-01-02 15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(entry.Level))
	scope := entry.Component
	if entry.Vendor != "" {
		scope = entry.Vendor
	}
	if scope != "" {
		fmt.Fprintf(&b, " [%s]", scope)
	}
	b.WriteByte(' ')
	b.WriteString(entry.Message)
	if entry.Error != "" {
		b.WriteString(": ")
		b.WriteString(entry.Error)
	}
	return b.String()
}
