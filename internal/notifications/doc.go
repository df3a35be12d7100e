// Package notifications delivers run events to an ntfy topic.
//
// NewService returns a no-op implementation when no topic is configured, so
// pipeline code can publish unconditionally. Each event type can be switched
// off in the [notifications] config section.
package notifications
