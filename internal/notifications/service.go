package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vinylscout/internal/config"
)

const userAgent = "VinylScout/0.1"

// Event names a notification type.
type Event string

const (
	EventSyncCompleted  Event = "sync_completed"
	EventSyncAborted    Event = "sync_aborted"
	EventSweepCompleted Event = "sweep_completed"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event fields. Keys are documented per event in format.
type Payload map[string]any

// Service publishes run events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventSyncCompleted:  cfg.Notifications.SyncCompleted,
			EventSyncAborted:    cfg.Notifications.SyncAborted,
			EventSweepCompleted: cfg.Notifications.Sweep,
			EventError:          cfg.Notifications.Errors,
			EventTest:           true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventSyncCompleted:
		return message{
			title: "VinylScout - Sync Complete",
			body: fmt.Sprintf("💿 Synced %d products in %s: %d with offers, %d cleared, %d skipped",
				payload.intValue("processed"), payload.durationValue("duration"),
				payload.intValue("withOffers"), payload.intValue("cleared"), payload.intValue("skipped")),
			tags: []string{"vinylscout", "sync", "completed"},
		}, true
	case EventSyncAborted:
		body := fmt.Sprintf("⛔ Sync aborted after %d products", payload.intValue("processed"))
		if vendors := payload.stringValue("vendors"); vendors != "" {
			body += ": blocked by " + vendors
		}
		if reason := payload.stringValue("reason"); reason != "" {
			body += "\n" + reason
		}
		return message{
			title:    "VinylScout - Sync Aborted",
			body:     body,
			tags:     []string{"vinylscout", "sync", "aborted"},
			priority: "high",
		}, true
	case EventSweepCompleted:
		verb := "Removed"
		if dry, _ := payload["dryRun"].(bool); dry {
			verb = "Would remove"
		}
		body := fmt.Sprintf("🧹 %s %d products and %d offers", verb, payload.intValue("products"), payload.intValue("offers"))
		if failed := payload.intValue("failedDeletes"); failed > 0 {
			body += fmt.Sprintf(" (%d failed deletes)", failed)
		}
		return message{
			title: "VinylScout - Sweep Complete",
			body:  body,
			tags:  []string{"vinylscout", "cleanup", "completed"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payload.stringValue("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if text := payload.stringValue("error"); text != "" {
			builder.WriteString(text)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "VinylScout - Error",
			body:     builder.String(),
			tags:     []string{"vinylscout", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "VinylScout - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"vinylscout", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (p Payload) stringValue(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

func (p Payload) intValue(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) durationValue(key string) string {
	d, _ := p[key].(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
