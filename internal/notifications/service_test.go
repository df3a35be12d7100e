package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vinylscout/internal/config"
	"vinylscout/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventSyncCompleted, notifications.Payload{"processed": 3}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "sync completed",
			event: notifications.EventSyncCompleted,
			payload: notifications.Payload{
				"processed":  120,
				"withOffers": 97,
				"cleared":    20,
				"skipped":    3,
				"duration":   95 * time.Minute,
			},
			expectTitle:   "VinylScout - Sync Complete",
			expectMessage: "💿 Synced 120 products in 1h35m0s: 97 with offers, 20 cleared, 3 skipped",
			expectTags:    "vinylscout,sync,completed",
		},
		{
			name:  "sync aborted",
			event: notifications.EventSyncAborted,
			payload: notifications.Payload{
				"processed": 41,
				"vendors":   "coupang",
				"reason":    errors.New("rate limited"),
			},
			expectTitle:    "VinylScout - Sync Aborted",
			expectMessage:  "⛔ Sync aborted after 41 products: blocked by coupang\nrate limited",
			expectTags:     "vinylscout,sync,aborted",
			expectPriority: "high",
		},
		{
			name:  "sweep dry run",
			event: notifications.EventSweepCompleted,
			payload: notifications.Payload{
				"products":      2,
				"offers":        15,
				"failedDeletes": 1,
				"dryRun":        true,
			},
			expectTitle:   "VinylScout - Sweep Complete",
			expectMessage: "🧹 Would remove 2 products and 15 offers (1 failed deletes)",
			expectTags:    "vinylscout,cleanup,completed",
		},
		{
			name:  "error",
			event: notifications.EventError,
			payload: notifications.Payload{
				"context": "sync",
				"error":   "catalog locked",
			},
			expectTitle:    "VinylScout - Error",
			expectMessage:  "❌ Error with sync: catalog locked",
			expectTags:     "vinylscout,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "VinylScout - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "vinylscout,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresDisabledEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.SyncCompleted = false
	cfg.Notifications.Sweep = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventSyncCompleted,
		notifications.EventSweepCompleted,
		notifications.Event("unknown"),
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not allowed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
