package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"panelsmith/internal/config"
	"panelsmith/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventJobCompleted, notifications.Payload{"pages": 3}); err != nil {
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
			name:  "job completed",
			event: notifications.EventJobCompleted,
			payload: notifications.Payload{
				"pages":  3,
				"panels": 11,
				"format": "pdf",
				"job":    "a1b2c3d4",
			},
			expectTitle:    "Panelsmith - Comic Ready",
			expectMessage:  "✅ Comic ready: 3 pages, 11 panels (pdf)\nJob: a1b2c3d4",
			expectTags:     "panelsmith,job,completed",
			expectPriority: "high",
		},
		{
			name:  "job completed without reference",
			event: notifications.EventJobCompleted,
			payload: notifications.Payload{
				"pages":  1,
				"panels": 4,
				"format": "cbz",
			},
			expectTitle:    "Panelsmith - Comic Ready",
			expectMessage:  "✅ Comic ready: 1 pages, 4 panels (cbz)",
			expectTags:     "panelsmith,job,completed",
			expectPriority: "high",
		},
		{
			name:  "job failed",
			event: notifications.EventJobFailed,
			payload: notifications.Payload{
				"error": errors.New("image synthesis: http 500: upstream error"),
				"job":   "a1b2c3d4",
			},
			expectTitle:    "Panelsmith - Job Failed",
			expectMessage:  "❌ Job failed: image synthesis: http 500: upstream error\nJob: a1b2c3d4",
			expectTags:     "panelsmith,job,failed",
			expectPriority: "high",
		},
		{
			name:           "job failed without detail",
			event:          notifications.EventJobFailed,
			payload:        notifications.Payload{},
			expectTitle:    "Panelsmith - Job Failed",
			expectMessage:  "❌ Job failed: unknown",
			expectTags:     "panelsmith,job,failed",
			expectPriority: "high",
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
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
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

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	suppressed := []notifications.Event{
		notifications.EventJobStarted,
		notifications.Event("unknown_event"),
	}

	for _, event := range suppressed {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceHonorsEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.OnCompletion = false
	cfg.Notifications.OnFailure = false

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventJobCompleted, notifications.Payload{"pages": 2}); err != nil {
		t.Fatalf("disabled completion push should be dropped silently, got %v", err)
	}
	if err := svc.Publish(context.Background(), notifications.EventJobFailed, notifications.Payload{"error": "boom"}); err != nil {
		t.Fatalf("disabled failure push should be dropped silently, got %v", err)
	}
}
