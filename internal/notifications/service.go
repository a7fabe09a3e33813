package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"panelsmith/internal/config"
)

const userAgent = "Panelsmith/0.1.0"

// Event identifies a job lifecycle milestone worth pushing to the operator.
type Event string

// Events published by the workflow. EventJobStarted is accepted but never
// delivered; per-claim pushes proved too chatty once multiple workers drain
// the queue.
const (
	EventJobStarted   Event = "job_started"
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
)

// Payload carries the event fields used to format the outgoing message.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		onCompletion: cfg.Notifications.OnCompletion,
		onFailure:    cfg.Notifications.OnFailure,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	onCompletion bool
	onFailure    bool
}

// Publish formats and delivers the event. Suppressed or disabled events
// return nil without contacting ntfy.
func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	msg, ok := n.render(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) render(event Event, data Payload) (message, bool) {
	switch event {
	case EventJobCompleted:
		if !n.onCompletion {
			return message{}, false
		}
		body := fmt.Sprintf("✅ Comic ready: %s pages, %s panels (%s)",
			field(data, "pages"), field(data, "panels"), field(data, "format"))
		if jobRef := field(data, "job"); jobRef != "" {
			body = fmt.Sprintf("%s\nJob: %s", body, jobRef)
		}
		return message{
			title:    "Panelsmith - Comic Ready",
			body:     body,
			tags:     []string{"panelsmith", "job", "completed"},
			priority: "high",
		}, true
	case EventJobFailed:
		if !n.onFailure {
			return message{}, false
		}
		reason := field(data, "error")
		if reason == "" {
			reason = "unknown"
		}
		body := fmt.Sprintf("❌ Job failed: %s", reason)
		if jobRef := field(data, "job"); jobRef != "" {
			body = fmt.Sprintf("%s\nJob: %s", body, jobRef)
		}
		return message{
			title:    "Panelsmith - Job Failed",
			body:     body,
			tags:     []string{"panelsmith", "job", "failed"},
			priority: "high",
		}, true
	default:
		return message{}, false
	}
}

// field renders a payload value as trimmed text; missing keys yield "".
func field(data Payload, key string) string {
	value, ok := data[key]
	if !ok || value == nil {
		return ""
	}
	if err, ok := value.(error); ok {
		return strings.TrimSpace(err.Error())
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
