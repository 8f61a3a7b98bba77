package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/eventhost/internal/events"
	"github.com/phrazzld/eventhost/internal/platform/logger"
)

// DefaultWebhookTimeout bounds a webhook request when no timeout is configured.
const DefaultWebhookTimeout = 10 * time.Second

// LogSettings configure the log plugin.
type LogSettings struct {
	Level          string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	IncludePayload bool   `yaml:"include_payload"`
}

// WebhookSettings configure the webhook plugin.
type WebhookSettings struct {
	URL     string            `yaml:"url" validate:"required,url"`
	Timeout time.Duration     `yaml:"timeout" validate:"gte=0"`
	Headers map[string]string `yaml:"headers"`
}

// logPlugin writes one structured log line per event.
type logPlugin struct {
	name     string
	level    slog.Level
	settings LogSettings
	logger   *slog.Logger
}

func newLogPlugin(name string, settings LogSettings, l *slog.Logger) *logPlugin {
	level, _ := logger.ParseLevel(settings.Level)
	if l != nil {
		l = l.With("component", "plugin", "plugin", name)
	}
	return &logPlugin{
		name:     name,
		level:    level,
		settings: settings,
		logger:   l,
	}
}

// HandleEvent implements events.EventHandler.
func (p *logPlugin) HandleEvent(ctx context.Context, event *events.Event) error {
	attrs := []any{
		"event_id", event.ID.String(),
		"topic", event.Topic,
		"created_at", event.CreatedAt,
	}
	if p.settings.IncludePayload {
		attrs = append(attrs, "payload", string(event.Payload))
	}
	p.logger.Log(ctx, p.level, "event received", attrs...)
	return nil
}

// webhookPlugin posts each event as JSON to a URL.
type webhookPlugin struct {
	name     string
	settings WebhookSettings
	client   *http.Client
}

func newWebhookPlugin(name string, settings WebhookSettings, client *http.Client) *webhookPlugin {
	if settings.Timeout == 0 {
		settings.Timeout = DefaultWebhookTimeout
	}
	return &webhookPlugin{
		name:     name,
		settings: settings,
		client:   client,
	}
}

// HandleEvent implements events.EventHandler. A non-2xx response is an error.
func (p *webhookPlugin) HandleEvent(ctx context.Context, event *events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.settings.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.settings.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-ID", event.ID.String())
	req.Header.Set("X-Event-Topic", event.Topic)
	for k, v := range p.settings.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", p.name, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s: unexpected status %d", p.name, resp.StatusCode)
	}
	return nil
}
