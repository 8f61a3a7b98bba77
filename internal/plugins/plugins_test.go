package plugins

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/eventhost/internal/events"
	"github.com/phrazzld/eventhost/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSubscriber records subscriptions
type mockSubscriber struct {
	mu          sync.Mutex
	patterns    []string
	handlers    []events.EventHandler
	SubscribeFn func(pattern string, handler events.EventHandler) (events.SubscriptionID, error)
}

func (m *mockSubscriber) Subscribe(pattern string, handler events.EventHandler) (events.SubscriptionID, error) {
	if m.SubscribeFn != nil {
		return m.SubscribeFn(pattern, handler)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, pattern)
	m.handlers = append(m.handlers, handler)
	return events.SubscriptionID(len(m.patterns)), nil
}

const validFile = `
plugins:
  - name: audit
    kind: log
    topics: ["*"]
    settings:
      level: warn
      include_payload: true
  - name: orders-hook
    kind: webhook
    topics: ["orders.*", "refunds.*"]
    settings:
      url: https://hooks.example.com/orders
      timeout: 2s
      headers:
        Authorization: Bearer token
  - name: muted
    kind: log
    topics: ["debug.*"]
    enabled: false
`

func TestParse(t *testing.T) {
	file, err := Parse([]byte(validFile))
	require.NoError(t, err)
	require.Len(t, file.Plugins, 3)

	assert.Equal(t, "audit", file.Plugins[0].Name)
	assert.True(t, file.Plugins[0].IsEnabled())
	assert.Equal(t, []string{"orders.*", "refunds.*"}, file.Plugins[1].Topics)
	assert.False(t, file.Plugins[2].IsEnabled())

	var hook WebhookSettings
	require.NoError(t, file.Plugins[1].Settings.Decode(&hook))
	assert.Equal(t, 2*time.Second, hook.Timeout)
	assert.Equal(t, "Bearer token", hook.Headers["Authorization"])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		target  error
	}{
		{
			name:    "malformed yaml",
			content: "plugins: [",
		},
		{
			name: "missing name",
			content: `
plugins:
  - kind: log
    topics: ["*"]
`,
		},
		{
			name: "missing topics",
			content: `
plugins:
  - name: audit
    kind: log
`,
		},
		{
			name: "unknown kind",
			content: `
plugins:
  - name: mailer
    kind: smtp
    topics: ["*"]
`,
			target: ErrUnknownKind,
		},
		{
			name: "webhook without url",
			content: `
plugins:
  - name: hook
    kind: webhook
    topics: ["*"]
`,
			target: ErrInvalidSettings,
		},
		{
			name: "bad log level",
			content: `
plugins:
  - name: audit
    kind: log
    topics: ["*"]
    settings:
      level: loud
`,
			target: ErrInvalidSettings,
		},
		{
			name: "bad duration",
			content: `
plugins:
  - name: hook
    kind: webhook
    topics: ["*"]
    settings:
      url: https://example.com
      timeout: soon
`,
			target: ErrInvalidSettings,
		},
		{
			name: "bad pattern",
			content: `
plugins:
  - name: audit
    kind: log
    topics: ["orders.["]
`,
			target: events.ErrInvalidPattern,
		},
		{
			name: "duplicate names",
			content: `
plugins:
  - name: audit
    kind: log
    topics: ["*"]
  - name: audit
    kind: log
    topics: ["orders.*"]
`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			file, err := Parse([]byte(tc.content))
			require.Error(t, err)
			assert.Nil(t, file)
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plugins.yaml")
		require.NoError(t, os.WriteFile(path, []byte(validFile), 0o600))

		file, err := Load(path)
		require.NoError(t, err)
		assert.Len(t, file.Plugins, 3)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read plugin file")
	})
}

func TestRegister(t *testing.T) {
	file, err := Parse([]byte(validFile))
	require.NoError(t, err)

	sub := &mockSubscriber{}
	count, err := Register(sub, file, Deps{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	require.NoError(t, err)
	assert.Equal(t, 3, count, "disabled plugins are skipped")
	assert.Equal(t, []string{"*", "orders.*", "refunds.*"}, sub.patterns)
	assert.IsType(t, &logPlugin{}, sub.handlers[0])
	assert.IsType(t, &webhookPlugin{}, sub.handlers[1])
	assert.Same(t, sub.handlers[1], sub.handlers[2], "one handler per plugin")
}

func TestRegister_NilFile(t *testing.T) {
	count, err := Register(&mockSubscriber{}, nil, Deps{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRegister_SubscribeError(t *testing.T) {
	file, err := Parse([]byte(validFile))
	require.NoError(t, err)

	sub := &mockSubscriber{
		SubscribeFn: func(string, events.EventHandler) (events.SubscriptionID, error) {
			return 0, events.ErrInvalidPattern
		},
	}
	_, err = Register(sub, file, Deps{})
	assert.ErrorIs(t, err, events.ErrInvalidPattern)
	assert.Contains(t, err.Error(), `plugin "audit"`)
}

func TestLogPlugin(t *testing.T) {
	l, buf := logger.NewTestLogger()
	plugin := newLogPlugin("audit", LogSettings{Level: "warn", IncludePayload: true}, l)

	event, err := events.NewEvent("orders.created", map[string]int{"qty": 2})
	require.NoError(t, err)
	require.NoError(t, plugin.HandleEvent(context.Background(), event))

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, "event received", entries[0]["msg"])
	assert.Equal(t, "audit", entries[0]["plugin"])
	assert.Equal(t, "orders.created", entries[0]["topic"])
	assert.Equal(t, `{"qty":2}`, entries[0]["payload"])
}

func TestWebhookPlugin(t *testing.T) {
	event, err := events.NewEvent("orders.created", map[string]string{"id": "o-1"})
	require.NoError(t, err)

	t.Run("posts event json", func(t *testing.T) {
		var (
			got     events.Event
			headers http.Header
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			headers = r.Header.Clone()
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		plugin := newWebhookPlugin("hook", WebhookSettings{
			URL:     srv.URL,
			Headers: map[string]string{"X-Token": "abc"},
		}, srv.Client())

		require.NoError(t, plugin.HandleEvent(context.Background(), event))
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, "orders.created", got.Topic)
		assert.JSONEq(t, `{"id":"o-1"}`, string(got.Payload))
		assert.Equal(t, "application/json", headers.Get("Content-Type"))
		assert.Equal(t, "orders.created", headers.Get("X-Event-Topic"))
		assert.Equal(t, event.ID.String(), headers.Get("X-Event-ID"))
		assert.Equal(t, "abc", headers.Get("X-Token"))
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		plugin := newWebhookPlugin("hook", WebhookSettings{URL: srv.URL}, srv.Client())
		err := plugin.HandleEvent(context.Background(), event)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 502")
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		plugin := newWebhookPlugin("hook", WebhookSettings{URL: srv.URL, Timeout: 20 * time.Millisecond}, srv.Client())
		err := plugin.HandleEvent(context.Background(), event)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("default timeout", func(t *testing.T) {
		plugin := newWebhookPlugin("hook", WebhookSettings{URL: "https://example.com"}, http.DefaultClient)
		assert.Equal(t, DefaultWebhookTimeout, plugin.settings.Timeout)
	})
}

func TestRegisteredPluginsReceiveBusEvents(t *testing.T) {
	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.Header.Get("X-Event-Topic")
	}))
	defer srv.Close()

	file, err := Parse([]byte(`
plugins:
  - name: hook
    kind: webhook
    topics: ["orders.*"]
    settings:
      url: ` + srv.URL + `
`))
	require.NoError(t, err)

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.NewBus(events.NewMemoryJournal(), events.DefaultBusConfig(), discard)
	_, err = Register(bus, file, Deps{Logger: discard, HTTPClient: srv.Client()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	event, err := events.NewEvent("orders.shipped", nil)
	require.NoError(t, err)
	require.NoError(t, bus.EmitEvent(context.Background(), event))

	select {
	case topic := <-received:
		assert.Equal(t, "orders.shipped", topic)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not called")
	}
}
