package plugins

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/eventhost/internal/events"
	"gopkg.in/yaml.v3"
)

// Plugin kinds.
const (
	KindLog     = "log"
	KindWebhook = "webhook"
)

var (
	// ErrUnknownKind is returned for a plugin kind with no builder.
	ErrUnknownKind = errors.New("unknown plugin kind")

	// ErrInvalidSettings is returned when kind-specific settings fail to decode or validate.
	ErrInvalidSettings = errors.New("invalid plugin settings")
)

// File is the parsed plugin file.
type File struct {
	Plugins []Plugin `yaml:"plugins" validate:"dive"`
}

// Plugin is one configured plugin.
type Plugin struct {
	Name    string   `yaml:"name" validate:"required"`
	Kind    string   `yaml:"kind" validate:"required"`
	Topics  []string `yaml:"topics" validate:"required,min=1,dive,required"`
	Enabled *bool    `yaml:"enabled"`

	// Settings are decoded by the plugin kind.
	Settings yaml.Node `yaml:"settings" validate:"-"`
}

// IsEnabled reports whether the plugin is enabled. Plugins are enabled unless
// explicitly disabled.
func (p Plugin) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Subscriber is the part of the event bus plugins register with.
type Subscriber interface {
	Subscribe(pattern string, handler events.EventHandler) (events.SubscriptionID, error)
}

// Deps are the shared collaborators handed to plugin builders.
type Deps struct {
	Logger     *slog.Logger
	HTTPClient *http.Client
}

var validate = validator.New()

// Load reads and validates a plugin file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates plugin file content. Settings of every plugin,
// enabled or not, are checked so a bad file fails at startup.
func Parse(data []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse plugin file: %w", err)
	}

	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("plugin file validation failed: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Plugins))
	for _, p := range file.Plugins {
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("duplicate plugin name %q", p.Name)
		}
		seen[p.Name] = struct{}{}

		for _, topic := range p.Topics {
			if err := events.ValidatePattern(topic); err != nil {
				return nil, fmt.Errorf("plugin %q: %w", p.Name, err)
			}
		}

		if _, err := build(p, Deps{}); err != nil {
			return nil, fmt.Errorf("plugin %q: %w", p.Name, err)
		}
	}

	return &file, nil
}

// Register builds every enabled plugin and subscribes it to each of its topic
// patterns. It returns the number of subscriptions made.
func Register(bus Subscriber, file *File, deps Deps) (int, error) {
	if file == nil {
		return 0, nil
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = http.DefaultClient
	}

	count := 0
	for _, p := range file.Plugins {
		if !p.IsEnabled() {
			deps.Logger.Info("plugin disabled", "plugin", p.Name, "kind", p.Kind)
			continue
		}

		handler, err := build(p, deps)
		if err != nil {
			return count, fmt.Errorf("plugin %q: %w", p.Name, err)
		}

		for _, topic := range p.Topics {
			if _, err := bus.Subscribe(topic, handler); err != nil {
				return count, fmt.Errorf("plugin %q: subscribe %q: %w", p.Name, topic, err)
			}
			count++
		}

		deps.Logger.Info("plugin registered",
			"plugin", p.Name,
			"kind", p.Kind,
			"topics", p.Topics)
	}

	return count, nil
}

func build(p Plugin, deps Deps) (events.EventHandler, error) {
	switch p.Kind {
	case KindLog:
		var s LogSettings
		if err := decodeSettings(p.Settings, &s); err != nil {
			return nil, err
		}
		return newLogPlugin(p.Name, s, deps.Logger), nil
	case KindWebhook:
		var s WebhookSettings
		if err := decodeSettings(p.Settings, &s); err != nil {
			return nil, err
		}
		return newWebhookPlugin(p.Name, s, deps.HTTPClient), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, p.Kind)
	}
}

func decodeSettings(node yaml.Node, out interface{}) error {
	if !node.IsZero() {
		if err := node.Decode(out); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return nil
}
