package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Bus      BusConfig      `mapstructure:"bus" validate:"required"`
	Plugins  PluginsConfig  `mapstructure:"plugins"`
	Redirect RedirectConfig `mapstructure:"redirect" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"required,gt=0"`
}

// ShutdownTimeout is the time the hosted operation gets to return after a stop request.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// DatabaseConfig contains database settings. An empty URL selects the in-memory journal.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	AdminPasswordHash    string `mapstructure:"admin_password_hash" validate:"required"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lt=44640"`
}

// BusConfig contains event bus settings.
type BusConfig struct {
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`
}

// PluginsConfig points at the optional plugin file.
type PluginsConfig struct {
	File string `mapstructure:"file"`
}

// RedirectConfig is the target of the root redirect.
type RedirectConfig struct {
	URL       string `mapstructure:"url" validate:"required,url"`
	Permanent bool   `mapstructure:"permanent"`
}
