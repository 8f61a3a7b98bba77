package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. EVENTHOST_SERVER_PORT.
const EnvPrefix = "EVENTHOST"

// DefaultRedirectURL is used when redirect.url is not configured.
const DefaultRedirectURL = "https://github.com/phrazzld/eventhost"

// keys lists every configuration key so that each can be bound to its environment variable.
var keys = []string{
	"server.port",
	"server.log_level",
	"server.shutdown_timeout_seconds",
	"database.url",
	"auth.jwt_secret",
	"auth.admin_password_hash",
	"auth.token_lifetime_minutes",
	"bus.queue_size",
	"plugins.file",
	"redirect.url",
	"redirect.permanent",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// With an empty path, config.yaml in the working directory is read if present.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 30)
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("bus.queue_size", 256)
	v.SetDefault("redirect.url", DefaultRedirectURL)
	v.SetDefault("redirect.permanent", false)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// EnvVar returns the environment variable name bound to a configuration key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
