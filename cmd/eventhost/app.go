package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/eventhost/internal/config"
	"github.com/phrazzld/eventhost/internal/events"
	"github.com/phrazzld/eventhost/internal/hosted"
	"github.com/phrazzld/eventhost/internal/platform/metrics"
	"github.com/phrazzld/eventhost/internal/platform/postgres"
	"github.com/phrazzld/eventhost/internal/plugins"
	"github.com/phrazzld/eventhost/internal/redact"
	"github.com/phrazzld/eventhost/internal/service/auth"
)

// busRunnerName identifies the hosted event bus in logs, status and metrics.
const busRunnerName = "event_bus"

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	journal events.Journal
	bus     *events.Bus
	runner  *hosted.Runner

	jwtService    auth.JWTService
	authenticator *auth.AdminAuthenticator
	metrics       *metrics.Metrics
}

// newApplication wires every component. db may be nil, in which case events
// are journaled in memory.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.authenticator = auth.NewAdminAuthenticator(cfg.Auth.AdminPasswordHash, auth.NewBcryptVerifier())
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	if db != nil {
		app.journal = postgres.NewPostgresJournal(db)
	} else {
		app.journal = events.NewMemoryJournal()
	}

	app.bus = events.NewBus(app.journal, events.BusConfig{QueueSize: cfg.Bus.QueueSize}, logger)

	if cfg.Plugins.File != "" {
		file, err := plugins.Load(cfg.Plugins.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load plugins: %w", err)
		}
		count, err := plugins.Register(app.bus, file, plugins.Deps{
			Logger:     logger,
			HTTPClient: &http.Client{},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to register plugins: %w", err)
		}
		logger.Info("plugins registered", "file", cfg.Plugins.File, "subscriptions", count)
	}

	app.runner, err = hosted.NewRunner(app.bus, logger,
		hosted.WithName(busRunnerName),
		hosted.WithFaultHandler(func(err error) {
			logger.Error("hosted event bus failed",
				"component", "hosted_runner",
				"runner", busRunnerName,
				"error", redact.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create hosted runner: %w", err)
	}

	app.metrics, err = metrics.New(app.bus, app.runner)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
