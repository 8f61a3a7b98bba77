package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/eventhost/internal/api"
	apiMiddleware "github.com/phrazzld/eventhost/internal/api/middleware"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(apiMiddleware.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(app.metrics.Middleware)

	authHandler := api.NewAuthHandler(app.authenticator, app.jwtService)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	eventHandler := api.NewEventHandler(app.bus, app.bus, app.journal)
	statusHandler := api.NewStatusHandler(app.runner, app.bus)

	r.Method(http.MethodGet, "/", api.NewRedirectHandler(app.config.Redirect))
	r.Get("/health", statusHandler.Health)
	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/token", authHandler.IssueToken)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/status", statusHandler.Status)
			r.Post("/events", eventHandler.Publish)
			r.Get("/events/stats", eventHandler.Stats)
			r.Get("/events/{id}", eventHandler.Get)
		})
	})

	return r
}
