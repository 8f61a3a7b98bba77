package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/phrazzld/eventhost/internal/hosted"
	"github.com/phrazzld/eventhost/internal/redact"
	"golang.org/x/sync/errgroup"
)

// errOperationExited is reported when the hosted operation returns without a
// fault while the server is still meant to be running.
var errOperationExited = errors.New("hosted operation exited unexpectedly")

// Run listens on the configured port and serves until ctx is cancelled or the
// hosted operation stops on its own.
func (app *application) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		app.cleanup()
		return fmt.Errorf("failed to listen on port %d: %w", app.config.Server.Port, err)
	}
	return app.serve(ctx, listener)
}

// serve starts the hosted runner, then serves HTTP on listener. Shutdown order
// is HTTP server first, then the runner with the configured shutdown timeout,
// then the database.
func (app *application) serve(ctx context.Context, listener net.Listener) error {
	if err := app.runner.Start(); err != nil {
		_ = listener.Close()
		app.cleanup()
		return fmt.Errorf("failed to start hosted runner: %w", err)
	}

	server := &http.Server{
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("Starting server", "addr", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var cause error
		select {
		case <-gctx.Done():
			app.logger.Info("Shutting down server...")
		case <-app.runner.Done():
			cause = app.runner.Err()
			if cause == nil {
				cause = errOperationExited
			}
			app.logger.Error("hosted operation stopped on its own, shutting down",
				"error", redact.Error(cause))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout())
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("Server shutdown failed", "error", err)
		}
		return cause
	})

	err := g.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout())
	defer cancel()
	if stopErr := app.runner.Stop(stopCtx); stopErr != nil {
		if errors.Is(stopErr, hosted.ErrShutdownTimeout) {
			app.logger.Warn("hosted operation abandoned after shutdown timeout",
				"timeout", app.config.Server.ShutdownTimeout().String())
		} else if err == nil {
			err = stopErr
		}
	}

	app.cleanup()

	if err != nil {
		return err
	}
	app.logger.Info("Server shutdown completed")
	return nil
}
