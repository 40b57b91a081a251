package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/ignition/internal/config"
	"github.com/phrazzld/ignition/internal/startup"
)

// startupController is the slice of the orchestrator the HTTP layer needs,
// kept narrow so handlers can be tested against a stub.
type startupController interface {
	Snapshot() startup.Snapshot
	Start(ctx context.Context) error
}

// application holds the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	startup startupController
}

// newApplication wires the startup plan into an orchestrator and returns the
// application. Nothing is initialized yet; initialization happens inside the
// orchestrator's run so the server can report progress while it sequences.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	plan := newStartupPlan(cfg, logger)

	opts := startup.Options{
		CriticalAttempts:  cfg.Startup.CriticalAttempts,
		BestEffortTimeout: time.Duration(cfg.Startup.BestEffortTimeoutSeconds) * time.Second,
		SettleDelay:       time.Duration(cfg.Startup.SettleDelayMillis) * time.Millisecond,
		RetryBackoff:      time.Duration(cfg.Startup.RetryBackoffMillis) * time.Millisecond,
		Tracer:            startup.NewLogTracer(logger.With("component", "startup_tracer")),
		Logger:            logger,
		Observer: func(snap startup.Snapshot) {
			logger.Debug("startup progress",
				"state", string(snap.State),
				"completed", snap.Completed,
				"total", snap.Total)
		},
	}

	base := startup.Overrides{overrideConfig: cfg}
	orchestrator, err := startup.New(plan, base, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build startup orchestrator: %w", err)
	}

	return &application{
		config:  cfg,
		logger:  logger,
		startup: orchestrator,
	}, nil
}

// Run starts the HTTP server immediately and kicks off the startup run in
// the background. While the run is loading or errored, the router serves the
// startup snapshot; once ready, the API surface opens up.
func (app *application) Run(ctx context.Context) error {
	go func() {
		if err := app.startup.Start(ctx); err != nil {
			app.logger.Error("startup run failed; server stays degraded until retried",
				"error", err)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("HTTP server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		app.logger.Info("server shutdown completed")
		return nil
	}
}
