package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"biasmeter/internal/app"
	"biasmeter/internal/bias/handler"
	httpapi "biasmeter/internal/http"
	"biasmeter/internal/platform/config"
	"biasmeter/internal/platform/httpserver"
	"biasmeter/internal/platform/logger"
	"biasmeter/internal/platform/metrics"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "biasmeter: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	components, err := app.Build(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := components.Close(); err != nil {
			log.Error("failed to close components", "error", err)
		}
	}()

	deps := httpapi.Deps{
		Analysis: handler.New(components.Service, log),
		Logger:   log,
		Checks:   map[string]httpapi.HealthCheck{},
	}
	if cfg.Metrics.Enabled {
		deps.HTTPMetrics = metrics.NewHTTP(reg)
		deps.Gatherer = reg
		deps.MetricsPath = cfg.Metrics.Path
	}
	if components.Redis != nil {
		deps.Checks["redis"] = components.Redis.Health
	}

	srv := httpserver.New(cfg.Server.Addr, httpapi.NewRouter(deps), cfg.Server.ReadHeaderTimeout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting biasmeter", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
