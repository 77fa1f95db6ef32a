package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/catalogimport/internal/application"
	"github.com/JonMunkholm/catalogimport/internal/config"
	"github.com/JonMunkholm/catalogimport/internal/logging"
	"github.com/JonMunkholm/catalogimport/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	app, err := application.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	for _, k := range app.Registry.Kinds() {
		slog.Debug("import kind", "kind", k.Kind, "group", k.Group, "target", k.Target)
	}

	server := web.NewServer(app.Registry, app.Limiter, web.Options{
		Addr:                cfg.Server.Addr(),
		MaxFileSize:         cfg.Import.MaxFileSize,
		MaxHeaderSearchRows: cfg.Import.MaxHeaderSearchRows,
		ReadTimeout:         cfg.Server.ReadTimeout,
		WriteTimeout:        cfg.Server.WriteTimeout,
		IdleTimeout:         cfg.Server.IdleTimeout,
		RequestTimeout:      cfg.Server.RequestTimeout,
		TrustedProxies:      cfg.Security.TrustedProxies,
		APIKeys:             cfg.Security.APIKeys,
		RateLimiter:         app.RateLimiter,
		Metrics:             app.Metrics.Handler(),
		Health:              app.Health,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := app.Limiter.Status(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		app.Close()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
