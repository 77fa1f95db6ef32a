// Package application assembles the import service from configuration:
// the database pool, the session backend, the limiter, metrics and the
// registry of catalog kinds. The server and the CLI share it.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/config"
	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/JonMunkholm/catalogimport/internal/logging"
	"github.com/JonMunkholm/catalogimport/internal/metrics"
	"github.com/JonMunkholm/catalogimport/internal/store"
	"github.com/JonMunkholm/catalogimport/internal/web/middleware"
)

// App holds the wired backends. Pool and Redis are nil when the
// configuration selects in-memory stores and sessions.
type App struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Limiter  *imports.Limiter
	Metrics  *metrics.Collector
	Registry *imports.Registry

	// RateLimiter is nil when RATE_LIMIT is off.
	RateLimiter *limiter.Limiter
}

// New connects the configured backends and registers the catalog kinds.
// Close releases what New opened, also when New fails halfway.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		Config:   cfg,
		Limiter:  imports.NewLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		Registry: imports.NewRegistry(),
	}
	app.Metrics = metrics.New(app.Limiter)

	if cfg.UsesDatabase() {
		pool, err := store.Connect(ctx, store.PoolConfig{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		app.Pool = pool
		logging.FromContext(ctx).Info("connected to database", "name", databaseName(cfg.Database.URL))

		if cfg.Database.Migrate {
			if err := store.Migrate(ctx, pool, catalog.Schema()...); err != nil {
				app.Close()
				return nil, err
			}
		}
	} else {
		logging.FromContext(ctx).Warn("DATABASE_URL not set, using in-memory stores")
	}

	if strings.EqualFold(cfg.Session.Backend, "redis") {
		opts, err := redis.ParseURL(cfg.Session.RedisURL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		app.Redis = redis.NewClient(opts)
		if err := app.Redis.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
	}

	if cfg.RateLimited() {
		var client redis.UniversalClient
		if app.Redis != nil {
			client = app.Redis
		}
		rl, err := middleware.NewRateLimiter(cfg.Security.RateLimit, client)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.RateLimiter = rl
	}

	deps := catalog.Deps{
		Pool:       app.Pool,
		SessionTTL: cfg.Session.TTL,
		Options: imports.Options{
			Locale:        cfg.Locale(),
			Workers:       cfg.Import.Workers,
			Policy:        cfg.Policy(),
			CommitTimeout: cfg.Import.CommitTimeout,
			Observer:      app.Metrics,
		},
	}
	// A nil *redis.Client in the interface would not compare equal to nil.
	if app.Redis != nil {
		deps.Redis = app.Redis
	}
	catalog.Register(app.Registry, deps)

	logging.FromContext(ctx).Info("import kinds registered", "count", app.Registry.Len(), "sessions", cfg.Session.Backend)
	return app, nil
}

// Health pings the configured backends.
func (a *App) Health(ctx context.Context) error {
	var errs []error
	if a.Pool != nil {
		if err := a.Pool.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the backends.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Warn("close redis", "error", err)
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}

func databaseName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
