// Package config loads the service configuration from environment variables.
// Every setting has a default except where noted; Load validates the result
// and reports all problems at once.
package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Session  SessionConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for API requests.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"3m"`
}

// DatabaseConfig holds PostgreSQL settings. An empty URL runs the service
// on in-memory stores.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL" envAlt:"DB_URL"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate creates the catalog tables on startup.
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// ImportConfig holds preview and commit settings.
type ImportConfig struct {
	MaxFileSize   int64         `env:"IMPORT_MAX_FILE_SIZE" default:"20971520"`
	MaxConcurrent int           `env:"IMPORT_MAX_CONCURRENT" default:"5"`
	MaxWaitTime   time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Workers bounds parallel row validation; 0 uses GOMAXPROCS.
	Workers int `env:"IMPORT_WORKERS" default:"0"`

	CommitTimeout time.Duration `env:"IMPORT_COMMIT_TIMEOUT" default:"2m"`

	// Locale is the default number format: nl or en.
	Locale string `env:"IMPORT_LOCALE" default:"nl"`

	// CommitPolicy is atomic or partial.
	CommitPolicy string `env:"IMPORT_COMMIT_POLICY" default:"atomic"`

	MaxHeaderSearchRows int `env:"IMPORT_MAX_HEADER_SEARCH_ROWS" default:"20"`
}

// SessionConfig selects where preview sessions live.
type SessionConfig struct {
	// Backend is memory or redis.
	Backend  string        `env:"SESSION_BACKEND" default:"memory"`
	RedisURL string        `env:"REDIS_URL"`
	TTL      time.Duration `env:"SESSION_TTL" default:"30m"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// forwarding headers are honoured.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys, when set, are required in the X-API-Key header of /api routes.
	APIKeys []string `env:"API_KEYS"`

	// RateLimit is the per-client request budget of /api, formatted as
	// "<limit>-<S|M|H|D>". "off" disables rate limiting.
	RateLimit string `env:"RATE_LIMIT" default:"300-M"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`  // debug, info, warn, error
	Format string `env:"LOG_FORMAT" default:"text"` // text or json
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RateLimited reports whether /api is rate limited.
func (c *Config) RateLimited() bool {
	return !strings.EqualFold(c.Security.RateLimit, "off")
}

// UsesDatabase reports whether a PostgreSQL URL is configured.
func (c *Config) UsesDatabase() bool {
	return c.Database.URL != ""
}
