package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/ulule/limiter/v3"

	"github.com/JonMunkholm/catalogimport/internal/imports"
)

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads configuration through lookup, applies defaults and
// validates the result.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// loadStruct populates struct fields from their env tags, recursing into
// nested structs. All field errors are collected.
func loadStruct(v reflect.Value, lookup func(string) (string, bool)) error {
	var errs []error
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal, lookup); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value := get(lookup, envName)
		if value == "" {
			if alt := field.Tag.Get("envAlt"); alt != "" {
				value = get(lookup, alt)
			}
		}
		if value == "" {
			if field.Tag.Get("required") == "true" {
				errs = append(errs, fmt.Errorf("required environment variable %s is not set", envName))
				continue
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s=%q: %w", envName, value, err))
		}
	}
	return errors.Join(errs...)
}

func get(lookup func(string) (string, bool), name string) string {
	v, _ := lookup(name)
	return strings.TrimSpace(v)
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))

	case field.Kind() == reflect.String:
		field.SetString(value)

	case field.Kind() == reflect.Int, field.Kind() == reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		var items []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Database
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			add("DATABASE_URL is not a valid URL")
		}
		if c.Database.MaxConns <= 0 {
			add("DB_MAX_CONNS must be positive")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			add("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
		}
	}

	// Import
	if c.Import.MaxFileSize <= 0 {
		add("IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.MaxConcurrent <= 0 {
		add("IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWaitTime <= 0 {
		add("IMPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Import.Workers < 0 {
		add("IMPORT_WORKERS must be non-negative")
	}
	if c.Import.CommitTimeout <= 0 {
		add("IMPORT_COMMIT_TIMEOUT must be positive")
	}
	if _, ok := imports.LocaleByName(c.Import.Locale); !ok {
		add("IMPORT_LOCALE (%q) must be one of: nl, en", c.Import.Locale)
	}
	if _, err := imports.ParseCommitPolicy(c.Import.CommitPolicy); err != nil {
		add("IMPORT_COMMIT_POLICY (%q) must be one of: atomic, partial", c.Import.CommitPolicy)
	}
	if c.Import.MaxHeaderSearchRows <= 0 {
		add("IMPORT_MAX_HEADER_SEARCH_ROWS must be positive")
	}

	// Session
	switch strings.ToLower(c.Session.Backend) {
	case "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			add("REDIS_URL is required when SESSION_BACKEND is redis")
		}
	default:
		add("SESSION_BACKEND (%q) must be one of: memory, redis", c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		add("SESSION_TTL must be positive")
	}

	// Security
	for _, cidr := range c.Security.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			add("TRUSTED_PROXIES entry %q is not a CIDR", cidr)
		}
	}
	if c.RateLimited() {
		if _, err := limiter.NewRateFromFormatted(c.Security.RateLimit); err != nil {
			add("RATE_LIMIT (%q) must look like 300-M or be off", c.Security.RateLimit)
		}
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		add("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Locale returns the configured default locale.
func (c *Config) Locale() imports.Locale {
	loc, _ := imports.LocaleByName(c.Import.Locale)
	return loc
}

// Policy returns the configured commit policy.
func (c *Config) Policy() imports.CommitPolicy {
	p, _ := imports.ParseCommitPolicy(c.Import.CommitPolicy)
	return p
}

// String returns a representation safe for logging. Credentials in
// connection URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Config{Server: {Addr: %q}, ", c.Server.Addr())
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d}, ", maskURL(c.Database.URL), c.Database.MaxConns)
	fmt.Fprintf(&b, "Import: {MaxFileSize: %d, MaxConcurrent: %d, Locale: %q, CommitPolicy: %q}, ",
		c.Import.MaxFileSize, c.Import.MaxConcurrent, c.Import.Locale, c.Import.CommitPolicy)
	fmt.Fprintf(&b, "Session: {Backend: %q, RedisURL: %s}, ", c.Session.Backend, maskURL(c.Session.RedisURL))
	fmt.Fprintf(&b, "Security: {TrustedProxies: %d, APIKeys: %d, RateLimit: %q}, ",
		len(c.Security.TrustedProxies), len(c.Security.APIKeys), c.Security.RateLimit)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}}", c.Logging.Level, c.Logging.Format)
	return b.String()
}

func maskURL(raw string) string {
	if raw == "" {
		return `""`
	}
	return "[MASKED]"
}
