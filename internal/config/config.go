// Package config provides centralized configuration management for the
// migration service. Values come from environment variables with defaults
// and are validated on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Migration MigrationConfig
	Cache     CacheConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including the wait for
	// in-flight migration workers (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required).
	// Supports both DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"4"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies the embedded schema on startup (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// MigrationConfig holds background import processing settings.
type MigrationConfig struct {
	// UploadDir is where uploaded import files live (default: uploads/migrations)
	UploadDir string `env:"MIGRATION_UPLOAD_DIR" default:"uploads/migrations"`

	// PollInterval is how often the processor scans for running jobs (default: 2s)
	PollInterval time.Duration `env:"MIGRATION_POLL_INTERVAL" default:"2s"`

	// MaxWorkers caps concurrently executing jobs (default: 8)
	MaxWorkers int `env:"MIGRATION_MAX_WORKERS" default:"8"`

	// CheckpointEvery is the number of rows between progress checkpoints (default: 10)
	CheckpointEvery int `env:"MIGRATION_CHECKPOINT_EVERY" default:"10"`

	// SimulationStep is the pause between steps of a file-less job (default: 1s)
	SimulationStep time.Duration `env:"MIGRATION_SIMULATION_STEP" default:"1s"`

	// StopTimeout bounds how long Stop waits for the scan loop (default: 5s)
	StopTimeout time.Duration `env:"MIGRATION_STOP_TIMEOUT" default:"5s"`

	// SpreadsheetEnabled toggles the xlsx reader (default: true)
	SpreadsheetEnabled bool `env:"MIGRATION_SPREADSHEET_ENABLED" default:"true"`

	// MaxFileSize is the maximum accepted upload in bytes (default: 100MB)
	MaxFileSize int64 `env:"MIGRATION_MAX_FILE_SIZE" default:"104857600"`
}

// CacheConfig holds the latest-log side cache settings.
// An empty RedisAddr disables the cache.
type CacheConfig struct {
	RedisAddr     string `env:"REDIS_ADDR" envAlt:"REDIS_ADDRESS"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" default:"0"`

	// LogTTL is how long the latest log entry stays cached (default: 1h)
	LogTTL time.Duration `env:"CACHE_LOG_TTL" default:"1h"`

	// Namespace prefixes every cache key (default: migration)
	Namespace string `env:"CACHE_NAMESPACE" default:"migration"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key authentication on /api routes
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// CacheEnabled reports whether a Redis address is configured.
func (c *CacheConfig) CacheEnabled() bool {
	return c.RedisAddr != ""
}
