package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Migration.UploadDir != "uploads/migrations" {
		t.Errorf("Migration.UploadDir = %q, want %q", cfg.Migration.UploadDir, "uploads/migrations")
	}
	if cfg.Migration.PollInterval != 2*time.Second {
		t.Errorf("Migration.PollInterval = %v, want 2s", cfg.Migration.PollInterval)
	}
	if cfg.Migration.CheckpointEvery != 10 {
		t.Errorf("Migration.CheckpointEvery = %d, want 10", cfg.Migration.CheckpointEvery)
	}
	if cfg.Migration.MaxWorkers != 8 {
		t.Errorf("Migration.MaxWorkers = %d, want 8", cfg.Migration.MaxWorkers)
	}
	if !cfg.Migration.SpreadsheetEnabled {
		t.Error("Migration.SpreadsheetEnabled = false, want true")
	}
	if cfg.Cache.LogTTL != time.Hour {
		t.Errorf("Cache.LogTTL = %v, want 1h", cfg.Cache.LogTTL)
	}
	if cfg.Cache.Namespace != "migration" {
		t.Errorf("Cache.Namespace = %q, want %q", cfg.Cache.Namespace, "migration")
	}
	if cfg.Cache.CacheEnabled() {
		t.Error("cache should be disabled without REDIS_ADDR")
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MIGRATION_POLL_INTERVAL", "500ms")
	t.Setenv("MIGRATION_MAX_WORKERS", "2")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Migration.PollInterval != 500*time.Millisecond {
		t.Errorf("Migration.PollInterval = %v, want 500ms", cfg.Migration.PollInterval)
	}
	if cfg.Migration.MaxWorkers != 2 {
		t.Errorf("Migration.MaxWorkers = %d, want 2", cfg.Migration.MaxWorkers)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "postgres://alt/test")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.URL != "postgres://alt/test" {
		t.Errorf("Database.URL = %q, want %q", cfg.Database.URL, "postgres://alt/test")
	}
	if cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("Cache.RedisAddr = %q, want %q", cfg.Cache.RedisAddr, "localhost:6379")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without DATABASE_URL")
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("MIGRATION_POLL_INTERVAL", "soon")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail on invalid duration")
	}
	if !strings.Contains(err.Error(), "MIGRATION_POLL_INTERVAL") {
		t.Errorf("error should name the variable, got %v", err)
	}
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")
	t.Setenv("MIGRATION_MAX_WORKERS", "many")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail")
	}
	for _, name := range []string{"DATABASE_URL", "MIGRATION_MAX_WORKERS"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should mention %s, got %v", name, err)
		}
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("API_KEYS", " key-one, ,key-two ")
	t.Setenv("REQUIRE_API_KEY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"key-one", "key-two"}
	if len(cfg.Security.APIKeys) != len(want) {
		t.Fatalf("APIKeys = %v, want %v", cfg.Security.APIKeys, want)
	}
	for i := range want {
		if cfg.Security.APIKeys[i] != want[i] {
			t.Errorf("APIKeys[%d] = %q, want %q", i, cfg.Security.APIKeys[i], want[i])
		}
	}
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Database: DatabaseConfig{URL: "postgres://x", MaxConns: 4, MinConns: 1},
		Migration: MigrationConfig{
			UploadDir:       "uploads/migrations",
			PollInterval:    time.Second,
			MaxWorkers:      1,
			CheckpointEvery: 10,
			StopTimeout:     time.Second,
			MaxFileSize:     1024,
		},
		Cache:   CacheConfig{LogTTL: time.Hour, Namespace: "migration"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "SERVER_PORT"},
		{"max below min conns", func(c *Config) { c.Database.MinConns = 10 }, "DB_MAX_CONNS"},
		{"zero poll interval", func(c *Config) { c.Migration.PollInterval = 0 }, "MIGRATION_POLL_INTERVAL"},
		{"zero workers", func(c *Config) { c.Migration.MaxWorkers = 0 }, "MIGRATION_MAX_WORKERS"},
		{"zero checkpoint", func(c *Config) { c.Migration.CheckpointEvery = 0 }, "MIGRATION_CHECKPOINT_EVERY"},
		{"cache without ttl", func(c *Config) {
			c.Cache.RedisAddr = "localhost:6379"
			c.Cache.LogTTL = 0
		}, "CACHE_LOG_TTL"},
		{"api key required without keys", func(c *Config) { c.Security.RequireAPIKey = true }, "API_KEYS"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"", 9000, ":9000"},
		{"127.0.0.1", 1, "127.0.0.1:1"},
	}
	for _, tt := range tests {
		c := ServerConfig{Host: tt.host, Port: tt.port}
		if got := c.Addr(); got != tt.want {
			t.Errorf("Addr() = %q, want %q", got, tt.want)
		}
	}
}

func TestConfigString_MasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Database.URL = "postgres://user:secret@db/app"
	cfg.Cache.RedisPassword = "hunter2"

	s := cfg.String()
	if strings.Contains(s, "secret") || strings.Contains(s, "hunter2") {
		t.Errorf("String() leaked a credential: %s", s)
	}
	if !strings.Contains(s, "[MASKED]") {
		t.Errorf("String() = %s, want masked URL", s)
	}
}
