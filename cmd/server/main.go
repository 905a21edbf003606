package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/migrator/internal/cache"
	"github.com/JonMunkholm/migrator/internal/config"
	"github.com/JonMunkholm/migrator/internal/core"
	_ "github.com/JonMunkholm/migrator/internal/core/importers" // Register importers
	"github.com/JonMunkholm/migrator/internal/database"
	"github.com/JonMunkholm/migrator/internal/logging"
	"github.com/JonMunkholm/migrator/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
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

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"max_workers", cfg.Migration.MaxWorkers,
		"poll_interval", cfg.Migration.PollInterval,
		"cache_enabled", cfg.Cache.CacheEnabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		slog.Info("schema applied")
	}

	opts := core.Options{
		UploadDir:          cfg.Migration.UploadDir,
		PollInterval:       cfg.Migration.PollInterval,
		StopTimeout:        cfg.Migration.StopTimeout,
		MaxWorkers:         cfg.Migration.MaxWorkers,
		CheckpointEvery:    cfg.Migration.CheckpointEvery,
		SimulationStep:     cfg.Migration.SimulationStep,
		SpreadsheetEnabled: cfg.Migration.SpreadsheetEnabled,
		MaxFileSize:        cfg.Migration.MaxFileSize,
	}

	// The cache is optional: without it the latest log is read from the store.
	if cfg.Cache.CacheEnabled() {
		redisCache, err := cache.Connect(ctx, cache.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			slog.Warn("redis unavailable, continuing without cache", "error", err)
		} else {
			defer redisCache.Close()
			opts.Cache = redisCache
			opts.CacheOptions = core.CacheOptions{TTL: cfg.Cache.LogTTL, Namespace: cfg.Cache.Namespace}
		}
	}

	service := core.NewService(core.NewPgStore(pool), opts)
	server := web.NewServer(service, cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Workers run on a context that outlives the signal so in-flight
	// migrations can finish during shutdown.
	service.Start(context.WithoutCancel(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		// Stop scanning first so no new job is dispatched.
		if err := service.Stop(); err != nil {
			slog.Warn("processor did not stop in time", "error", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if st := service.ProcessorStatus(); len(st.InFlight) > 0 {
			slog.Info("waiting for migrations to finish", "in_flight", st.InFlight)
			if err := service.WaitForWorkers(shutdownCtx); err != nil {
				slog.Warn("migrations still running at shutdown, they will be picked up again on restart", "error", err)
			} else {
				slog.Info("all migrations finished")
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
