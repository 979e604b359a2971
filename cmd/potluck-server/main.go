// Package main runs the potluck sign-up sheet API over a selectable table
// store backend.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "github.com/jackc/pgx/v5/stdlib"

	apihttp "github.com/raneja-ux/potluck-app/internal/adapters/inbound/http"
	"github.com/raneja-ux/potluck-app/internal/adapters/outbound/cached"
	"github.com/raneja-ux/potluck-app/internal/adapters/outbound/googlesheets"
	"github.com/raneja-ux/potluck-app/internal/adapters/outbound/memory"
	"github.com/raneja-ux/potluck-app/internal/adapters/outbound/postgres"
	"github.com/raneja-ux/potluck-app/internal/adapters/outbound/redis"
	s3adapter "github.com/raneja-ux/potluck-app/internal/adapters/outbound/s3"
	"github.com/raneja-ux/potluck-app/internal/adapters/outbound/telemetry"
	"github.com/raneja-ux/potluck-app/internal/pkg/env"
	"github.com/raneja-ux/potluck-app/internal/ports/outbound"
	"github.com/raneja-ux/potluck-app/internal/services/registry"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

type cliConfig struct {
	addr       string
	healthAddr string
	store      string
	cache      string
}

func parseConfig(args []string) (cliConfig, error) {
	fs := flag.NewFlagSet("potluck-server", flag.ContinueOnError)
	addr := fs.String("addr", "", "HTTP listen address")
	healthAddr := fs.String("health-addr", "", "health endpoint listen address")
	store := fs.String("store", "", "table store backend (memory, sheets, postgres, s3)")
	cache := fs.String("cache", "", "snapshot cache (none, memory, redis)")
	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}

	cfg := cliConfig{
		addr:       *addr,
		healthAddr: *healthAddr,
		store:      *store,
		cache:      *cache,
	}

	if cfg.addr == "" {
		cfg.addr = env.Get("POTLUCK_ADDR", ":8080")
	}
	if cfg.healthAddr == "" {
		cfg.healthAddr = env.Get("POTLUCK_HEALTH_ADDR", ":8081")
	}
	if cfg.store == "" {
		cfg.store = env.Get("POTLUCK_STORE", "memory")
	}
	if cfg.cache == "" {
		cfg.cache = env.Get("POTLUCK_CACHE", "none")
	}

	switch cfg.store {
	case "memory", "sheets", "postgres", "s3":
	default:
		return cliConfig{}, fmt.Errorf("unknown store backend %q (expected memory, sheets, postgres or s3)", cfg.store)
	}
	switch cfg.cache {
	case "none", "memory", "redis":
	default:
		return cliConfig{}, fmt.Errorf("unknown cache %q (expected none, memory or redis)", cfg.cache)
	}

	return cfg, nil
}

func run(ctx context.Context, args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: env.ParseLogLevel(slog.LevelInfo),
	}))
	slog.SetDefault(logger)

	logger.Info("starting potluck server", "store", cfg.store, "cache", cfg.cache, "addr", cfg.addr)

	otelShutdown, err := telemetry.InitMetrics(ctx, telemetry.MetricConfig{
		ServiceName:    "potluck-server",
		ServiceVersion: env.Get("SERVICE_VERSION", "dev"),
		Environment:    env.Get("ENVIRONMENT", "dev"),
		OTLPEndpoint:   env.Get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	})
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown failed", "error", err)
		}
	}()

	metrics, err := telemetry.NewMetrics("potluck-server")
	if err != nil {
		return fmt.Errorf("creating metrics recorder: %w", err)
	}

	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	store, closeCache, err := wrapCache(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	service, err := registry.NewService(registry.ServiceConfig{
		ReadFreshness: env.GetDuration("POTLUCK_READ_FRESHNESS", 5*time.Second),
		WriteAttempts: env.GetInt("POTLUCK_WRITE_ATTEMPTS", 3),
		Logger:        logger,
		Metrics:       metrics,
	}, store)
	if err != nil {
		return fmt.Errorf("creating registry service: %w", err)
	}

	handler := apihttp.NewHandler(service, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         cfg.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	var shuttingDown atomic.Bool
	healthConfig := apihttp.HealthServerConfigDefaults()
	healthConfig.Addr = cfg.healthAddr
	healthConfig.Logger = logger
	healthServer := apihttp.NewHealthServer(healthConfig, service, &shuttingDown)
	healthServer.Start()

	// Latch readiness before traffic arrives; a failure here is not fatal,
	// the instance just stays not-ready until the store answers.
	if err := service.Ping(ctx); err != nil {
		logger.Warn("table store not reachable yet", "error", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	// Readiness goes down first so load balancers stop sending traffic,
	// then in-flight requests drain.
	shuttingDown.Store(true)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error draining http server", "error", err)
	}
	if err := healthServer.Shutdown(5 * time.Second); err != nil {
		logger.Error("error stopping health server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// buildStore constructs the configured table store backend and returns it
// with its cleanup function.
func buildStore(ctx context.Context, cfg cliConfig, logger *slog.Logger) (outbound.TableStore, func(), error) {
	noop := func() {}

	switch cfg.store {
	case "memory":
		return memory.NewTableStore(), noop, nil

	case "postgres":
		dbURL, err := env.Require("DATABASE_URL")
		if err != nil {
			return nil, nil, err
		}
		db, err := sql.Open("pgx", dbURL)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("pinging database: %w", err)
		}
		store, err := postgres.NewTableStore(db, logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrating entries table: %w", err)
		}
		logger.Info("PostgreSQL connected")
		return store, func() { db.Close() }, nil

	case "s3":
		bucket, err := env.Require("POTLUCK_S3_BUCKET")
		if err != nil {
			return nil, nil, err
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(env.Get("AWS_REGION", "eu-west-1")),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("loading AWS config: %w", err)
		}
		var optFns []func(*s3.Options)
		if endpoint := env.Get("AWS_S3_ENDPOINT", ""); endpoint != "" {
			optFns = append(optFns, func(o *s3.Options) {
				o.BaseEndpoint = aws.String(endpoint)
				o.UsePathStyle = true
			})
		}
		store, err := s3adapter.NewTableStoreWithOptions(awsCfg, s3adapter.Config{
			Bucket: bucket,
			Key:    env.Get("POTLUCK_S3_KEY", ""),
		}, logger, optFns...)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case "sheets":
		spreadsheetID, err := env.Require("SHEETS_SPREADSHEET_ID")
		if err != nil {
			return nil, nil, err
		}
		creds, err := readSheetsCredentials()
		if err != nil {
			return nil, nil, err
		}
		client, err := googlesheets.NewClient(googlesheets.ClientConfig{
			SpreadsheetID:   spreadsheetID,
			CredentialsJSON: creds,
			Logger:          logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating sheets client: %w", err)
		}
		store, err := googlesheets.NewTableStore(client, env.Get("SHEETS_WORKSHEET", "Sheet1"), logger)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.store)
}

// wrapCache optionally puts the read-through snapshot cache in front of the
// store. Stores with an atomic or conditional write path are never wrapped:
// the decorator would hide those capabilities and reopen the lost-update
// window.
func wrapCache(ctx context.Context, cfg cliConfig, store outbound.TableStore, logger *slog.Logger) (outbound.TableStore, func(), error) {
	noop := func() {}

	if cfg.cache == "none" {
		return store, noop, nil
	}
	switch store.(type) {
	case outbound.AtomicAppender, outbound.VersionedTableStore:
		logger.Warn("snapshot cache disabled: store writes are already safe against lost updates", "store", cfg.store)
		return store, noop, nil
	}

	ttl := env.GetDuration("POTLUCK_CACHE_TTL", 30*time.Second)

	var (
		cache   outbound.SnapshotCache
		closeFn = noop
	)
	switch cfg.cache {
	case "memory":
		cache = memory.NewSnapshotCache()
	case "redis":
		snap, err := redis.NewSnapshotCache(redis.Config{
			Addr:      env.Get("REDIS_ADDR", "localhost:6379"),
			Password:  env.Get("REDIS_PASSWORD", ""),
			DB:        env.GetInt("REDIS_DB", 0),
			TTL:       ttl,
			KeyPrefix: env.Get("REDIS_KEY_PREFIX", "potluck"),
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("creating redis cache: %w", err)
		}
		if err := snap.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("pinging redis: %w", err)
		}
		logger.Info("Redis connected")
		cache = snap
		closeFn = func() {
			if err := snap.Close(); err != nil {
				logger.Warn("error closing redis client", "error", err)
			}
		}
	default:
		return nil, nil, fmt.Errorf("unknown cache %q", cfg.cache)
	}

	wrapped, err := cached.NewTableStore(cached.Config{TTL: ttl, Logger: logger}, store, cache)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return wrapped, closeFn, nil
}

// readSheetsCredentials loads the service account key, either inline from
// GOOGLE_CREDENTIALS_JSON or from the file GOOGLE_APPLICATION_CREDENTIALS
// points at.
func readSheetsCredentials() ([]byte, error) {
	if inline := os.Getenv("GOOGLE_CREDENTIALS_JSON"); inline != "" {
		return []byte(inline), nil
	}
	path, err := env.Require("GOOGLE_APPLICATION_CREDENTIALS")
	if err != nil {
		return nil, err
	}
	creds, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading service account credentials: %w", err)
	}
	return creds, nil
}
