// Package main is the entry point for the planner service.
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
	"time"

	"github.com/flexinfer/scrapeflow/internal/api"
	"github.com/flexinfer/scrapeflow/internal/catalog"
	"github.com/flexinfer/scrapeflow/internal/config"
	"github.com/flexinfer/scrapeflow/internal/planner"
	"github.com/flexinfer/scrapeflow/internal/publish"
	"github.com/flexinfer/scrapeflow/internal/tracing"
	"github.com/flexinfer/scrapeflow/internal/validator"
	"github.com/flexinfer/scrapeflow/internal/versionstore"
)

func main() {
	cfg := config.Load()

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	logger.Info("starting planner",
		slog.String("port", cfg.Port),
		slog.String("log_level", cfg.LogLevel),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("planner failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingCfg := tracing.DefaultConfig()
	tracingCfg.Enabled = cfg.TracingEnabled
	tracingCfg.OTLPEndpoint = cfg.OTLPEndpoint
	tracingCfg.SampleRate = cfg.TraceSampleRate
	tp, err := tracing.Init(ctx, tracingCfg, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", "error", err)
		}
	}()

	cat, err := loadCatalog(cfg, logger)
	if err != nil {
		return err
	}

	compiler, err := planner.NewCachedCompiler(planner.NewCompiler(cat), cfg.PlanCacheSize)
	if err != nil {
		return err
	}

	schema, err := validator.New()
	if err != nil {
		return fmt.Errorf("create validator: %w", err)
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	pub, err := openPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var limiter *api.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
		go limiter.Run(ctx)
		logger.Info("rate limiting enabled",
			slog.Float64("rps", cfg.RateLimitRPS),
			slog.Int("burst", cfg.RateLimitBurst),
		)
	}

	handlers := api.NewHandlers(cat, compiler, schema, store, pub, cfg, logger)
	server := api.NewServer(handlers, limiter)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	return nil
}

func loadCatalog(cfg *config.Config, logger *slog.Logger) (*catalog.Catalog, error) {
	if cfg.CatalogFile == "" {
		cat := catalog.Default()
		logger.Info("using built-in task catalog", slog.Int("tasks", len(cat.List())))
		return cat, nil
	}

	cat, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("loaded task catalog",
		slog.String("file", cfg.CatalogFile),
		slog.Int("tasks", len(cat.List())),
	)
	return cat, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (versionstore.Store, error) {
	switch cfg.VersionStore {
	case "redis":
		store, err := versionstore.NewRedisStore(cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("failed to connect to Redis, falling back to memory store", "error", err)
			return versionstore.NewMemoryStore(), nil
		}
		logger.Info("using Redis version store", slog.String("url", cfg.RedisURL))
		return store, nil
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, errors.New("POSTGRES_DSN is required for the postgres version store")
		}
		store, err := versionstore.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres version store: %w", err)
		}
		logger.Info("using Postgres version store")
		return store, nil
	default:
		logger.Info("using in-memory version store")
		return versionstore.NewMemoryStore(), nil
	}
}

func openPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (publish.Publisher, error) {
	if cfg.Publisher != "s3" {
		logger.Info("using in-memory plan publisher")
		return publish.NewMemoryPublisher(), nil
	}

	pub, err := publish.NewS3Publisher(ctx, &publish.S3Config{
		Endpoint:        cfg.S3Endpoint,
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		UseSSL:          cfg.S3UseSSL,
		PathPrefix:      cfg.S3PathPrefix,
		PresignExpiry:   cfg.S3PresignExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 publisher: %w", err)
	}
	logger.Info("using S3 plan publisher",
		slog.String("bucket", cfg.S3Bucket),
		slog.String("endpoint", cfg.S3Endpoint),
	)
	return pub, nil
}
