// Package main is the entry point for the league pricing API server.
//
// It loads configuration, opens the database pool, wires the pricing engine,
// payment gateway, and league orchestrator, builds the HTTP server with the
// core chassis (middleware, routing, health checks), and starts listening.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
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

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"fitleague/internal/api/handlers"
	"fitleague/internal/config"
	"fitleague/internal/core"
	"fitleague/internal/db"
	"fitleague/internal/external"
	"fitleague/internal/league"
	"fitleague/internal/pricing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("fitleague API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening database pool: %w", err)
	}
	defer pool.Close()

	// Repositories.
	tierRepo := db.NewTierRepo(pool)
	leagueRepo := db.NewLeagueRepo(pool, logger)

	// Pricing engine.
	tierValidator := pricing.NewValidator(tierRepo, cfg.Pricing.WarnThresholdPercent)
	calculator := pricing.NewCalculator(tierRepo, tierValidator)
	snapshots := pricing.NewSnapshotBuilder(tierRepo, calculator)

	// Payment gateway.
	retryPolicy := external.DefaultRetryPolicy()
	retryPolicy.MaxRetries = cfg.Gateway.MaxRetries
	baseClient := external.NewBaseClient(
		&http.Client{Timeout: cfg.Gateway.Timeout},
		"razorpay",
		retryPolicy,
		cfg.Gateway.UserAgent,
	)
	gateway := external.NewRazorpayClient(
		baseClient,
		cfg.Gateway.KeyID,
		cfg.Gateway.KeySecret,
		cfg.Gateway.WebhookSecret,
		external.WithBaseURL(cfg.Gateway.BaseURL),
	)

	orchestrator := league.NewOrchestrator(leagueRepo, gateway, calculator, snapshots, logger)

	// HTTP server.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = []core.HealthProbe{core.NewDatabaseProbe(pool)}

	tiersHandler := handlers.NewTiersHandler(tierRepo, calculator, srv.Validator, logger)
	leaguesHandler := handlers.NewLeaguesHandler(orchestrator, leagueRepo, srv.Validator, logger)
	webhookHandler := handlers.NewWebhookHandler(gateway, orchestrator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		tiersHandler.RegisterRoutes,
		leaguesHandler.RegisterRoutes,
		webhookHandler.RegisterRoutes,
	)

	srv.MountRoutes()

	return serve(ctx, srv, cfg, logger)
}

// newPool opens a pgx connection pool with the configured tuning parameters
// and verifies connectivity before returning.
func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.Database.HealthCheckPeriod
	poolCfg.ConnConfig.ConnectTimeout = cfg.Database.AcquireTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// serve runs the HTTP server until the context is cancelled (shutdown signal)
// or the listener fails, then drains in-flight requests.
func serve(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
