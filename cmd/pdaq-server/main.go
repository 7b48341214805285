package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brownie44l1/pdaq-server/internal/config"
	"github.com/Brownie44l1/pdaq-server/internal/database"
	"github.com/Brownie44l1/pdaq-server/internal/logging"
	"github.com/Brownie44l1/pdaq-server/internal/router"
	"github.com/Brownie44l1/pdaq-server/internal/server"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Flags override the environment
	var origins, admins string
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flag.StringVar(&cfg.DatabaseURL, "db", cfg.DatabaseURL, "SQLite path (empty uses the in-memory mock)")
	flag.Int64Var(&cfg.MaxBodySize, "max-body", cfg.MaxBodySize, "maximum request body in bytes")
	flag.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "per-connection read timeout (0 disables)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "console or json")
	flag.StringVar(&origins, "origins", "", "comma-separated CORS origins")
	flag.StringVar(&admins, "admins", "", "comma-separated admin usernames")
	flag.BoolVar(&cfg.SeedMock, "seed", cfg.SeedMock, "load demo fixtures")
	flag.Parse()

	if origins != "" {
		cfg.AllowedOrigins = config.SplitList(origins)
	}
	if admins != "" {
		cfg.Admins = config.SplitList(admins)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped", logging.F("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *logging.ZeroLogger) error {
	ctx := context.Background()

	db, err := database.Open(ctx, database.Options{
		URL:    cfg.DatabaseURL,
		Admins: cfg.Admins,
		Seed:   cfg.SeedMock,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	backend := "mock"
	if cfg.DatabaseURL != "" {
		backend = "sqlite"
	}
	logger.Info("Database ready", logging.F("backend", backend), logging.F("url", cfg.DatabaseURL))

	rt := router.New(db, router.Options{
		CORS:   cfg.CORS(),
		Logger: logger.With(logging.F("component", "router")),
	})

	srvLogger := logger.With(logging.F("component", "server"))
	metrics := server.NewMetrics()
	srv := server.New(server.Options{
		Addr:        cfg.Addr,
		ReadTimeout: cfg.ReadTimeout,
		MaxBodySize: cfg.MaxBodySize,
		Logger:      srvLogger,
		Metrics:     metrics,
	}, server.Chain(rt,
		server.RecoveryMiddleware(srvLogger),
		server.LoggingMiddleware(srvLogger),
		server.MetricsMiddleware(metrics),
	))

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-sigChan:
		logger.Info("Shutting down", logging.F("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, server.ErrServerClosed) {
		return err
	}

	stats := metrics.Snapshot()
	logger.Info("Server stopped",
		logging.F("connections", stats.ConnectionsTotal),
		logging.F("dropped", stats.DroppedTotal),
		logging.F("requests", stats.RequestsTotal),
		logging.F("errors_4xx", stats.Errors4xx),
		logging.F("errors_5xx", stats.Errors5xx),
		logging.F("avg_latency", stats.AverageLatency),
	)
	return nil
}
