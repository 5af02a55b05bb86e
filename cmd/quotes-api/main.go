package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/quotes/pkg/api"
	"github.com/platinummonkey/quotes/pkg/config"
	"github.com/platinummonkey/quotes/pkg/middleware"
	"github.com/platinummonkey/quotes/pkg/observability"
	"github.com/platinummonkey/quotes/pkg/quotes"
	"github.com/platinummonkey/quotes/pkg/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "quotes-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"version":  cfg.API.Version,
		"base_url": cfg.API.BaseURL,
	}).Info("Starting quotes API")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	fail := func(err error) error {
		return errors.Join(err, shutdown.Shutdown(context.Background()))
	}

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.API.Version,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fail(err)
	}
	if providers != nil {
		shutdown.RegisterShutdownFunc("opentelemetry", providers.Shutdown)
	}

	db, err := postgres.Open(ctx, postgres.ConnectionConfig{
		URL:      cfg.Database.DSN(),
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
		Timeout:  cfg.Database.Timeout,
	})
	if err != nil {
		return fail(err)
	}
	shutdown.RegisterShutdownFunc("postgres", func(context.Context) error { return db.Close() })

	applied, err := postgres.RunMigrations(ctx, db)
	if err != nil {
		return fail(err)
	}
	for _, m := range applied {
		logger.WithFields(map[string]interface{}{
			"version":     m.Version,
			"description": m.Description,
		}).Info("Applied migration")
	}

	redisClient, err := postgres.NewRedisClient(ctx, postgres.RedisConfig{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return fail(err)
	}
	shutdown.RegisterShutdownFunc("redis", func(context.Context) error { return redisClient.Close() })

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = observability.NewMetrics(registry)
	}

	store := postgres.NewQuoteStore(db)
	limiter := middleware.NewRateLimiter(redisClient, "", metrics)
	limiter.SetFallbackEnabled(cfg.Redis.FailOpen)

	server := api.NewServer(quotes.NewService(store, metrics), api.Options{
		BasePath:   cfg.API.BaseURL,
		Title:      cfg.API.Title,
		Version:    cfg.API.Version,
		APIKey:     cfg.API.Key,
		Limiter:    limiter,
		RateLimits: cfg.RateLimits,
		Metrics:    metrics,
		Logger:     logger,

		TrustForwardedHeaders: cfg.Server.TrustForwardedHeaders,
	})

	apiServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      otelhttp.NewHandler(server, "quotes-api"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient, cfg.API.Version))
	if metrics != nil {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:              cfg.Server.HealthAddr(),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown.RegisterServer("api", apiServer)
	shutdown.RegisterServer("health", healthServer)

	if metrics != nil {
		collector := observability.NewStatsCollector(db, store, metrics, logger)
		if err := collector.Start(ctx, observability.DefaultStatsSchedule); err != nil {
			return fail(err)
		}
		shutdown.RegisterShutdownFunc("stats collector", collector.Stop)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(apiServer, "api", logger) })
	g.Go(func() error { return serve(healthServer, "health", logger) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		return shutdown.Shutdown(context.Background())
	})

	return g.Wait()
}

func serve(server *http.Server, name string, logger *observability.Logger) error {
	logger.WithFields(map[string]interface{}{
		"server": name,
		"addr":   server.Addr,
	}).Info("Listening")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}
