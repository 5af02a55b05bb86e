// Package observability provides structured logging, Prometheus metrics,
// health checks and OpenTelemetry setup for the quotes service.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("quote_id", id).Info("Quote created")
//
// Request scoped fields travel in the context:
//
//	ctx = observability.WithRequestID(ctx, reqID)
//	observability.FromContext(ctx).Warn("slow query")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//
// The Record helpers accept a nil *Metrics, so packages can be used without
// a registry.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// /readyz reports 503 when Postgres or Redis does not answer.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "quotes-api",
//	}, logger)
//	defer providers.Shutdown(ctx)
package observability
