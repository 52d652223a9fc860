// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes observability infrastructure: JSON logging, the
// service's metric collectors, dependency health checks, graceful shutdown,
// and tracing initialization.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("source", "chat").Info("scan complete")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.InitMetrics()
//	metrics.ScansTotal.WithLabelValues("chat", "ok").Inc()
//	metrics.UnattributableRecords.WithLabelValues("api").Add(3)
//
// Expose the scrape endpoint:
//
//	mux.Handle("/metrics", metrics.Handler())
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(redisClient)
//	checker.RegisterCheck("dynamodb", probeFn)
//	mux.HandleFunc("/ready", checker.Readiness)
//
// # OpenTelemetry
//
// InitOTel wires OTLP trace and metric exporters; spans are emitted around
// every DynamoDB scan and Cognito call.
package observability
