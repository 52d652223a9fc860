package main

import (
	"context"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/tally/pkg/api"
	"github.com/platinummonkey/tally/pkg/config"
	"github.com/platinummonkey/tally/pkg/directory"
	"github.com/platinummonkey/tally/pkg/observability"
	"github.com/platinummonkey/tally/pkg/scan"
	"github.com/platinummonkey/tally/pkg/sources"
	"github.com/platinummonkey/tally/pkg/usage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx := context.Background()

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.InitMetrics()
	}

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		logger.WithError(err).Error("failed to build source registry")
		os.Exit(1)
	}
	logger.WithField("sources", len(registry.List())).Info("source catalog loaded")

	scanner, err := scan.NewDynamoDBScanner(ctx, cfg.Scan)
	if err != nil {
		logger.WithError(err).Error("failed to initialize usage store scanner")
		os.Exit(1)
	}

	dir, redisClient, err := buildDirectory(ctx, cfg, metrics, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize identity directory")
		os.Exit(1)
	}

	svc := usage.NewService(usage.ServiceConfig{
		Registry:      registry,
		Scanner:       scanner,
		Directory:     dir,
		Logger:        logger,
		Metrics:       metrics,
		ScanWorkers:   cfg.Workers.Scan,
		LookupWorkers: cfg.Workers.Lookup,
	})

	serverOpts := []api.ServerOption{
		api.WithRequestTimeout(cfg.Server.RequestTimeout),
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		serverOpts = append(serverOpts, api.WithAllowedOrigins(cfg.Server.AllowedOrigins))
	}
	apiServer := api.NewServer(svc, logger, metrics, serverOpts...)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := startHealthServer(cfg, redisClient, metrics, logger)

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("starting tally API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
			os.Exit(1)
		}
	}()

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	if providers != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
}

// buildRegistry loads the source catalog, from YAML when configured.
func buildRegistry(cfg *config.Config) (*sources.Registry, error) {
	descs := sources.Builtin()
	if cfg.Sources.CatalogPath != "" {
		loaded, err := sources.LoadCatalog(cfg.Sources.CatalogPath)
		if err != nil {
			return nil, err
		}
		descs = loaded
	}
	return sources.NewRegistry(descs)
}

// buildDirectory assembles the Cognito directory with the configured cache
// layer in front. The returned redis client is nil unless the redis cache is
// selected.
func buildDirectory(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *observability.Logger) (directory.Directory, *redis.Client, error) {
	cognito, err := directory.NewCognitoDirectory(ctx, cfg.Directory)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Cache.Type {
	case "memory":
		cached := directory.NewCachedDirectory(cognito, cfg.Cache.Size, cfg.Cache.TTL)
		if metrics != nil {
			cached.OnHit = func() { metrics.CacheHitsTotal.WithLabelValues("memory").Inc() }
			cached.OnMiss = func() { metrics.CacheMissesTotal.WithLabelValues("memory").Inc() }
		}
		logger.WithField("size", cfg.Cache.Size).Info("identity cache: in-process LRU")
		return cached, nil, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisURL,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		cached := directory.NewRedisCachedDirectory(cognito, client, cfg.Cache.TTL)
		if metrics != nil {
			cached.OnHit = func() { metrics.CacheHitsTotal.WithLabelValues("redis").Inc() }
			cached.OnMiss = func() { metrics.CacheMissesTotal.WithLabelValues("redis").Inc() }
		}
		logger.WithField("addr", cfg.Cache.RedisURL).Info("identity cache: redis")
		return cached, client, nil

	default:
		logger.Info("identity cache disabled")
		return cognito, nil, nil
	}
}

// startHealthServer serves liveness, readiness, and metrics on the health
// port so k8s probes and scrapes never compete with report traffic.
func startHealthServer(cfg *config.Config, redisClient *redis.Client, metrics *observability.Metrics, logger *observability.Logger) *http.Server {
	checker := observability.NewHealthChecker(redisClient)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.Liveness)
	mux.HandleFunc("/ready", checker.Readiness)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}

	server := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: mux,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("starting health server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	return server
}
