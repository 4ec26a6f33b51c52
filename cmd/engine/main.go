package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chiron/internal/adapters/ai"
	"chiron/internal/adapters/clickhouse"
	"chiron/internal/adapters/config"
	"chiron/internal/adapters/errors/noop"
	"chiron/internal/adapters/errors/sentry"
	"chiron/internal/adapters/postgres"
	"chiron/internal/adapters/redis"
	"chiron/internal/domain/technical"
	"chiron/internal/metrics"
	chrepo "chiron/internal/repository/clickhouse"
	pgrepo "chiron/internal/repository/postgres"
	"chiron/internal/services/analysis"
	"chiron/internal/workers"
	"chiron/pkg/errors"
	"chiron/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	// Databases
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	chClient, err := clickhouse.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer chClient.Close()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	log.Info("Databases initialized")

	// Repositories
	bundleRepo := pgrepo.NewBundleRepository(pgClient.DB())
	priceRepo := chrepo.NewPriceHistoryRepository(chClient.Conn())

	// Analysis service
	svcCfg, err := analysis.ServiceConfigFrom(cfg.Analysis)
	if err != nil {
		log.Fatalf("Invalid analysis config: %v", err)
	}

	service := analysis.NewService(
		svcCfg,
		priceRepo,
		priceRepo,
		bundleRepo,
		analysis.NewBundleCache(redisClient, cfg.Analysis.CacheEnabled),
		analysis.NewTargetEstimator(initAnnotator(cfg, log)),
	)

	log.Info("Analysis service initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Workers
	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(workers.NewRefreshWorker(
		service,
		cfg.Workers.RefreshInterval,
		cfg.Workers.RefreshRateLimit,
		cfg.Workers.RefreshEnabled,
	))
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	metricsServer := startMetricsServer(cfg.Workers.MetricsAddr, log)

	waitForShutdown(cancel, scheduler, metricsServer, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initAnnotator initializes the narrative annotator when an API key is
// configured; without one the estimator ships fallback explanations.
func initAnnotator(cfg *config.Config, log *logger.Logger) technical.NarrativeAnnotator {
	if cfg.AI.OpenAIKey == "" {
		log.Info("Narrative annotation disabled (no API key)")
		return nil
	}

	annotator, err := ai.NewNarrativeAnnotator(cfg.AI.OpenAIKey, cfg.AI.OpenAIModel, cfg.AI.OpenAITimeout)
	if err != nil {
		log.Warnf("Failed to initialize narrative annotator: %v", err)
		return nil
	}

	log.Info("Narrative annotator initialized")
	return annotator
}

// startMetricsServer exposes /metrics on the configured address
func startMetricsServer(addr string, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Infof("Metrics server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server error: %v", err)
		}
	}()
	return server
}

// waitForShutdown waits for a shutdown signal and stops components in order
func waitForShutdown(cancel context.CancelFunc, scheduler *workers.Scheduler, metricsServer *http.Server, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Scheduler stop: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Metrics server shutdown: %v", err)
	}
	if err := errorTracker.Flush(shutdownCtx); err != nil {
		log.Warnf("Error tracker flush: %v", err)
	}

	log.Info("Shutdown complete")
}
