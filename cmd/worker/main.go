package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/health-analytics/internal/config"
	"github.com/jwalitptl/health-analytics/internal/handler/health"
	"github.com/jwalitptl/health-analytics/internal/handler/prometheus"
	"github.com/jwalitptl/health-analytics/internal/repository/postgres"
	internalWorker "github.com/jwalitptl/health-analytics/internal/worker"
	"github.com/jwalitptl/health-analytics/pkg/logger"
	"github.com/jwalitptl/health-analytics/pkg/messaging/redis"
	"github.com/jwalitptl/health-analytics/pkg/metrics"
	"github.com/jwalitptl/health-analytics/pkg/worker"
)

func generateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
}

func setupHealthCheck(port int, deps map[string]health.Pinger, m *metrics.Metrics, appLog *logger.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	health.NewHandler(deps).RegisterRoutes(engine)
	engine.GET("/metrics", prometheus.New(nil, m).Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(err, "Health check server failed")
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	workerID := "worker-" + generateWorkerID()
	appLog := logger.NewLogger(&logger.Config{
		Level:   logger.ParseLevel(cfg.Log.Level),
		Format:  cfg.Log.Format,
		Service: "health-analytics-worker",
	}).With("worker_id", workerID)
	log.Logger = *appLog.Zerolog()

	m := metrics.NewMetrics("health_analytics_worker", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		appLog.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis broker
	redisClient, err := redis.NewClient(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		appLog.Fatal(err, "Failed to create Redis broker")
	}
	broker := redis.NewRedisBroker(redisClient, appLog.Zerolog())
	defer broker.Close()

	// Initialize repositories
	base := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(base)

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
		},
		appLog,
		m,
	)
	cleanup := internalWorker.NewOutboxCleanupWorker(outboxRepo, cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, appLog, m)

	// Setup health check endpoints
	healthSrv := setupHealthCheck(cfg.Outbox.HealthPort, map[string]health.Pinger{
		"database": &base,
		"redis":    broker,
	}, m, appLog)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLog.Info("Shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()
	wg.Wait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(err, "Health check server forced to shutdown")
	}
	appLog.Info("Worker stopped")
}
