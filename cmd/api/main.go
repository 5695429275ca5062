package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	core "github.com/jwalitptl/health-analytics/internal/analytics"
	"github.com/jwalitptl/health-analytics/internal/config"
	"github.com/jwalitptl/health-analytics/internal/email"
	analyticsHandler "github.com/jwalitptl/health-analytics/internal/handler/analytics"
	chatHandler "github.com/jwalitptl/health-analytics/internal/handler/chat"
	"github.com/jwalitptl/health-analytics/internal/handler/health"
	profileHandler "github.com/jwalitptl/health-analytics/internal/handler/profile"
	"github.com/jwalitptl/health-analytics/internal/handler/prometheus"
	realtimeHandler "github.com/jwalitptl/health-analytics/internal/handler/realtime"
	"github.com/jwalitptl/health-analytics/internal/middleware"
	"github.com/jwalitptl/health-analytics/internal/realtime"
	"github.com/jwalitptl/health-analytics/internal/repository/postgres"
	"github.com/jwalitptl/health-analytics/internal/router"
	analyticsService "github.com/jwalitptl/health-analytics/internal/service/analytics"
	chatService "github.com/jwalitptl/health-analytics/internal/service/chat"
	healthService "github.com/jwalitptl/health-analytics/internal/service/health"
	"github.com/jwalitptl/health-analytics/internal/service/notification"
	"github.com/jwalitptl/health-analytics/pkg/auth"
	"github.com/jwalitptl/health-analytics/pkg/edge"
	"github.com/jwalitptl/health-analytics/pkg/logger"
	"github.com/jwalitptl/health-analytics/pkg/messaging/redis"
	"github.com/jwalitptl/health-analytics/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLog := logger.NewLogger(&logger.Config{
		Level:   logger.ParseLevel(cfg.Log.Level),
		Format:  cfg.Log.Format,
		Service: "health-analytics-api",
	})
	log.Logger = *appLog.Zerolog()

	m := metrics.NewMetrics("health_analytics", nil)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// Initialize database
	db, err := postgres.NewDB(startCtx, cfg.Database)
	if err != nil {
		appLog.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis message broker
	redisClient, err := redis.NewClient(startCtx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		appLog.Fatal(err, "failed to connect to Redis")
	}
	broker := redis.NewRedisBroker(redisClient, appLog.Zerolog())
	defer broker.Close()

	// Initialize repositories
	base := postgres.NewBaseRepository(db)
	profileRepo := postgres.NewHealthProfileRepository(base)
	analysisRepo := postgres.NewAnalysisRepository(base)
	metricRepo := postgres.NewDailyMetricRepository(base)
	chatRepo := postgres.NewChatRepository(base)
	analyticsRepo := postgres.NewAnalyticsRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)
	dynamicScoreRepo := postgres.NewDynamicScoreRepository(base)

	edgeClient := edge.NewClient(edge.Config{
		BaseURL:             cfg.Edge.BaseURL,
		ServiceKey:          cfg.Edge.ServiceKey,
		Timeout:             cfg.Edge.Timeout,
		MaxRetries:          cfg.Edge.MaxRetries,
		BreakerMaxFailures:  cfg.Edge.BreakerMaxFailures,
		BreakerResetTimeout: cfg.Edge.BreakerResetTimeout,
	}, appLog, m)

	// Initialize services
	analyticsSvc := analyticsService.NewService(
		analyticsService.Repositories{
			Profiles:  profileRepo,
			Analyses:  analysisRepo,
			Chats:     chatRepo,
			Analytics: analyticsRepo,
		},
		core.NewCalculator(dynamicScoreRepo, appLog),
		edgeClient,
		broker,
		analyticsService.Config{
			CacheTTL:               cfg.Analytics.CacheTTL,
			CacheCleanup:           cfg.Analytics.CacheCleanup,
			RegenerateRetries:      cfg.Analytics.RegenerateRetries,
			RecommendationsTimeout: cfg.Edge.RecommendationsTimeout,
			Locale:                 core.ParseLocale(cfg.Analytics.Locale),
		},
		appLog,
		m,
	)
	defer analyticsSvc.Close()

	healthSvc := healthService.NewService(&base, profileRepo, analysisRepo, metricRepo, outboxRepo, appLog)
	chatSvc := chatService.NewService(chatRepo, broker.Client(), edgeClient, cfg.Chat.DailyLimit, appLog, m)

	notifiers := []notification.Notifier{notification.NewBrokerNotifier(broker)}
	if cfg.Email.Enabled {
		notifiers = append(notifiers, notification.NewEmailNotifier(email.NewService(email.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})))
	}

	realtimeMgr := realtime.NewManager(broker, analyticsSvc, notification.NewMultiNotifier(notifiers...), realtime.Config{
		BaseDelay:   cfg.Realtime.BaseDelay,
		MaxDelay:    cfg.Realtime.MaxDelay,
		MaxAttempts: cfg.Realtime.MaxAttempts,
	}, appLog, m)
	defer realtimeMgr.Close()

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer))

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.Security.AllowedOrigins
	cors.AllowMethods = cfg.Security.AllowedMethods
	cors.AllowHeaders = cfg.Security.AllowedHeaders

	// Setup router
	r := router.NewRouter(
		authMiddleware,
		health.NewHandler(map[string]health.Pinger{
			"database": &base,
			"redis":    broker,
		}),
		prometheus.New(nil, m),
		router.RouterConfig{
			Mode:           cfg.Server.Mode,
			RateLimit:      rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:      cfg.RateLimit.Burst,
			RateEnabled:    cfg.RateLimit.Enabled,
			CORSConfig:     cors,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			RequestTimeout: cfg.Server.WriteTimeout,
		},
		analyticsHandler.NewHandler(analyticsSvc),
		profileHandler.NewHandler(healthSvc),
		chatHandler.NewHandler(chatSvc),
		realtimeHandler.NewHandler(realtimeMgr),
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		appLog.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLog.Error(err, "server forced to shutdown")
	}

	appLog.Info("server exited properly")
}
