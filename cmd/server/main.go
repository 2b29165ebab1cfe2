package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"curatorhub/config"
	"curatorhub/internal/ai"
	"curatorhub/internal/handler"
	"curatorhub/internal/httpserver"
	"curatorhub/internal/hub"
	"curatorhub/internal/mqhandler"
	"curatorhub/internal/repository"
	"curatorhub/internal/service/auth"
	"curatorhub/internal/service/content"
	"curatorhub/internal/service/dashboard"
	"curatorhub/internal/service/task"
	pkgconfig "curatorhub/pkg/config"
	"curatorhub/pkg/db"
	"curatorhub/pkg/logger"
	"curatorhub/pkg/mq"
	"curatorhub/pkg/otel"
	"curatorhub/pkg/outbox"
	"curatorhub/pkg/redis"
	"curatorhub/pkg/util"
)

const (
	dashboardQueue = "curatorhub.dashboard"
	dedupTTL       = 24 * time.Hour
	retryTTL       = time.Hour
)

func main() {
	log := logger.NewLogger(pkgconfig.GetConfigEnv())
	defer log.Sync()

	cfg, err := config.Load(
		pkgconfig.GetEnv("CONFIG_FILE", "config.yaml"),
		pkgconfig.GetEnv("CONFIG_DIR", "config"),
	)
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("JWT secret is not configured")
	}

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName:    cfg.Otel.ServiceName,
		ServiceVersion: cfg.Otel.ServiceVersion,
		Endpoint:       cfg.Otel.Endpoint,
		Insecure:       cfg.Otel.Insecure,
		Enabled:        cfg.Otel.Endpoint != "",
	}, log)
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}
	defer shutdownTracing()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis
	rdb, err := redis.NewRedisClient(cfg.Redis, log)
	if err != nil {
		log.Fatal("Redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, log)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	userRepo := repository.NewUserRepository(dbConn, log)
	projectRepo := repository.NewProjectRepository(dbConn, log)
	taskRepo := repository.NewTaskRepository(dbConn, log)
	contentRepo := repository.NewContentRepository(dbConn, log)
	outboxRepo := outbox.NewRepository(dbConn)

	// Services
	deduper := util.NewDeduper(rdb, dedupTTL, log)
	scheduleCache := dashboard.NewRedisScheduleCache(rdb, cfg.Cache.ScheduleTTL(), log)

	authService := auth.NewService(userRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.TTLHours)*time.Hour, log)
	taskService := task.NewService(taskRepo, projectRepo, log)
	dashboardService := dashboard.NewService(taskRepo, projectRepo, scheduleCache, publisher, log)
	contentService := content.NewService(ai.NewClient(cfg.AI, log), contentRepo, taskRepo, deduper, log)
	replayService := outbox.NewReplayService(outboxRepo, publisher, log)

	// Live dashboard updates: broker events feed the in-process hub
	dashboardHub := hub.New(log)
	mqRouter := mq.NewRouter(log)
	mqhandler.NewDashboardHandler(dashboardService, dashboardHub, log).Register(mqRouter)

	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, dashboardQueue, mqRouter, log)
	if err != nil {
		log.Fatal("Failed to init MQ consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetRetryTracker(util.NewRetryCounter(rdb, retryTTL), mq.DefaultMaxRetries)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Consumer stopped", zap.Error(err))
		}
	}()

	// Router
	router := httpserver.NewRouter(httpserver.Handlers{
		Auth:      handler.NewAuthHandler(authService, log),
		Dashboard: handler.NewDashboardHandler(dashboardService, log),
		Task:      handler.NewTaskHandler(taskService, log),
		Content:   handler.NewContentHandler(contentService, log),
		Admin:     handler.NewAdminHandler(replayService, log),
		Events:    handler.NewEventsHandler(dashboardHub, 0, log),
	}, httpserver.Options{
		JWTSecret:   cfg.JWT.Secret,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      log,
		Ready: []httpserver.ReadyCheck{
			{Name: "db", Ping: dbConn.Ping},
			{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
			{Name: "mq", Ping: func(context.Context) error {
				if !publisher.IsConnected() {
					return errors.New("publisher disconnected")
				}
				return nil
			}},
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts derive from ctx so cancel() ends open event streams.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down curatorhub server gracefully...")
	cancel()
	dashboardHub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("curatorhub server shutdown complete")
}
