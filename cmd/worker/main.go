package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"curatorhub/config"
	"curatorhub/internal/repository"
	"curatorhub/internal/service/dashboard"
	"curatorhub/internal/service/runner"
	pkgconfig "curatorhub/pkg/config"
	"curatorhub/pkg/db"
	"curatorhub/pkg/logger"
	"curatorhub/pkg/mq"
	"curatorhub/pkg/otel"
	"curatorhub/pkg/outbox"
	"curatorhub/pkg/redis"
	"curatorhub/pkg/util"
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

	log.Info("Starting curatorhub worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("schedule_interval_sec", cfg.Runner.ScheduleIntervalSec),
		zap.Int("overdue_interval_sec", cfg.Runner.OverdueIntervalSec),
	)

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName:    cfg.Otel.ServiceName + "-worker",
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
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis
	rdb, err := redis.NewRedisClient(cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, log)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	taskRepo := repository.NewTaskRepository(dbConn, log)
	projectRepo := repository.NewProjectRepository(dbConn, log)

	scheduleCache := dashboard.NewRedisScheduleCache(rdb, cfg.Cache.ScheduleTTL(), log)
	dashboardService := dashboard.NewService(taskRepo, projectRepo, scheduleCache, publisher, log)
	orchestrator := runner.NewOrchestrator(taskRepo, dashboardService, publisher, util.NewDeduper(rdb, 48*time.Hour, log), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Outbox Dispatcher
	dispatcher := outbox.NewDispatcher(outbox.NewRepository(dbConn), publisher, log).
		WithInterval(time.Duration(cfg.Runner.OutboxIntervalMs) * time.Millisecond).
		WithBatchSize(cfg.Runner.OutboxBatchSize).
		WithMaxRetries(cfg.Runner.OutboxMaxRetries)
	go dispatcher.Start(ctx)

	go every(ctx, log, "schedule refresh", time.Duration(cfg.Runner.ScheduleIntervalSec)*time.Second, func(ctx context.Context) error {
		n, err := orchestrator.RefreshSchedules(ctx)
		log.Info("Schedules refreshed", zap.Int("users", n))
		return err
	})
	go every(ctx, log, "overdue check", time.Duration(cfg.Runner.OverdueIntervalSec)*time.Second, func(ctx context.Context) error {
		n, err := orchestrator.NotifyOverdue(ctx)
		log.Info("Overdue notifications published", zap.Int("count", n))
		return err
	})

	// HTTP Server (for health checks and metrics)
	port := pkgconfig.GetEnv("WORKER_PORT", "8081")
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("curatorhub worker is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down curatorhub worker gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("curatorhub worker shutdown complete")
}

// every runs job immediately and then on each tick until ctx is done.
func every(ctx context.Context, log *zap.Logger, name string, interval time.Duration, job func(context.Context) error) {
	run := func() {
		if err := job(ctx); err != nil {
			log.Error("Periodic job failed", zap.String("job", name), zap.Error(err))
		}
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Periodic job stopped", zap.String("job", name))
			return
		case <-ticker.C:
			run()
		}
	}
}
