package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fitlog/backend/internal/config"
	"fitlog/backend/internal/health"
	"fitlog/backend/internal/logger"
	"fitlog/backend/internal/monitoring"
	"fitlog/backend/internal/ratelimit"
	"fitlog/backend/internal/service"
	"fitlog/backend/internal/staging"
	"fitlog/backend/internal/storage"
	"fitlog/backend/internal/storage/filesystem"
	"fitlog/backend/internal/storage/memory"
	"fitlog/backend/internal/storage/objectstore"
	"fitlog/backend/internal/storage/redis"
	httptransport "fitlog/backend/internal/transport/http"
	"fitlog/backend/internal/webhook"
)

const (
	// 暂存文件保留时间
	stagingMaxAge = 24 * time.Hour

	stagingWorkers   = 4
	stagingQueueSize = 64
)

// main 启动建议中继服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.FromLogConfig("relay", cfg.Log))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting suggestion relay",
		zap.String("app", cfg.Relay.AppName),
		zap.String("version", cfg.Relay.AppVersion),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	metrics := monitoring.NewMetrics()
	healthChecker := health.NewHealthChecker(log)

	// 限流存储：配置了 Redis 时多实例共享计数，否则使用进程内存储
	var rateStore storage.RateLimitRepository
	if cfg.Redis.Address != "" {
		rdb, err := redis.New(cfg.Redis, log)
		if err != nil {
			log.Fatal("failed to initialize redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()

		rateStore = rdb
		healthChecker.AddReadinessCheck("redis", health.PingCheck(rdb))
	} else {
		mem := memory.NewStore()
		rateStore = mem
		log.Info("using in-process rate limit store")

		group.Go(func() error {
			return runPeriodic(groupCtx, log, "rate limit cleanup", 10*time.Minute, func() {
				if n := mem.CleanupExpired(); n > 0 {
					log.Debug("expired rate limit entries removed", zap.Int("count", n))
				}
			})
		})
	}

	// 附件暂存
	uploads, err := initializeStaging(ctx, cfg, healthChecker, group, groupCtx, log)
	if err != nil {
		log.Fatal("failed to initialize staging", zap.Error(err))
	}
	stager := staging.New(groupCtx, uploads, stagingWorkers, stagingQueueSize, log).WithObserver(metrics)
	defer stager.Close()

	sender := webhook.New(cfg.Relay.WebhookURL, webhook.Options{
		Timeout: cfg.Relay.WebhookTimeout,
		RPS:     cfg.Relay.WebhookRPS,
		Burst:   cfg.Relay.WebhookBurst,
	}, log)

	suggestions := service.NewSuggestionService(cfg.Relay, sender, stager, metrics, log)
	limiter := ratelimit.New(rateStore, cfg.Relay.RateLimit, cfg.Relay.RateWindow, log)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:      cfg,
		Suggestions: suggestions,
		Limiter:     limiter,
		Metrics:     metrics,
		Health:      healthChecker,
		Logger:      log,
	})

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2*cfg.Relay.WebhookTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server",
			zap.String("address", httpAddr),
			zap.String("path", cfg.Relay.Path),
			zap.Int("rate_limit", cfg.Relay.RateLimit),
			zap.Duration("rate_window", cfg.Relay.RateWindow),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// initializeStaging 根据配置创建暂存后端并注册健康检查
func initializeStaging(ctx context.Context, cfg *config.Config, hc *health.HealthChecker, group *errgroup.Group, groupCtx context.Context, log *zap.Logger) (storage.UploadRepository, error) {
	switch cfg.Staging.Backend {
	case "minio":
		store, err := objectstore.New(cfg.MinIO)
		if err != nil {
			return nil, err
		}

		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := store.EnsureBucket(initCtx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", cfg.MinIO.Bucket, err)
		}

		hc.AddReadinessCheck("staging", health.PingCheck(store))
		log.Info("object storage staging initialized",
			zap.String("endpoint", cfg.MinIO.Endpoint),
			zap.String("bucket", cfg.MinIO.Bucket),
		)
		return store, nil

	default:
		store, err := filesystem.NewStore(cfg.Staging.Path)
		if err != nil {
			return nil, err
		}

		hc.AddReadinessCheck("staging", health.WritableCheck(store.CheckWritable))
		log.Info("filesystem staging initialized", zap.String("path", store.BasePath()))

		// 定时清理过期暂存文件
		group.Go(func() error {
			return runPeriodic(groupCtx, log, "staging cleanup", time.Hour, func() {
				count, err := store.CleanupExpired(stagingMaxAge)
				if err != nil {
					log.Error("failed to cleanup staged uploads", zap.Error(err))
				} else if count > 0 {
					log.Info("staged uploads cleaned up", zap.Int("count", count))
				}
			})
		})
		return store, nil
	}
}

// runPeriodic 按固定间隔执行任务，直到 ctx 结束
func runPeriodic(ctx context.Context, log *zap.Logger, name string, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("starting periodic task", zap.String("task", name), zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			log.Info("periodic task stopped", zap.String("task", name))
			return nil
		case <-ticker.C:
			fn()
		}
	}
}
