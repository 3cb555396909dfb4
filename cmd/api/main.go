package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/cache"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/capture"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/chzzk"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/config"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/controller"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/credentials"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/database"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/engine"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/events"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/logging"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/metrics"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/middleware"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/queue"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/storage"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/tracing"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/transcoder"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/webhook"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	if err := os.MkdirAll(cfg.Downloader.DataDir, 0755); err != nil {
		logger.Fatalf("Failed to create data dir: %v", err)
	}

	// Tracing
	_, tracerCloser, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		logger.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer tracerCloser.Close()

	// Metrics server
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port, logger)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server failed", err)
			}
		}()
	}

	var closers []io.Closer
	var checks []healthCheck

	// Event bus
	var bus events.Bus
	switch cfg.Events.Backend {
	case config.BackendRedis:
		redisBus, err := events.NewRedisBus(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("Failed to connect event bus: %v", err)
		}
		bus = redisBus
	default:
		bus = events.NewMemoryBus()
	}

	// Credential store
	var store credentials.Store
	switch cfg.Credentials.Backend {
	case config.BackendRedis:
		redisStore, err := credentials.NewRedisStore(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("Failed to connect credential store: %v", err)
		}
		closers = append(closers, redisStore)
		store = redisStore
	default:
		store = credentials.NewFileStore(cfg.Downloader.DataDir)
	}

	surface := capture.NewSurface(store, bus, logger)

	client := chzzk.NewClient(chzzk.Config{
		APIBaseURL:        cfg.Downloader.APIBaseURL,
		PlaybackBaseURL:   cfg.Downloader.PlaybackBaseURL,
		UserAgent:         cfg.Downloader.UserAgent,
		RequestsPerSecond: cfg.Downloader.RequestsPerSecond,
		Timeout:           cfg.Downloader.RequestTimeout,
	}, logger)

	ffmpeg := transcoder.NewFFmpeg(cfg.FFmpeg.Path, cfg.Downloader.DataDir, nil, logger)

	ctx := context.Background()
	var opts []engine.Option

	// Optional sinks
	if cfg.Redis.Enabled {
		metaCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL)
		if err != nil {
			logger.Fatalf("Failed to connect cache: %v", err)
		}
		closers = append(closers, metaCache)
		checks = append(checks, healthCheck{name: "redis", ping: metaCache.Ping})
		opts = append(opts, engine.WithCache(metaCache))
	}

	if cfg.Storage.Enabled {
		archive, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			logger.Fatalf("Failed to initialize storage: %v", err)
		}
		opts = append(opts, engine.WithArchive(archive))
	}

	var history historyLister
	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
		repo := database.NewHistoryRepository(db)
		history = repo
		checks = append(checks, healthCheck{name: "database", ping: db.Health})
		opts = append(opts, engine.WithHistory(repo))
	}

	if cfg.Queue.Enabled {
		notifier, err := queue.New(cfg.Queue)
		if err != nil {
			logger.Fatalf("Failed to connect to queue: %v", err)
		}
		closers = append(closers, notifier)
		opts = append(opts, engine.WithNotifier(notifier))
	}

	if cfg.Webhook.Enabled {
		opts = append(opts, engine.WithNotifier(webhook.New(cfg.Webhook, logger)))
	}

	eng := engine.New(engine.Config{
		SegmentConcurrency: cfg.Downloader.SegmentConcurrency,
		SegmentTimeout:     cfg.Downloader.SegmentTimeout,
		InstallURL:         cfg.FFmpeg.InstallURL,
	}, client, ffmpeg, store, surface, bus, logger, opts...)

	ctrl := controller.New(controller.Config{
		QuietPeriod: cfg.Downloader.QuietPeriod,
		OutputDir:   cfg.Downloader.OutputDir,
	}, eng, bus, logger)

	hub := newViewHub()
	ctrl.SetUpdateCallback(hub.publish)

	if err := ctrl.Start(); err != nil {
		logger.Fatalf("Failed to start controller: %v", err)
	}

	api := &API{
		ctrl:    ctrl,
		surface: surface,
		history: history,
		hub:     hub,
		checks:  checks,
		logger:  logger.WithComponent("api"),
	}

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst)
	}
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	if limiter != nil {
		go limiter.Cleanup(cleanupCtx, time.Minute)
	}

	gin.SetMode(gin.ReleaseMode)
	router := setupRouter(api, cfg.Server.JWTSecret, limiter, logger)

	// event streams stay open, so the write timeout is normally zero
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	hub.close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr("Server forced to shutdown", err)
	}
	if err := ctrl.Close(); err != nil {
		logger.ErrorWithErr("Failed to close controller", err)
	}
	// archive, history and notifier deliveries still in flight
	eng.Wait()
	surface.Close()
	if err := bus.Close(); err != nil {
		logger.ErrorWithErr("Failed to close event bus", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.ErrorWithErr("Failed to close resource", err)
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorWithErr("Failed to stop metrics server", err)
		}
	}

	logger.Info("Server stopped")
}
