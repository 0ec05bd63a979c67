package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"verdict/internal/common/cache"
	"verdict/internal/common/mq"
	"verdict/internal/common/storage"
	"verdict/internal/judge/catalog"
	"verdict/internal/judge/comparator"
	"verdict/internal/judge/controller"
	"verdict/internal/judge/lang"
	"verdict/internal/judge/repository"
	"verdict/internal/judge/sandbox/engine"
	"verdict/internal/judge/service"
	"verdict/pkg/utils/logger"
)

const defaultConfigPath = "configs/judge_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	baseCatalog, err := buildCatalog(appCfg)
	if err != nil {
		logger.Error(context.Background(), "init problem catalog failed", zap.Error(err))
		return
	}
	problemCatalog := catalog.NewCachedCatalog(baseCatalog, redisCache, appCfg.Catalog.CacheTTL)

	eng, err := engine.NewEngine(appCfg.Sandbox.toEngineConfig())
	if err != nil {
		logger.Error(context.Background(), "init sandbox engine failed", zap.Error(err))
		return
	}

	languages, err := lang.NewRegistry(appCfg.Languages)
	if err != nil {
		logger.Error(context.Background(), "init language registry failed", zap.Error(err))
		return
	}

	judgeSvc := service.NewJudgeService(eng, problemCatalog, languages, comparator.NewRegistry(), appCfg.Judge.DefaultLimits).
		WithResultRepository(repository.NewRedisResultRepository(redisCache, appCfg.Judge.ResultTTL))

	if appCfg.Kafka.Enabled {
		producer, err := mq.NewKafkaProducer(appCfg.Kafka.KafkaConfig)
		if err != nil {
			logger.Error(context.Background(), "init kafka producer failed", zap.Error(err))
			return
		}
		defer func() {
			_ = producer.Close()
		}()
		judgeSvc.WithPublisher(repository.NewVerdictPublisher(producer, appCfg.Kafka.Topic))
	}

	httpServer := buildHTTPServer(appCfg.Server, judgeSvc, redisCache)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "judge http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildCatalog(appCfg *AppConfig) (catalog.ProblemCatalog, error) {
	switch appCfg.Catalog.Source {
	case catalogSourceMinIO:
		objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			return nil, err
		}
		return catalog.NewPackCatalog(appCfg.Catalog.Bucket, objStorage)
	default:
		return catalog.NewFSCatalog(appCfg.Catalog.Dir)
	}
}

func buildHTTPServer(cfg ServerConfig, judgeSvc *service.JudgeService, redisCache cache.Cache) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		if err := redisCache.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	controller.NewJudgeController(judgeSvc).RegisterRoutes(api)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
