package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rocket-backend/internal/config"
	"rocket-backend/internal/generator"
	"rocket-backend/internal/handler"
	"rocket-backend/internal/service"
	"rocket-backend/internal/storage"
	"rocket-backend/internal/telemetry"
	"rocket-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx := context.Background()

	tracing, err := telemetry.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatalf("Failed to init tracing: %v", err)
	}

	store := storage.New(cfg)

	// 初始化生成服务
	pool, err := generator.NewProviderPoolFromConfig(ctx, cfg.Providers)
	if err != nil {
		logger.Fatalf("Failed to init providers: %v", err)
	}
	if pool.Len() == 0 {
		logger.Warn("没有配置任何可用的 AI 服务商，生成请求将全部失败")
	} else {
		logger.Infof("AI 服务商: %v", pool.Names())
	}

	cache := generator.NewPhraseCache(cfg.Generation.CacheTTL, cfg.Generation.CacheCleanupInterval)
	gen := generator.New(pool, cache, generator.Options{
		Timeout: cfg.Generation.Timeout,
		Tracer:  tracing.Tracer(),
	})
	simulator := generator.NewChatSimulator(cache, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))

	dashboardService := service.NewDashboardService(cfg, store, gen)

	// 初始化处理器
	dashboardHandler := handler.NewDashboardHandler(dashboardService, simulator)
	healthHandler := handler.NewHealthHandler(cfg.Providers, cache, dashboardService)

	// 创建路由
	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(cfg, dashboardHandler, healthHandler)

	// 创建HTTP服务器
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// 启动服务器
	go func() {
		logger.Infof("服务器启动在端口 %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待信号优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务器正在关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// SSE 连接不会主动结束，超时后强制关闭
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("等待连接结束超时: %v", err)
		if err := server.Close(); err != nil {
			logger.Errorf("服务器关闭失败: %v", err)
		}
	}
	if err := dashboardService.Close(); err != nil {
		logger.Errorf("会话关闭失败: %v", err)
	}
	if err := store.Close(); err != nil {
		logger.Errorf("存储关闭失败: %v", err)
	}
	if err := tracing.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Tracing 关闭失败: %v", err)
	}
	logger.Info("服务器已关闭")
}
