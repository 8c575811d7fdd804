package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"inquiry-classifier/configs"
	"inquiry-classifier/internal/app/handlers"
	"inquiry-classifier/internal/app/server"
	"inquiry-classifier/internal/eino/callbacks"
	"inquiry-classifier/internal/eino/flows"
	"inquiry-classifier/internal/events"
	"inquiry-classifier/internal/infrastructure/cache"
	"inquiry-classifier/internal/infrastructure/persistence"
	"inquiry-classifier/internal/infrastructure/ratelimit"
	"inquiry-classifier/internal/llm"
	"inquiry-classifier/pkg/logger"
)

// main 主函数 - 应用程序入口点
func main() {
	// 创建根上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 创建早期logger（使用默认配置）
	earlyLogger := logger.Default()

	// 初始化应用程序
	if err := initializeApplication(ctx, earlyLogger); err != nil {
		earlyLogger.ErrorContext(ctx, "应用程序初始化失败", "error", err)
		os.Exit(1)
	}
}

// initializeApplication 初始化应用程序
func initializeApplication(ctx context.Context, earlyLogger logger.Logger) error {

	// 1. 加载配置
	config, err := configs.Load(ctx)
	if err != nil {
		return fmt.Errorf("配置加载失败: %w", err)
	}

	earlyLogger.InfoContext(ctx, "配置加载成功",
		"server_port", config.Server.Port,
		"cache_enabled", config.Cache.Enabled,
		"llm_model", config.LLM.Model)

	// 2. 初始化日志服务
	appLogger, err := initializeLogger(config.Logging)
	if err != nil {
		return fmt.Errorf("日志服务初始化失败: %w", err)
	}

	appLogger.InfoContext(ctx, "日志服务初始化完成")

	// 3. 初始化存储层（未配置 Redis 时退化为进程内实现）
	cacheStore, auditStore, memoryCache, err := initializeStores(ctx, config, appLogger)
	if err != nil {
		return fmt.Errorf("存储层初始化失败: %w", err)
	}
	defer cacheStore.Close()
	defer auditStore.Close()

	// 4. 初始化分类流水线
	tier := cache.NewTierManager(cacheStore, cache.TierConfig{
		KeyPrefix: config.Cache.KeyPrefix,
		HighTTL:   config.Cache.HighTTL,
		MediumTTL: config.Cache.MediumTTL,
	}, appLogger)
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: config.RateLimit.RequestsPerMinute,
		Burst:             config.RateLimit.Burst,
	})
	hub := events.NewHub()
	classifier := llm.NewAnthropicClassifier(llm.AnthropicConfig{
		APIKey:       config.LLM.APIKey,
		Model:        config.LLM.Model,
		MaxTokens:    config.LLM.MaxTokens,
		Timeout:      config.LLM.Timeout,
		ModelVersion: config.LLM.ModelVersion,
	}, appLogger)

	callbackFactory := callbacks.NewFactory(&config.Callbacks, appLogger)
	graph := flows.NewClassifyGraph(
		tier, limiter, classifier, hub, auditStore, config, appLogger,
		callbackFactory.CreateHandlers()...,
	).WithMetrics(callbackFactory.GetMetricsHandler())

	classifyService, err := flows.NewClassifyService(ctx, graph)
	if err != nil {
		return fmt.Errorf("分类流水线初始化失败: %w", err)
	}
	appLogger.InfoContext(ctx, "分类流水线编译完成")

	// 5. 启动后台清扫任务
	scheduler, err := startSweepJobs(config, limiter, memoryCache, appLogger)
	if err != nil {
		return fmt.Errorf("后台任务初始化失败: %w", err)
	}
	defer scheduler.Stop()

	// 6. 初始化应用层
	handler := handlers.NewClassifyHandler(classifyService, auditStore, callbackFactory.GetMetricsHandler(), appLogger)
	httpServer := server.NewServer(config, handler, appLogger)

	// 7. 启动服务并等待停止信号
	return runApplication(ctx, httpServer, appLogger)
}

// initializeLogger 初始化日志服务
func initializeLogger(config configs.LoggingConfig) (logger.Logger, error) {
	// 解析日志级别
	var level slog.Level
	switch config.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// 创建日志配置
	loggerConfig := logger.Config{
		Level:  level,
		Output: config.Output,
		Format: config.Format,
	}

	if config.Output == "file" {
		loggerConfig.FilePath = config.FilePath
	}

	return logger.New(loggerConfig), nil
}

// initializeStores 初始化缓存与审计存储。
// 配置了 Redis 地址时使用 Redis 后端，否则使用进程内实现。
// 返回的第三个值是进程内缓存实例（仅进程内模式非nil），供清扫任务使用。
func initializeStores(ctx context.Context, config *configs.Config, log logger.Logger) (cache.Store, persistence.AuditStore, *cache.MemoryStore, error) {
	if config.Redis.Addr == "" {
		log.InfoContext(ctx, "未配置Redis，使用进程内存储")
		memoryCache := cache.NewMemoryStore()
		return memoryCache, persistence.NewMemoryAuditStore(), memoryCache, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Redis.Addr,
		Password:     config.Redis.Password,
		DB:           config.Redis.DB,
		DialTimeout:  config.Redis.Timeout,
		ReadTimeout:  config.Redis.Timeout,
		WriteTimeout: config.Redis.Timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, config.Redis.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("redis连接失败: %w", err)
	}

	log.InfoContext(ctx, "Redis连接成功", "addr", config.Redis.Addr)
	return cache.NewRedisStore(client), persistence.NewRedisAuditStore(client), nil, nil
}

// startSweepJobs 注册并启动后台清扫任务。
// 限流器空闲桶回收始终运行；进程内缓存过期清扫仅进程内模式运行。
func startSweepJobs(config *configs.Config, limiter *ratelimit.Limiter, memoryCache *cache.MemoryStore, log logger.Logger) (*cron.Cron, error) {
	scheduler := cron.New()

	_, err := scheduler.AddFunc(config.RateLimit.SweepSchedule, func() {
		removed := limiter.Sweep(config.RateLimit.IdleWindow)
		if removed > 0 {
			log.Debug("限流器空闲桶回收完成", "removed", removed, "active", limiter.Size())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("注册限流清扫任务失败: %w", err)
	}

	if memoryCache != nil {
		_, err = scheduler.AddFunc(config.Cache.SweepSchedule, func() {
			removed := memoryCache.Sweep()
			if removed > 0 {
				log.Debug("进程内缓存过期清扫完成", "removed", removed, "remaining", memoryCache.Len())
			}
		})
		if err != nil {
			return nil, fmt.Errorf("注册缓存清扫任务失败: %w", err)
		}
	}

	scheduler.Start()
	return scheduler, nil
}

// runApplication 运行应用程序，监听停止信号
// 此函数会阻塞直到收到停止信号或上下文取消
func runApplication(ctx context.Context, httpServer *server.Server, log logger.Logger) error {
	// 创建信号通道
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	// 启动HTTP服务器（非阻塞）
	if err := httpServer.Start(ctx); err != nil {
		return fmt.Errorf("HTTP服务器启动失败: %w", err)
	}

	// 等待停止信号或上下文取消
	select {
	case sig := <-signalChan:
		log.InfoContext(ctx, "收到停止信号，开始优雅关闭", "signal", sig.String())
		return gracefulShutdown(ctx, httpServer, log)

	case <-ctx.Done():
		log.InfoContext(ctx, "上下文取消，开始优雅关闭")
		return gracefulShutdown(ctx, httpServer, log)
	}
}

// gracefulShutdown 执行优雅关闭
func gracefulShutdown(ctx context.Context, httpServer *server.Server, log logger.Logger) error {
	log.InfoContext(ctx, "开始执行优雅关闭流程")

	// 创建带超时的关闭上下文
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 执行HTTP服务器优雅关闭
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(ctx, "HTTP服务器关闭失败", "error", err)
		return fmt.Errorf("HTTP服务器关闭失败: %w", err)
	}

	log.InfoContext(ctx, "优雅关闭完成")
	return nil
}
