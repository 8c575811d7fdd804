package server

import (
	"github.com/gin-gonic/gin"

	"inquiry-classifier/configs"
	"inquiry-classifier/internal/app/handlers"
	"inquiry-classifier/internal/app/middleware"
	"inquiry-classifier/pkg/logger"
)

// SetupRoutes 配置并注册 HTTP 服务器的所有路由规则。
// 健康检查不需要认证，统计接口额外要求管理员角色。
// 参数 engine: Gin 引擎实例。
// 参数 handler: 业务逻辑处理器。
// 参数 config: 应用配置。
// 参数 log: 日志记录器。
func SetupRoutes(engine *gin.Engine, handler *handlers.ClassifyHandler, config *configs.Config, log logger.Logger) {
	// 应用全局中间件
	setupMiddleware(engine, log)

	// 设置API路由组
	v1 := engine.Group("/v1")
	inquiries := v1.Group("/inquiries")

	// 健康检查 - 无需认证
	inquiries.GET("/health", handler.HealthCheck)

	// 业务路由 - JWT认证
	authed := inquiries.Group("")
	authed.Use(middleware.AuthMiddleware(&config.Auth, log))

	// 分类询盘文本
	authed.POST("/classify", handler.Classify)
	// 获取分类统计信息 - 仅管理员
	authed.GET("/statistics", middleware.RequireRole(middleware.RoleAdmin), handler.GetStatistics)
	// 根据ID获取分类审计记录
	authed.GET("/:inquiry_id", handler.GetInquiry)
}

// setupMiddleware 设置全局中间件
func setupMiddleware(engine *gin.Engine, log logger.Logger) {
	// 设置恢复中间件 - 捕获panic并返回500错误
	engine.Use(gin.Recovery())

	// 设置日志中间件 - 记录请求日志并生成请求ID
	loggingConfig := &middleware.LoggingConfig{
		// 跳过健康检查路径的日志记录，减少日志噪音
		SkipPaths: []string{
			"/v1/inquiries/health",
		},
		Logger: log,
	}
	engine.Use(middleware.LoggingMiddleware(loggingConfig))
}
