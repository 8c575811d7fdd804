// Package callbacks 提供 Eino Callback 处理器实现
package callbacks

import (
	"github.com/cloudwego/eino/callbacks"

	"inquiry-classifier/configs"
	"inquiry-classifier/pkg/logger"
)

// Factory Callback 工厂。
// 指标处理器为单例，统计接口与流水线共享同一收集器。
type Factory struct {
	cfg     *configs.CallbacksConfig
	logger  logger.Logger
	metrics *MetricsHandler
}

// NewFactory 创建 Callback 工厂
func NewFactory(cfg *configs.CallbacksConfig, log logger.Logger) *Factory {
	return &Factory{
		cfg:     cfg,
		logger:  log,
		metrics: NewMetricsHandler(&cfg.Metrics),
	}
}

// CreateHandlers 创建所有启用的 Callback 处理器
func (f *Factory) CreateHandlers() []callbacks.Handler {
	handlers := make([]callbacks.Handler, 0)

	// 日志回调
	if f.cfg.Logging.Enabled {
		handlers = append(handlers, NewLoggingHandler(f.logger, &f.cfg.Logging))
	}

	// 指标回调
	if f.cfg.Metrics.Enabled {
		handlers = append(handlers, f.metrics)
	}

	// 链路追踪回调
	if f.cfg.Tracing.Enabled {
		handlers = append(handlers, NewTracingHandler(&f.cfg.Tracing, f.logger))
	}

	return handlers
}

// GetLoggingHandler 获取日志回调处理器
func (f *Factory) GetLoggingHandler() callbacks.Handler {
	if !f.cfg.Logging.Enabled {
		return nil
	}
	return NewLoggingHandler(f.logger, &f.cfg.Logging)
}

// GetMetricsHandler 获取指标回调处理器单例
func (f *Factory) GetMetricsHandler() *MetricsHandler {
	return f.metrics
}

// GetTracingHandler 获取链路追踪回调处理器
func (f *Factory) GetTracingHandler() callbacks.Handler {
	if !f.cfg.Tracing.Enabled {
		return nil
	}
	return NewTracingHandler(&f.cfg.Tracing, f.logger)
}
