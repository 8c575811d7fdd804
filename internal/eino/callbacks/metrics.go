// Package callbacks 提供 Eino Callback 处理器实现
package callbacks

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"

	"inquiry-classifier/configs"
	"inquiry-classifier/internal/domain/models"
)

// MetricsHandler 指标回调处理器。
// 除通用的节点调用计数与延迟外，还累计分类业务指标，
// 统计接口直接消费其快照。
type MetricsHandler struct {
	cfg     *configs.MetricsCallbackConfig
	metrics *MetricsCollector
}

// MetricsCollector 指标收集器
type MetricsCollector struct {
	mu sync.RWMutex

	// 调用计数
	TotalCalls      int64
	SuccessfulCalls int64
	FailedCalls     int64

	// 延迟统计
	TotalLatencyMs int64
	NodeLatency    map[string]*LatencyStats

	// 节点调用计数
	NodeCalls map[string]int64

	// 分类业务指标
	Classifications int64
	CacheHits       int64
	FallbacksUsed   int64
	RateLimited     int64
	ByCategory      map[models.Category]int64
}

// LatencyStats 延迟统计
type LatencyStats struct {
	Count   int64
	TotalMs int64
	MinMs   int64
	MaxMs   int64
}

// NewMetricsHandler 创建指标回调处理器
func NewMetricsHandler(cfg *configs.MetricsCallbackConfig) *MetricsHandler {
	return &MetricsHandler{
		cfg: cfg,
		metrics: &MetricsCollector{
			NodeLatency: make(map[string]*LatencyStats),
			NodeCalls:   make(map[string]int64),
			ByCategory:  make(map[models.Category]int64),
		},
	}
}

// OnStart 节点开始执行时调用
func (h *MetricsHandler) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if !h.cfg.Enabled {
		return ctx
	}

	h.metrics.mu.Lock()
	h.metrics.TotalCalls++
	h.metrics.NodeCalls[info.Name]++
	h.metrics.mu.Unlock()

	return context.WithValue(ctx, metricsStartTimeKey, time.Now())
}

// OnEnd 节点执行完成时调用
func (h *MetricsHandler) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if !h.cfg.Enabled {
		return ctx
	}

	startTime, ok := ctx.Value(metricsStartTimeKey).(time.Time)
	if !ok {
		return ctx
	}

	durationMs := time.Since(startTime).Milliseconds()

	h.metrics.mu.Lock()
	defer h.metrics.mu.Unlock()

	h.metrics.SuccessfulCalls++
	h.metrics.TotalLatencyMs += durationMs

	stats, exists := h.metrics.NodeLatency[info.Name]
	if !exists {
		stats = &LatencyStats{
			MinMs: durationMs,
			MaxMs: durationMs,
		}
		h.metrics.NodeLatency[info.Name] = stats
	}

	stats.Count++
	stats.TotalMs += durationMs
	if durationMs < stats.MinMs {
		stats.MinMs = durationMs
	}
	if durationMs > stats.MaxMs {
		stats.MaxMs = durationMs
	}

	return ctx
}

// OnError 节点执行出错时调用
func (h *MetricsHandler) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	if !h.cfg.Enabled {
		return ctx
	}

	h.metrics.mu.Lock()
	h.metrics.FailedCalls++
	h.metrics.mu.Unlock()

	return ctx
}

// OnStartWithStreamInput 流式输入开始时调用
func (h *MetricsHandler) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	return h.OnStart(ctx, info, nil)
}

// OnEndWithStreamOutput 流式输出结束时调用
func (h *MetricsHandler) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	return h.OnEnd(ctx, info, nil)
}

// RecordClassification 累计一次完成的分类。
// 由编排层在结果确定后调用。
func (h *MetricsHandler) RecordClassification(result *models.ClassificationResult, cacheHit bool) {
	if !h.cfg.Enabled {
		return
	}

	h.metrics.mu.Lock()
	defer h.metrics.mu.Unlock()

	h.metrics.Classifications++
	h.metrics.ByCategory[result.PrimaryCategory]++
	if cacheHit {
		h.metrics.CacheHits++
	}
	if result.FallbackUsed {
		h.metrics.FallbacksUsed++
	}
}

// RecordRateLimited 累计一次限流拒绝。
func (h *MetricsHandler) RecordRateLimited() {
	if !h.cfg.Enabled {
		return
	}

	h.metrics.mu.Lock()
	h.metrics.RateLimited++
	h.metrics.mu.Unlock()
}

// GetMetrics 获取当前指标快照
func (h *MetricsHandler) GetMetrics() map[string]interface{} {
	h.metrics.mu.RLock()
	defer h.metrics.mu.RUnlock()

	avgLatency := int64(0)
	if h.metrics.SuccessfulCalls > 0 {
		avgLatency = h.metrics.TotalLatencyMs / h.metrics.SuccessfulCalls
	}

	nodeStats := make(map[string]interface{})
	for name, stats := range h.metrics.NodeLatency {
		avgMs := int64(0)
		if stats.Count > 0 {
			avgMs = stats.TotalMs / stats.Count
		}
		nodeStats[name] = map[string]interface{}{
			"count":  stats.Count,
			"avg_ms": avgMs,
			"min_ms": stats.MinMs,
			"max_ms": stats.MaxMs,
		}
	}

	byCategory := make(map[string]int64, len(h.metrics.ByCategory))
	for category, count := range h.metrics.ByCategory {
		byCategory[string(category)] = count
	}

	cacheHitRate := 0.0
	if h.metrics.Classifications > 0 {
		cacheHitRate = float64(h.metrics.CacheHits) / float64(h.metrics.Classifications)
	}

	return map[string]interface{}{
		"total_calls":      h.metrics.TotalCalls,
		"successful_calls": h.metrics.SuccessfulCalls,
		"failed_calls":     h.metrics.FailedCalls,
		"avg_latency_ms":   avgLatency,
		"node_stats":       nodeStats,
		"node_calls":       h.metrics.NodeCalls,
		"classifications":  h.metrics.Classifications,
		"cache_hits":       h.metrics.CacheHits,
		"cache_hit_rate":   cacheHitRate,
		"fallbacks_used":   h.metrics.FallbacksUsed,
		"rate_limited":     h.metrics.RateLimited,
		"by_category":      byCategory,
	}
}

// Reset 重置指标
func (h *MetricsHandler) Reset() {
	h.metrics.mu.Lock()
	defer h.metrics.mu.Unlock()

	h.metrics.TotalCalls = 0
	h.metrics.SuccessfulCalls = 0
	h.metrics.FailedCalls = 0
	h.metrics.TotalLatencyMs = 0
	h.metrics.NodeLatency = make(map[string]*LatencyStats)
	h.metrics.NodeCalls = make(map[string]int64)
	h.metrics.Classifications = 0
	h.metrics.CacheHits = 0
	h.metrics.FallbacksUsed = 0
	h.metrics.RateLimited = 0
	h.metrics.ByCategory = make(map[models.Category]int64)
}

const (
	metricsStartTimeKey contextKey = "metrics_start_time"
)
