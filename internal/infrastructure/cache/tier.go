package cache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"inquiry-classifier/internal/domain/models"
	"inquiry-classifier/pkg/logger"
)

// TierManager 置信度分层缓存管理器。
// 高置信结果长期缓存，中置信结果短期缓存，低置信结果不缓存。
// 同一指纹的并发未命中通过 singleflight 合并为一次模型调用。
type TierManager struct {
	store     Store
	keyPrefix string
	highTTL   time.Duration
	mediumTTL time.Duration
	group     singleflight.Group
	log       logger.Logger
}

// TierConfig 分层缓存配置
type TierConfig struct {
	KeyPrefix string
	HighTTL   time.Duration
	MediumTTL time.Duration
}

// NewTierManager 创建分层缓存管理器。
// 参数 store: 缓存后端。
// 参数 cfg: 分层配置。
// 参数 log: 日志记录器。
// 返回: TierManager 指针。
func NewTierManager(store Store, cfg TierConfig, log logger.Logger) *TierManager {
	return &TierManager{
		store:     store,
		keyPrefix: cfg.KeyPrefix,
		highTTL:   cfg.HighTTL,
		mediumTTL: cfg.MediumTTL,
		log:       log,
	}
}

// Lookup 按指纹查找缓存的分类结果。
// 后端不可用降级为未命中，不向调用方传播错误。
func (m *TierManager) Lookup(ctx context.Context, fingerprint string) (*models.ClassificationResult, bool) {
	entry, err := m.store.Get(ctx, m.keyPrefix+fingerprint)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			m.log.WarnContext(ctx, "缓存查询失败，按未命中处理",
				"fingerprint", fingerprint,
				"error", err.Error())
		}
		return nil, false
	}
	if entry.Expired(time.Now()) {
		return nil, false
	}
	return entry.Result, true
}

// StoreResult 按结果的置信度档位写入缓存。
// 低置信档位和降级结果不写入；后端不可用只记录日志。
func (m *TierManager) StoreResult(ctx context.Context, fingerprint string, result *models.ClassificationResult) {
	if result.FallbackUsed {
		return
	}

	band := result.Band()
	ttl := m.TTLFor(band)
	if ttl <= 0 {
		return
	}

	entry := &models.CacheEntry{
		Fingerprint: fingerprint,
		Result:      result,
		Band:        band,
		ExpiresAt:   time.Now().Add(ttl),
	}

	if err := m.store.Set(ctx, m.keyPrefix+fingerprint, entry, ttl); err != nil {
		m.log.WarnContext(ctx, "缓存写入失败",
			"fingerprint", fingerprint,
			"band", string(band),
			"error", err.Error())
		return
	}

	m.log.DebugContext(ctx, "分类结果已写入缓存",
		"fingerprint", fingerprint,
		"band", string(band),
		"ttl", ttl.String())
}

// Invalidate 删除指纹对应的缓存条目。
func (m *TierManager) Invalidate(ctx context.Context, fingerprint string) error {
	return m.store.Delete(ctx, m.keyPrefix+fingerprint)
}

// TTLFor 返回置信度档位对应的缓存时长，零值表示不缓存。
func (m *TierManager) TTLFor(band models.ConfidenceBand) time.Duration {
	switch band {
	case models.BandHigh:
		return m.highTTL
	case models.BandMedium:
		return m.mediumTTL
	default:
		return 0
	}
}

// DoOnce 对同一指纹的并发调用做单飞合并。
// 首个调用方执行 fn（通常是模型调用加缓存写入），
// 其余调用方阻塞等待并共享同一结果；fn 出错时所有等待方收到同一错误。
func (m *TierManager) DoOnce(ctx context.Context, fingerprint string, fn func() (*models.ClassificationResult, error)) (*models.ClassificationResult, bool, error) {
	value, err, shared := m.group.Do(fingerprint, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, shared, err
	}
	return value.(*models.ClassificationResult), shared, nil
}
