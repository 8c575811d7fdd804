package models

import "time"

// CacheEntry 缓存条目。条目不可变，过期是唯一的销毁路径。
type CacheEntry struct {
	// Fingerprint 归一化文本的稳定哈希
	Fingerprint string `json:"fingerprint"`
	// Result 已计算的分类结果
	Result *ClassificationResult `json:"result"`
	// Band 写入时的置信度档位，决定TTL
	Band ConfidenceBand `json:"confidence_band"`
	// ExpiresAt 过期时间点
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired 判断条目在now时刻是否已过期
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}
