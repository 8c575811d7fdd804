// Package cache 提供分类结果缓存的存储实现与分层管理
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"inquiry-classifier/internal/domain/models"
)

// ErrCacheMiss 键不存在或已过期
var ErrCacheMiss = errors.New("cache: miss")

// Store 缓存后端接口。
// 实现方只负责键值读写与TTL，档位策略由 TierManager 决定。
type Store interface {
	// Get 获取缓存条目，不存在或已过期返回 ErrCacheMiss。
	Get(ctx context.Context, key string) (*models.CacheEntry, error)
	// Set 写入缓存条目并设置过期时间。
	Set(ctx context.Context, key string, entry *models.CacheEntry, ttl time.Duration) error
	// Delete 删除缓存条目，键不存在不视为错误。
	Delete(ctx context.Context, key string) error
	// Close 释放后端连接。
	Close() error
}

// Fingerprint 计算询盘文本的缓存指纹。
// 归一化（小写+去首尾空白）后取 SHA-256，
// 保证同一文本的大小写和空白差异命中同一条目。
func Fingerprint(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
