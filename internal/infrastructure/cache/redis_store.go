package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"inquiry-classifier/internal/domain/models"
)

// RedisStore 基于 Redis 的缓存存储实现。
// 条目以JSON序列化存储，过期由 Redis TTL 机制负责。
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 缓存存储。
// 参数 client: 已建立连接的 Redis 客户端。
// 返回: RedisStore 指针。
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get 获取缓存条目。
func (s *RedisStore) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// 损坏的条目视为未命中，等待覆盖写入
		return nil, ErrCacheMiss
	}
	return &entry, nil
}

// Set 写入缓存条目。
func (s *RedisStore) Set(ctx context.Context, key string, entry *models.CacheEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete 删除缓存条目。
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close 关闭 Redis 连接。
func (s *RedisStore) Close() error {
	return s.client.Close()
}
