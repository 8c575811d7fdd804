package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"inquiry-classifier/internal/domain/models"
)

// auditKeyPrefix 审计记录的键前缀
const auditKeyPrefix = "audit:"

// auditRetention 审计记录保留时长
const auditRetention = 30 * 24 * time.Hour

// RedisAuditStore 基于 Redis 的审计存储实现
type RedisAuditStore struct {
	client *redis.Client
}

// NewRedisAuditStore 创建 Redis 审计存储。
func NewRedisAuditStore(client *redis.Client) *RedisAuditStore {
	return &RedisAuditStore{client: client}
}

// Put 持久化审计记录，按保留期设置过期。
func (s *RedisAuditStore) Put(ctx context.Context, result *models.ClassificationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	if err := s.client.Set(ctx, auditKeyPrefix+result.ID, data, auditRetention).Err(); err != nil {
		return fmt.Errorf("redis set audit: %w", err)
	}
	return nil
}

// Get 按分类ID查询审计记录。
func (s *RedisAuditStore) Get(ctx context.Context, id string) (*models.ClassificationResult, error) {
	data, err := s.client.Get(ctx, auditKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get audit: %w", err)
	}

	var result models.ClassificationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal audit record: %w", err)
	}
	return &result, nil
}

// Close 关闭 Redis 连接（由调用方统一管理时为空操作）。
func (s *RedisAuditStore) Close() error {
	return nil
}
