// Package persistence 提供分类结果审计记录的持久化
package persistence

import (
	"context"
	"errors"

	"inquiry-classifier/internal/domain/models"
)

// ErrNotFound 审计记录不存在
var ErrNotFound = errors.New("persistence: record not found")

// AuditStore 审计存储接口。
// 记录一次写入后不再修改，按分类ID查询。
type AuditStore interface {
	// Put 持久化一条分类结果审计记录。
	Put(ctx context.Context, result *models.ClassificationResult) error
	// Get 按分类ID查询审计记录，不存在返回 ErrNotFound。
	Get(ctx context.Context, id string) (*models.ClassificationResult, error)
	// Close 释放后端连接。
	Close() error
}
